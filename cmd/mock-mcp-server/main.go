// Command mock-mcp-server runs a small MCP server over streamable HTTP for
// local development of the MCP capability source. It serves the
// word_count and reverse_text tools on /mcp.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
)

// Options are the command line flags.
type Options struct {
	Addr string `long:"addr" default:":8081" description:"listen address"`
}

func main() {
	opts := &Options{}
	if _, err := flags.NewParser(opts, flags.Default).Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	srv := &http.Server{Addr: opts.Addr, Handler: routes(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("mock MCP server starting", "addr", opts.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("mock MCP server failed", "error", err)
		os.Exit(1)
	}
}
