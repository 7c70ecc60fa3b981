// Command mock-backend runs a deterministic OpenAI-compatible inference
// server for local development and end-to-end tests of the fallback
// ladder.
//
// Modes:
//
//	tools   chat completions with native tool_calls (default)
//	legacy  tool catalogs on the chat route fail with 500; functions/function_call works
//	text    only /v1/completions exists; invocations are emitted as fenced JSON
package main

import (
	"context"
	"errors"
	"fmt"
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
	Addr  string `long:"addr" default:":9090" description:"listen address"`
	Mode  string `long:"mode" default:"tools" choice:"tools" choice:"legacy" choice:"text" description:"protocol compliance to emulate"`
	Model string `long:"model" default:"mock-model" description:"model name reported by /v1/models"`
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

	if err := run(opts); err != nil {
		slog.Error("mock backend failed", "error", err)
		os.Exit(1)
	}
}

func run(opts *Options) error {
	b, err := newBackend(opts.Mode, opts.Model)
	if err != nil {
		return err
	}
	srv := &http.Server{Addr: opts.Addr, Handler: b.routes(), ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mock backend starting", "addr", opts.Addr, "mode", opts.Mode, "model", opts.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listening: %w", err)
	case <-ctx.Done():
	}

	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
