// Command server runs the funcall agent gateway.
//
// Configuration is layered: built-in defaults, a YAML file (--config,
// FUNCALL_CONFIG, ./config.yaml or /etc/funcall/config.yaml), then
// environment variables such as VLLM_BASE_URL, VLLM_MODEL, PORT and
// AGENT_MAX_ITERATIONS.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/rhuss/funcall/pkg/agent"
	"github.com/rhuss/funcall/pkg/config"
	"github.com/rhuss/funcall/pkg/debug"
	"github.com/rhuss/funcall/pkg/engine"
	"github.com/rhuss/funcall/pkg/provider/vllm"
	"github.com/rhuss/funcall/pkg/session"
	transporthttp "github.com/rhuss/funcall/pkg/transport/http"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Options are the command line flags.
type Options struct {
	Config   string `short:"c" long:"config" description:"path to the YAML configuration file"`
	LogLevel string `long:"log-level" description:"log level (TRACE, DEBUG, INFO, WARN, ERROR)"`
	Version  bool   `long:"version" description:"print the version and exit"`
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.Version {
		fmt.Println(version)
		return
	}

	if err := run(opts); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func parseOptions(args []string) (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func run(opts *Options) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := vllm.New(vllm.Config{
		BaseURL:            cfg.Backend.BaseURL,
		Model:              cfg.Backend.Model,
		APIKey:             cfg.Backend.APIKey,
		MaxTokens:          cfg.Backend.MaxTokens,
		Temperature:        cfg.Backend.Temperature,
		Timeout:            cfg.Backend.Timeout,
		LegacyFallback:     cfg.Backend.LegacyFallback,
		CompletionFallback: cfg.Backend.CompletionFallback,
	})
	if err != nil {
		return fmt.Errorf("creating inference gateway: %w", err)
	}
	defer gw.Close()

	reg, err := buildRegistry(ctx, cfg, gw)
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			slog.Warn("closing capability providers", "error", err)
		}
	}()

	eng, err := engine.New(gw, reg, engineConfig(cfg.Agent))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	systemPrompt := cfg.Agent.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = engine.DefaultSystemPrompt
	}
	sessions := session.New(cfg.Session.MaxConversations, systemPrompt)

	svc, err := agent.New(eng, sessions, reg, gw, agent.Info{
		Service:     "funcall",
		Version:     version,
		Environment: cfg.Env,
		BaseURL:     cfg.Backend.BaseURL,
		Model:       cfg.Backend.Model,
	})
	if err != nil {
		return fmt.Errorf("creating agent service: %w", err)
	}

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}
	srv := transporthttp.NewServer(svc,
		transporthttp.WithAddr(net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodyBytes),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithMetricsPath(metricsPath),
	)

	slog.Info("funcall starting",
		"version", version,
		"env", cfg.Env,
		"backend", cfg.Backend.BaseURL,
		"model", cfg.Backend.Model,
		"capabilities", reg.Len(),
		"max_iterations", cfg.Agent.MaxIterations,
		"debug", debug.Categories(),
	)
	return srv.Run(ctx)
}

func engineConfig(a config.AgentConfig) engine.Config {
	hints := make([]engine.Hint, 0, len(a.Hints))
	for _, h := range a.Hints {
		hints = append(hints, engine.Hint{Tool: h.Tool, Keywords: h.Keywords})
	}
	return engine.Config{
		MaxIterations:          a.MaxIterations,
		Timeout:                a.Timeout,
		ParallelInvocations:    a.ParallelInvocations,
		MaxParallelInvocations: a.MaxParallelInvocations,
		Hints:                  hints,
	}
}
