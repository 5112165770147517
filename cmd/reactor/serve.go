package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/inspector"
	"github.com/vango-dev/reactor/pkg/metrics"
	"github.com/vango-dev/reactor/pkg/reactive"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		host      string
		port      int
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live state inspector",
		Long: `Start an HTTP server holding one reactive state object.

Clients read and write keys over HTTP and subscribe over WebSocket to
receive the full state after every change.

Routes:
  GET    /state         whole state (ETag aware)
  GET    /state/{key}   one key
  PUT    /state/{key}   write a JSON value
  DELETE /state/{key}   remove a key
  GET    /stats         registry and wrapper cache sizes
  GET    /ws            change stream
  GET    /metrics       Prometheus metrics (when enabled)

Examples:
  reactor serve
  reactor serve --port 8080 --state initial.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg, nil)

			initial, err := loadState(statePath)
			if err != nil {
				return err
			}

			opts := []reactive.Option{reactive.WithSweepInterval(cfg.Runtime.SweepInterval)}
			serverConfig := inspector.Config{
				Address:      cfg.ServerAddress(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				Logger:       logger,
			}
			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				opts = append(opts, reactive.WithMetrics(metrics.New(
					metrics.WithRegistry(reg),
					metrics.WithNamespace(cfg.Metrics.Namespace),
				)))
				serverConfig.Gatherer = reg
			}

			hub := inspector.NewHub(initial, logger, opts...)
			server := inspector.NewServer(hub, serverConfig)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printBanner()
			success("Inspector listening on http://%s", cfg.ServerAddress())
			info("WebSocket stream at ws://%s/ws", cfg.ServerAddress())
			if cfg.Metrics.Enabled {
				info("Metrics at http://%s/metrics", cfg.ServerAddress())
			}
			fmt.Println()

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides server.port)")
	cmd.Flags().StringVar(&statePath, "state", "", "YAML file with the initial state")

	return cmd
}

// loadState reads the initial state document. An empty path means an
// empty state.
func loadState(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, usageError("cannot read state file %s: %v", path, err)
	}
	var state map[string]any
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, errors.New("R060").
			WithDetailf("state file %s is not a YAML mapping: %v", path, err).
			WithSuggestion("The state file must be a mapping of keys to values")
	}
	if state == nil {
		state = map[string]any{}
	}
	return state, nil
}
