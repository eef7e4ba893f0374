package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/IslandRhythms/notion-clone/internal/logging"
	"github.com/IslandRhythms/notion-clone/internal/provider"
	"github.com/IslandRhythms/notion-clone/internal/qa"
	"github.com/IslandRhythms/notion-clone/internal/server"
	"github.com/IslandRhythms/notion-clone/internal/synth"
	"github.com/IslandRhythms/notion-clone/internal/tracing"
)

// NewServeCmd constructs the `notion serve` command, which starts the HTTP
// server exposing the page CRUD and question-answering API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notion HTTP server",
		Long: `Start the notion HTTP server on localhost.

The server exposes a REST API for page CRUD (POST/GET/PUT/DELETE /api/pages)
and question answering (POST /api/answer), plus health, readiness, and
Prometheus metrics endpoints.

Examples:
  notion serve
  notion serve --port 9090
  MODEL_PROVIDER=ollama notion serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise model provider: %w", err)
			}

			comps, cleanup, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer cleanup()

			synthesizer, err := synth.New(chatModel)
			if err != nil {
				return fmt.Errorf("serve: failed to build synthesizer: %w", err)
			}

			pipeline, err := qa.NewPipeline(comps.Embedder, comps.Searcher, synthesizer)
			if err != nil {
				return fmt.Errorf("serve: failed to build answer pipeline: %w", err)
			}

			pingers := []server.Pinger{server.NewStorePinger(comps.Store)}
			if comps.Index != nil {
				pingers = append(pingers, server.NewQdrantPinger(comps.Index))
			}

			if host == "" {
				host = envOrDefault("NOTION_HOST", "127.0.0.1")
			}
			if port == 0 {
				port = envInt("NOTION_PORT", 8080)
			}

			srv, err := server.New(comps.Indexer, pipeline, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("NOTION_API_KEY"),
			}, prometheus.DefaultRegisterer)
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: NOTION_HOST or 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: NOTION_PORT or 8080)")

	return cmd
}
