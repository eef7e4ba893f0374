// Package commands defines all Cobra CLI commands for the notion binary.
package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/IslandRhythms/notion-clone/internal/audit"
	"github.com/IslandRhythms/notion-clone/internal/config"
	"github.com/IslandRhythms/notion-clone/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notion",
		Short: "notion — a notes service with embedding-backed question answering",
		Long: `notion is a local-first notes service in the style of Notion.

Pages are stored as lists of text blocks, indexed with embeddings on every
save, and queried with natural language: ask a question and the service
retrieves the most similar pages and synthesizes a grounded answer from them.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.notion/config.yaml).
See 'notion --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env if present — real env vars always win.
			_ = godotenv.Load()

			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.notion/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewReindexCmd(),
		NewVersionCmd(),
	)

	return root
}
