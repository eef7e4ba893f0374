package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IslandRhythms/notion-clone/internal/logging"
	"github.com/IslandRhythms/notion-clone/internal/provider"
	"github.com/IslandRhythms/notion-clone/internal/qa"
	"github.com/IslandRhythms/notion-clone/internal/synth"
)

// NewAskCmd constructs the `notion ask` command, which answers a single
// natural language question grounded in the caller's stored pages.
func NewAskCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from your notes",
		Long: `Ask a natural language question against your stored pages.

The question is embedded, the most similar pages are retrieved, and the
model synthesizes an answer grounded in their text. Pages owned by other
users are never used as sources.

Examples:
  notion ask "where did I plan to stay in Lisbon?"
  notion ask --user alice "what was the conclusion of the Q3 review?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			ctx = logging.WithLogger(ctx, log)

			chatModel, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			comps, cleanup, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer cleanup()

			synthesizer, err := synth.New(chatModel)
			if err != nil {
				return fmt.Errorf("ask: failed to build synthesizer: %w", err)
			}

			pipeline, err := qa.NewPipeline(comps.Embedder, comps.Searcher, synthesizer)
			if err != nil {
				return fmt.Errorf("ask: failed to build answer pipeline: %w", err)
			}

			result, err := pipeline.Ask(ctx, userID, args[0])
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(result.Answer)
			if len(result.Pages) > 0 {
				fmt.Println("\nSources:")
				for _, p := range result.Pages {
					fmt.Printf("  %s\n", p.ID)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id to answer as (scopes page access)")

	return cmd
}
