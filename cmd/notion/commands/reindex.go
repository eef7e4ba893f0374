package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IslandRhythms/notion-clone/internal/logging"
)

// NewReindexCmd constructs the `notion reindex` command, which re-embeds all
// pages owned by a user. Useful after switching embedding models or standing
// up a fresh Qdrant collection.
func NewReindexCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-embed all of a user's pages",
		Long: `Re-embed every page owned by the given user and refresh the
similarity index. Run this after changing EMBEDDING_MODEL or pointing
QDRANT_HOST at an empty collection.

Examples:
  notion reindex --user alice
  EMBEDDING_MODEL=text-embedding-3-small notion reindex --user alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
			ctx = logging.WithLogger(ctx, log)

			comps, cleanup, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			defer cleanup()

			n, err := comps.Indexer.Reindex(ctx, userID)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}

			fmt.Printf("reindexed %d page(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id whose pages to reindex")

	return cmd
}
