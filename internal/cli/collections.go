package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docdrift-mcp/internal/app"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			names, err := a.Store.ListCollections(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list collections: %w", err)
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No collections.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a collection and every document in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if err := a.Store.DeleteCollection(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete collection: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted collection: %s\n", args[0])
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and embedder status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			st, err := a.Store.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			info := a.Info()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database:       %s\n", a.Config.DBPath())
			fmt.Fprintf(out, "Schema version: %s\n", st.SchemaVersion)
			fmt.Fprintf(out, "Build mode:     %s (%s)\n", info.BuildMode, info.Driver)
			fmt.Fprintf(out, "Embedder:       %s/%s, %d dimensions\n", info.EmbedderProvider, info.EmbedderModel, info.Dimension)
			fmt.Fprintf(out, "Documents:      %d in %d collections (%.2f MB)\n", st.DocumentsCount, st.CollectionsCount, st.IndexSizeMB)
			for _, c := range st.Collections {
				updated := "never"
				if !c.LastUpdatedAt.IsZero() {
					updated = c.LastUpdatedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "  %s: %d documents from %d files, updated %s\n", c.Name, c.Documents, c.Files, updated)
			}
			return nil
		})
	},
}

func init() {
	collectionsCmd.AddCommand(collectionsListCmd)
	collectionsCmd.AddCommand(collectionsDeleteCmd)
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(statusCmd)
}
