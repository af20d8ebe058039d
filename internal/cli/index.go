package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/docdrift-mcp/internal/app"
	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/progress"
)

var (
	indexCollection string
	indexWatch      bool
)

var indexCmd = &cobra.Command{
	Use:   "index [folder]",
	Short: "Index markdown documentation from a folder",
	Long: `Indexes every markdown file under the folder into a collection.
Hidden files, dependency directories and paths ignored by the folder's
.gitignore are skipped. With --watch the collection is kept in sync as
files change until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexCollection, "collection", "c", "", "collection name (default from config, \"documents\")")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep watching the folder and re-index changed files")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	folder := args[0]
	ctx := cmd.Context()

	return withApp(func(a *app.App) error {
		collection := indexCollection
		if collection == "" {
			collection = a.Config.Collections.Docs
		}

		stats, err := a.Indexer.IndexDocumentation(ctx, folder, collection, progress.Log{})
		if err != nil {
			return fmt.Errorf("indexing failed: %w", err)
		}
		printStats(cmd, stats)
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully indexed %d documents with %d chunks\n", stats.FilesFound, stats.ChunksCreated)

		if !indexWatch {
			return nil
		}
		return watch(ctx, a, folder, collection)
	})
}

func watch(ctx context.Context, a *app.App, folder, collection string) error {
	w, err := a.NewWatcher(folder, collection, progress.Log{})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", folder, err)
	}
	defer func() { _ = w.Close() }()

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printStats(cmd *cobra.Command, stats *indexer.Statistics) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Files found:    %d\n", stats.FilesFound)
	fmt.Fprintf(out, "Files indexed:  %d\n", stats.FilesIndexed)
	if stats.FilesSkipped > 0 {
		fmt.Fprintf(out, "Files skipped:  %d\n", stats.FilesSkipped)
	}
	if stats.FilesFailed > 0 {
		fmt.Fprintf(out, "Files failed:   %d\n", stats.FilesFailed)
		for _, msg := range stats.ErrorMessages {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
	}
	fmt.Fprintf(out, "Chunks created: %d\n", stats.ChunksCreated)
	fmt.Fprintf(out, "Duration:       %s\n", stats.Duration.Round(time.Millisecond))
}
