package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docdrift-mcp/internal/app"
	"github.com/dshills/docdrift-mcp/internal/searcher"
)

var (
	searchCollection string
	searchLimit      int
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documentation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "", "collection to search (default from config, \"documents\")")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", searcher.DefaultLimit, "maximum number of results (1-100)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App) error {
		collection := searchCollection
		if collection == "" {
			collection = a.Config.Collections.Docs
		}

		resp, err := a.Searcher.Search(cmd.Context(), searcher.Request{
			Query:      strings.Join(args, " "),
			Collection: collection,
			Limit:      searchLimit,
		})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if searchJSON {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if resp.TotalResults == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		for _, r := range resp.Results {
			name := r.FilePath()
			if name == "" {
				name = r.ID
			}
			fmt.Fprintf(out, "[%d] %s (%.2f)\n", r.Rank, name, r.RelevanceScore)
			fmt.Fprintf(out, "    %s\n\n", strings.Join(strings.Fields(r.Document), " "))
		}
		return nil
	})
}
