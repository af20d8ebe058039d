package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/docdrift-mcp/internal/app"
	"github.com/dshills/docdrift-mcp/internal/indexer"
	"github.com/dshills/docdrift-mcp/internal/progress"
	"github.com/dshills/docdrift-mcp/internal/suggest"
	"github.com/dshills/docdrift-mcp/pkg/types"
)

var (
	checkRange      string
	checkSinceDays  int
	checkCollection string
	checkJSON       bool

	diffRange      string
	diffSinceDays  int
	diffCollection string
)

var checkCmd = &cobra.Command{
	Use:   "check [repo]",
	Short: "Suggest documentation that may need updates after code changes",
	Long: `Analyzes the git diffs of a repository, keeps the significant code
changes and searches the documentation collection for related documents.
Documents under the repository's docs/ directory rank first.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var indexDiffCmd = &cobra.Command{
	Use:   "index-diff [repo]",
	Short: "Index significant git diffs so code changes become searchable",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexDiff,
}

func init() {
	checkCmd.Flags().StringVarP(&checkRange, "range", "r", "", "commit range to analyze, e.g. HEAD~5..HEAD (overrides --since-days)")
	checkCmd.Flags().IntVar(&checkSinceDays, "since-days", suggest.DefaultSinceDays, "analyze commits from the last N days")
	checkCmd.Flags().StringVarP(&checkCollection, "collection", "c", "", "documentation collection (default from config, \"documents\")")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(checkCmd)

	indexDiffCmd.Flags().StringVarP(&diffRange, "range", "r", "", "commit range to index, e.g. HEAD~5..HEAD (overrides --since-days)")
	indexDiffCmd.Flags().IntVar(&diffSinceDays, "since-days", indexer.DefaultSinceDays, "index commits from the last N days")
	indexDiffCmd.Flags().StringVarP(&diffCollection, "collection", "c", "", "collection for diff summaries (default from config, \"git_changes\")")
	rootCmd.AddCommand(indexDiffCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App) error {
		req := suggest.Request{
			RepoPath:    args[0],
			CommitRange: checkRange,
			SinceDays:   checkSinceDays,
			Collection:  checkCollection,
		}
		if req.Collection == "" {
			req.Collection = a.Config.Collections.Docs
		}

		report, err := a.Suggest.CheckDocs(cmd.Context(), req, progress.Log{})
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		if checkJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		printReport(cmd, report)
		return nil
	})
}

func printReport(cmd *cobra.Command, report *types.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Summary)
	fmt.Fprintf(out, "Code changes analyzed: %d\n", report.TotalCodeChanges)
	if len(report.Suggestions) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Suggestions:")
	for i, s := range report.Suggestions {
		marker := ""
		if s.IsInDocsDirectory {
			marker = " [docs]"
		}
		fmt.Fprintf(out, "[%d] %s (%.2f, %s)%s\n", i+1, s.GroupKey(), s.RelevanceScore, s.ChangeType, marker)
		fmt.Fprintf(out, "    %s: %s\n", s.CodeFile, s.Reason)
		fmt.Fprintf(out, "    %s\n", s.DiffSummary)
	}

	if len(report.AffectedDocs) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Affected documents:")
		for _, doc := range report.AffectedDocs {
			fmt.Fprintf(out, "  - %s\n", doc)
		}
	}
}

func runIndexDiff(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App) error {
		req := indexer.DiffRequest{
			RepoPath:    args[0],
			CommitRange: diffRange,
			SinceDays:   diffSinceDays,
			Collection:  diffCollection,
		}
		if req.Collection == "" {
			req.Collection = a.Config.Collections.Diffs
		}

		stats, err := a.Indexer.IndexGitDiff(cmd.Context(), req, progress.Log{})
		if err != nil {
			return fmt.Errorf("git diff indexing failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d git diff entries from %d total code changes\n", stats.FilesIndexed, stats.FilesFound)
		return nil
	})
}
