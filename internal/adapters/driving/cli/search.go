package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/core/domain"
)

var (
	searchLimit int
	searchDocID string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested nodes",
	Long: `Runs a keyword query over every heading, paragraph and code block.
Results are ranked by BM25, with heading titles weighted above body text.

Query syntax:
  word          term (case-insensitive)
  "two words"   phrase
  pre*          prefix
  a OR b        either term
  a -b          exclude b
  (a OR b) c    grouping`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from settings)")
	searchCmd.Flags().StringVar(&searchDocID, "doc", "", "restrict results to one document")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errNotConfigured("search")
	}

	opts := domain.SearchOptions{
		Limit: searchLimit,
		DocID: searchDocID,
	}

	results, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchHit) error {
	if results == nil {
		results = []domain.SearchHit{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchHit) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] shortid kind Title (Score)
		header := fmt.Sprintf("%s %s", st.ID.Render(results[i].ShortID), st.Kind.Render(results[i].Kind.String()))
		if results[i].Title != "" {
			header += " " + st.Title.Render(results[i].Title)
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, header, results[i].Score)
		cmd.Printf("      Document: %s\n", results[i].DocID)
		if results[i].Snippet != "" {
			cmd.Printf("      %s\n", results[i].Snippet)
		}
		cmd.Println()
	}

	return nil
}
