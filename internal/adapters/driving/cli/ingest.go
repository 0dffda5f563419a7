package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

var (
	ingestOnDuplicate string
	ingestSourcePath  string
	ingestJSON        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest files or directories",
	Long: `Parses each file into headings, paragraphs and code blocks and stores
the graph. Directories are walked for files with a configured extension;
hidden files and directories are skipped.

Use "-" to read one document from stdin; --source-path then names it.

Duplicate handling (--on-duplicate):
  fail     - report an error when the same path and bytes were ingested
  skip     - keep the stored document
  replace  - drop every document from the same path and ingest again`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestOnDuplicate, "on-duplicate", "d", "", "duplicate policy: fail, skip or replace (default from settings)")
	ingestCmd.Flags().StringVar(&ingestSourcePath, "source-path", "stdin", "source path recorded for stdin input")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	policy := domain.DuplicatePolicy(ingestOnDuplicate)
	if policy != "" && !policy.IsValid() {
		return fmt.Errorf("invalid duplicate policy: %s", ingestOnDuplicate)
	}

	ctx := cmd.Context()
	var results []driving.IngestResult
	var ingestErr error

	if len(args) == 1 && args[0] == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		res, err := ingestService.Ingest(ctx, driving.IngestRequest{
			SourcePath:  ingestSourcePath,
			Content:     content,
			OnDuplicate: policy,
		})
		if err != nil {
			return err
		}
		results = append(results, *res)
	} else {
		results, ingestErr = ingestService.IngestPaths(ctx, args, policy)
		if results == nil && ingestErr != nil {
			return ingestErr
		}
	}

	if ingestJSON {
		if err := outputIngestJSON(cmd, results); err != nil {
			return err
		}
	} else {
		outputIngestTable(cmd, results)
	}
	if ingestErr != nil {
		return fmt.Errorf("ingest failed: %w", ingestErr)
	}
	return nil
}

func outputIngestJSON(cmd *cobra.Command, results []driving.IngestResult) error {
	type row struct {
		driving.IngestResult
		Error string `json:"error,omitempty"`
	}
	rows := make([]row, len(results))
	for i, r := range results {
		rows[i] = row{IngestResult: r}
		if r.Err != nil {
			rows[i].Error = r.Err.Error()
		}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputIngestTable(cmd *cobra.Command, results []driving.IngestResult) {
	if len(results) == 0 {
		cmd.Println("No files to ingest.")
		return
	}

	st := newStyles(cmd.OutOrStdout())
	var ok, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			cmd.Printf("  %s %s: %v\n", st.Warning.Render("failed "), r.SourcePath, r.Err)
		case r.Skipped:
			skipped++
			cmd.Printf("  %s %s (%s)\n", st.Muted.Render("skipped"), r.SourcePath, r.DocID)
		case len(r.Replaced) > 0:
			ok++
			cmd.Printf("  replaced %s -> %s (%d nodes)\n", r.SourcePath, st.ID.Render(r.DocID), r.Nodes)
		default:
			ok++
			cmd.Printf("  ingested %s -> %s (%d nodes)\n", r.SourcePath, st.ID.Render(r.DocID), r.Nodes)
		}
	}
	cmd.Println()
	cmd.Printf("Total: %d ingested, %d skipped, %d failed\n", ok, skipped, failed)
}
