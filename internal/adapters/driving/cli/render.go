package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/core/domain"
)

var (
	renderQuery  string
	renderIDs    []string
	renderPolicy string
	renderWindow int
	renderBudget int
	renderJSON   bool
)

var renderCmd = &cobra.Command{
	Use:   "render [doc-id]",
	Short: "Render a document in full or filtered",
	Long: `Without a selection, prints the original bytes of the document rebuilt
from its node tree.

With --query or --id, prints a filtered view: selected nodes render
verbatim and everything else collapses into placeholder lines of the
form [[weft:<short_id> <kind> <bytes>]].

Expansion policies (--policy):
  direct                     - only the selected nodes
  direct+ancestors           - also the headings that contain them
  direct+ancestors+siblings  - also --window siblings on each side`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var expandCmd = &cobra.Command{
	Use:   "expand [short-id]",
	Short: "Print the exact bytes of one node",
	Long:  `Replaces a placeholder: prints the bytes of the node it names.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExpand,
}

func init() {
	renderCmd.Flags().StringVarP(&renderQuery, "query", "q", "", "select nodes matching a search query")
	renderCmd.Flags().StringSliceVar(&renderIDs, "id", nil, "select nodes by short id (repeatable)")
	renderCmd.Flags().StringVarP(&renderPolicy, "policy", "p", "", "expansion policy (default from settings)")
	renderCmd.Flags().IntVarP(&renderWindow, "window", "w", 0, "sibling radius for direct+ancestors+siblings (default from settings)")
	renderCmd.Flags().IntVarP(&renderBudget, "budget", "b", 0, "maximum output bytes, 0 for unlimited (default from settings)")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "output the filtered result as JSON")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(expandCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	if renderService == nil {
		return errNotConfigured("render")
	}

	docID := args[0]
	ctx := cmd.Context()
	sel := domain.Selection{Query: renderQuery, ShortIDs: renderIDs}

	if sel.IsEmpty() {
		out, err := renderService.RenderFull(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}

	policy := domain.ExpansionPolicy(renderPolicy)
	if policy != "" && !policy.IsValid() {
		return fmt.Errorf("invalid expansion policy: %s", renderPolicy)
	}

	opts := domain.RenderOptions{Policy: policy}
	if cmd.Flags().Changed("window") {
		opts.Window = domain.Int(renderWindow)
	}
	if cmd.Flags().Changed("budget") {
		opts.Budget = domain.Int(renderBudget)
	}

	res, err := renderService.RenderFiltered(ctx, docID, sel, opts)
	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	if renderJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal render result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if _, err := fmt.Fprint(cmd.OutOrStdout(), res.Text); err != nil {
		return err
	}
	if res.Truncated {
		st := newStyles(cmd.ErrOrStderr())
		fmt.Fprintln(cmd.ErrOrStderr(), st.Warning.Render("Output truncated by budget."))
	}
	return nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	if renderService == nil {
		return errNotConfigured("render")
	}

	out, err := renderService.Expand(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to expand node: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
