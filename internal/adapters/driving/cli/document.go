package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/core/domain"
)

var (
	listJSON       bool
	outlineJSON    bool
	deleteBySource bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var outlineCmd = &cobra.Command{
	Use:   "outline [doc-id]",
	Short: "Show the node tree of a document",
	Long: `Prints every node of a document with its short id, kind and title.
Short ids can be passed to render --id and expand.`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id...]",
	Short: "Delete documents",
	Long: `Removes documents with their nodes, edges and index entries.
With --source the arguments are source paths and every document ingested
from them is removed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	outlineCmd.Flags().BoolVar(&outlineJSON, "json", false, "output the outline as JSON")
	deleteCmd.Flags().BoolVar(&deleteBySource, "source", false, "treat arguments as source paths")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errNotConfigured("document")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if listJSON {
		type docInfo struct {
			ID         string    `json:"id"`
			SourcePath string    `json:"source_path"`
			Size       int64     `json:"size"`
			CreatedAt  time.Time `json:"created_at"`
		}
		infos := make([]docInfo, len(docs))
		for i := range docs {
			infos[i] = docInfo{
				ID:         docs[i].ID,
				SourcePath: docs[i].SourcePath,
				Size:       docs[i].Size,
				CreatedAt:  docs[i].CreatedAt,
			}
		}
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", st.ID.Render(docs[i].ID))
		cmd.Printf("    Source:  %s\n", docs[i].SourcePath)
		cmd.Printf("    Size:    %d bytes\n", docs[i].Size)
		cmd.Printf("    Created: %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runOutline(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNotConfigured("document")
	}

	out, err := documentService.Outline(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to outline document: %w", err)
	}

	if outlineJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal outline: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	printOutline(cmd, st, out, 0)
	return nil
}

func printOutline(cmd *cobra.Command, st styles, n *domain.OutlineNode, depth int) {
	line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", depth), st.ID.Render(n.ShortID), st.Kind.Render(n.Kind.String()))
	if n.Title != "" {
		line += " " + st.Title.Render(n.Title)
	}
	cmd.Println(line)
	for i := range n.Children {
		printOutline(cmd, st, &n.Children[i], depth+1)
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errNotConfigured("document")
	}

	ctx := cmd.Context()
	for _, arg := range args {
		if deleteBySource {
			ids, err := documentService.DeleteBySource(ctx, arg)
			if err != nil {
				return fmt.Errorf("failed to delete documents of %s: %w", arg, err)
			}
			cmd.Printf("Deleted %d documents from %s.\n", len(ids), arg)
			continue
		}
		if err := documentService.Delete(ctx, arg); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		cmd.Printf("Document %s deleted.\n", arg)
	}
	return nil
}
