package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/connectors/filesystem"
	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

var watchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest a directory and keep it in sync",
	Long: `Ingests every matching file under the directory, then watches it and
re-ingests files as they change. Changed files replace their previous
version; deleted files are removed from the store. Re-ingests are
throttled by the watch.rate setting.

Use --once to stop after the initial sync.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "sync once and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchService == nil {
		return errNotConfigured("watch")
	}

	root, err := filepath.Abs(filesystem.ResolvePath(args[0]))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	cfg := domain.DefaultAppSettings()
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			cfg = *s
		}
	}

	src := filesystem.New(root,
		filesystem.WithExtensions(cfg.Watch.Extensions...),
		filesystem.WithRate(cfg.Watch.Rate),
	)
	defer src.Close() //nolint:errcheck

	ctx := cmd.Context()
	if err := src.Validate(ctx); err != nil {
		return err
	}

	cmd.Printf("Synchronising %s...\n", root)
	results, syncErr := watchService.Sync(ctx, src)
	outputIngestTable(cmd, results)
	if syncErr != nil {
		cmd.PrintErrf("Warning: %v\n", syncErr)
	}
	if watchOnce {
		return syncErr
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)...\n", root)
	st := newStyles(cmd.OutOrStdout())
	return watchService.Watch(ctx, src, func(e driving.WatchEvent) {
		switch {
		case e.Err != nil:
			cmd.Printf("  %s %s: %v\n", st.Warning.Render("failed "), e.Change.Path, e.Err)
		case e.Change.Type == domain.ChangeDeleted:
			cmd.Printf("  deleted  %s (%d documents)\n", e.Change.Path, len(e.Deleted))
		case e.Result != nil && e.Result.Skipped:
			cmd.Printf("  %s %s\n", st.Muted.Render("unchanged"), e.Change.Path)
		case e.Result != nil:
			cmd.Printf("  %-8s %s -> %s\n", e.Change.Type, e.Change.Path, st.ID.Render(e.Result.DocID))
		}
	})
}
