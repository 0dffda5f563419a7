// Package cli provides the cobra command tree for weft.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/logger"
	"github.com/custodia-labs/weft/internal/metrics"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services holds the driving ports the commands call.
type Services struct {
	Ingest   driving.IngestService
	Document driving.DocumentService
	Search   driving.SearchService
	Render   driving.RenderService
	Settings driving.SettingsService
	Watch    driving.WatchService
	Metrics  *metrics.Metrics

	// Close releases the store. It may be nil.
	Close func() error
}

// Options are the global flags a Bootstrap receives.
type Options struct {
	DataDir   string
	ConfigDir string
}

// Bootstrap builds the services once the global flags are parsed.
type Bootstrap func(opts Options) (*Services, error)

var (
	ingestService   driving.IngestService
	documentService driving.DocumentService
	searchService   driving.SearchService
	renderService   driving.RenderService
	settingsService driving.SettingsService
	watchService    driving.WatchService
	metricsRegistry *metrics.Metrics
	closeServices   func() error

	bootstrap Bootstrap
)

// Global flags.
var (
	verbose   bool
	dataDir   string
	configDir string
)

// skipServices marks commands that run without a store.
const skipServices = "weft/skip-services"

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Structural document graph with byte-exact rendering",
	Long: `weft ingests Markdown-like documents into a graph of nodes and edges,
searches them by keyword, and renders either the original bytes or a
filtered view in which unselected content collapses into placeholders.

Placeholders look like [[weft:<short_id> <kind> <bytes>]] and can be
expanded back with 'weft expand <short_id>'.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return shutdownServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print diagnostic output to stderr")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "database directory (default ~/.weft/data)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.weft)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds services from the
// global flags.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly, bypassing Bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	ingestService = s.Ingest
	documentService = s.Document
	searchService = s.Search
	renderService = s.Render
	settingsService = s.Settings
	watchService = s.Watch
	metricsRegistry = s.Metrics
	closeServices = s.Close
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if cmd.Annotations[skipServices] == "true" || bootstrap == nil || searchService != nil {
		return nil
	}
	s, err := bootstrap(Options{DataDir: dataDir, ConfigDir: configDir})
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}

func shutdownServices() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// errNotConfigured reports a missing service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
