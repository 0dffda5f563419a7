// Command weft ingests documents into a structural graph and renders them
// in full or filtered views.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/weft/internal/adapters/driven/config/file"
	"github.com/custodia-labs/weft/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/weft/internal/adapters/driving/cli"
	"github.com/custodia-labs/weft/internal/core/services"
	"github.com/custodia-labs/weft/internal/metrics"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the store, config and services for one invocation.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("opening config: %w", err)
	}

	m := metrics.New()
	locks := services.NewDocLocks()
	settings := services.NewSettingsService(configStore)
	graph := store.GraphStore()
	engine := store.SearchEngine()

	ingest := services.NewIngestService(graph, settings, locks, m)
	docs := services.NewDocumentService(graph, locks)

	return &cli.Services{
		Ingest:   ingest,
		Document: docs,
		Search:   services.NewSearchService(engine, settings, m),
		Render:   services.NewRenderService(graph, engine, settings, locks, m),
		Settings: settings,
		Watch:    services.NewWatchService(graph, ingest, docs, m),
		Metrics:  m,
		Close:    store.Close,
	}, nil
}
