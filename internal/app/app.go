// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI and the HTTP server.
package app

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/archive"
	cachemem "github.com/antyra/ranksync/internal/cache/memory"
	"github.com/antyra/ranksync/internal/clock/system"
	"github.com/antyra/ranksync/internal/config"
	"github.com/antyra/ranksync/internal/engine"
	"github.com/antyra/ranksync/internal/logging"
	"github.com/antyra/ranksync/internal/metrics"
	"github.com/antyra/ranksync/internal/orchestrator"
	"github.com/antyra/ranksync/internal/progress"
	"github.com/antyra/ranksync/internal/progress/sinks"
	pubsubpub "github.com/antyra/ranksync/internal/publisher/pubsub"
	"github.com/antyra/ranksync/internal/rank"
	"github.com/antyra/ranksync/internal/serper"
	"github.com/antyra/ranksync/internal/sheet"
	googlesheet "github.com/antyra/ranksync/internal/sheet/google"
	sheetmem "github.com/antyra/ranksync/internal/sheet/memory"
	gcsblob "github.com/antyra/ranksync/internal/storage/gcs"
	localblob "github.com/antyra/ranksync/internal/storage/local"
	storagemem "github.com/antyra/ranksync/internal/storage/memory"
	"github.com/antyra/ranksync/internal/storage/postgres"
	"github.com/antyra/ranksync/internal/throttle"
)

// App holds the shared, long-lived services for the application. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	hub          *progress.Hub
	runStore     rank.RunStore
	orchestrator *orchestrator.Orchestrator
	closers      []func(context.Context) error
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Orchestrator returns the run orchestrator.
func (a *App) Orchestrator() *orchestrator.Orchestrator { return a.orchestrator }

// RunStore returns the run history store.
func (a *App) RunStore() rank.RunStore { return a.runStore }

// New builds every service from the configuration. It is the central point
// for service initialization and fails fast when a critical dependency
// cannot be reached.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	logger.Info("initializing application services")

	matcher, err := rank.MatcherFor(cfg.Matching.Strategy)
	if err != nil {
		return nil, err
	}

	source, err := serper.New(
		serper.Config{
			APIKey:   cfg.Serper.APIKey,
			BaseURL:  cfg.Serper.BaseURL,
			Country:  cfg.Serper.Country,
			Language: cfg.Serper.Language,
			Results:  cfg.Serper.Results,
			Timeout:  cfg.SerperTimeout(),
		},
		serper.Deps{
			Retry:   rank.NewFixedRetryPolicy(cfg.Serper.RetryAttempts, cfg.RetryDelay()),
			Cache:   cachemem.New(cfg.CacheTTL(), system.New()),
			Pacer:   throttle.New(cfg.ThrottleInterval()),
			Matcher: matcher,
			Logger:  logger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init ranking client: %w", err)
	}

	var store sheet.Store
	switch cfg.Sheets.Provider {
	case config.SheetsProviderGoogle:
		logger.Info("using google sheets store", zap.String("spreadsheet_id", cfg.Sheets.SpreadsheetID))
		store, err = googlesheet.New(ctx, cfg.Sheets.CredentialsFile, logger)
		if err != nil {
			return nil, fmt.Errorf("init sheets store: %w", err)
		}
	case config.SheetsProviderMemory:
		logger.Info("using in-memory sheets store")
		store = sheetmem.New()
	default:
		return nil, fmt.Errorf("unknown sheets provider %q", cfg.Sheets.Provider)
	}

	archiver, err := a.newArchiver(ctx, cfg.Archive.URI)
	if err != nil {
		return nil, err
	}

	if cfg.DB.DSN != "" {
		logger.Info("keeping run history in postgres")
		pg, err := postgres.NewRunStore(ctx, postgres.RunStoreConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("init run store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error {
			pg.Close()
			return nil
		})
		a.runStore = pg
	} else {
		logger.Info("keeping run history in memory")
		a.runStore = storagemem.NewRunStore()
	}

	var publisher rank.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		pub, err := pubsubpub.New(client)
		if err != nil {
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
		publisher = pub
		logger.Info("publishing run notifications", zap.String("topic", cfg.PubSub.TopicName))
	}

	hubSinks := []progress.Sink{sinks.NewLogSink(logger)}
	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		logger.Warn("progress metrics disabled", zap.Error(err))
	} else {
		hubSinks = append(hubSinks, promSink)
	}
	a.hub = progress.NewHub(progress.Config{}, hubSinks...)
	a.closers = append(a.closers, a.hub.Close)

	eng, err := engine.New(engine.Config{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		Domains:       cfg.Domains(),
		Source:        source,
		Store:         store,
		Archiver:      archiver,
		Emitter:       a.hub,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init sync engine: %w", err)
	}

	a.orchestrator, err = orchestrator.New(
		orchestrator.Config{
			Targets:     cfg.RankTargets(),
			Concurrency: cfg.Sync.Concurrency,
			Topic:       cfg.PubSub.TopicName,
		},
		orchestrator.Deps{
			Syncer:    eng,
			RunStore:  a.runStore,
			Publisher: publisher,
			Emitter:   a.hub,
			Logger:    logger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}

	logger.Info("application services initialized")
	return a, nil
}

// newArchiver resolves the archive.uri scheme to a blob store. An empty URI
// disables archiving.
func (a *App) newArchiver(ctx context.Context, uri string) (engine.Archiver, error) {
	if uri == "" {
		a.logger.Info("snapshot archiving disabled")
		return nil, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse archive.uri: %w", err)
	}
	switch u.Scheme {
	case "gs":
		if u.Host == "" {
			return nil, fmt.Errorf("archive.uri %q is missing a bucket", uri)
		}
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		blob, err := gcsblob.New(client, u.Host)
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		a.logger.Info("archiving snapshots to gcs", zap.String("bucket", u.Host))
		return archive.New(blob, strings.Trim(u.Path, "/"), nil, a.logger), nil
	case "file":
		dir := filepath.Join(u.Host, u.Path)
		if dir == "" {
			return nil, fmt.Errorf("archive.uri %q is missing a directory", uri)
		}
		blob, err := localblob.New(dir)
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		a.logger.Info("archiving snapshots to disk", zap.String("dir", dir))
		return archive.New(blob, "", nil, a.logger), nil
	case "memory":
		return archive.New(storagemem.NewBlobStore(), "", nil, a.logger), nil
	default:
		return nil, fmt.Errorf("unsupported archive.uri scheme %q", u.Scheme)
	}
}

// Close shuts down services in reverse initialization order.
func (a *App) Close(ctx context.Context) {
	a.logger.Info("shutting down application services")
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	// Syncing stdout/stderr fails on some platforms; nothing to do about it.
	_ = a.logger.Sync()
}
