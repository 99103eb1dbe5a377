// Package engine executes the per-domain worksheet sync: read the grid,
// resolve fresh rankings, rewrite labels and highlights, archive the result.
package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/clock/system"
	"github.com/antyra/ranksync/internal/metrics"
	"github.com/antyra/ranksync/internal/progress"
	"github.com/antyra/ranksync/internal/rank"
	"github.com/antyra/ranksync/internal/sheet"
)

// Archiver stores a post-sync worksheet snapshot and returns its URI.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, runID, domain string, header []string, grid [][]string) (string, error)
}

// Config wires an Engine. Source, Store, and SpreadsheetID are required;
// Archiver and Emitter may be nil, Clock and Logger default.
type Config struct {
	SpreadsheetID string
	// Domains lists every tracked domain so each worksheet's competitor
	// columns are recognized.
	Domains  []string
	Source   rank.Source
	Store    sheet.Store
	Archiver Archiver
	Emitter  progress.Emitter
	Clock    rank.Clock
	Logger   *zap.Logger
}

// Engine syncs one worksheet per call. It is safe for concurrent use: each
// SyncDomain call works on its own target.
type Engine struct {
	spreadsheetID string
	domains       []string
	source        rank.Source
	store         sheet.Store
	updater       *sheet.Updater
	archiver      Archiver
	emitter       progress.Emitter
	clock         rank.Clock
	logger        *zap.Logger
}

// New validates the config and builds an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("ranking source is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("worksheet store is required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Engine{
		spreadsheetID: cfg.SpreadsheetID,
		domains:       append([]string(nil), cfg.Domains...),
		source:        cfg.Source,
		store:         cfg.Store,
		updater:       sheet.NewUpdater(cfg.Store, cfg.Logger),
		archiver:      cfg.Archiver,
		emitter:       cfg.Emitter,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
	}, nil
}

// SyncDomain refreshes one domain's worksheet. Failures are reported in the
// result rather than aborting the caller: a broken worksheet must not take
// the rest of the run down with it.
func (e *Engine) SyncDomain(ctx context.Context, runID string, target rank.Target) rank.DomainResult {
	start := e.clock.Now()
	result := rank.DomainResult{Domain: target.Domain}
	logger := e.logger.With(zap.String("run_id", runID), zap.String("domain", target.Domain))

	e.emit(progress.Event{RunID: runID, TS: start, Stage: progress.StageDomainStart, Domain: target.Domain})

	ref := sheet.Ref{SpreadsheetID: e.spreadsheetID, SheetID: target.SheetID}
	err := e.sync(ctx, logger, runID, target, ref, &result)
	result.Duration = e.clock.Now().Sub(start)

	if err != nil {
		result.Err = err
		logger.Error("domain sync failed",
			zap.Error(err),
			zap.Duration("duration", result.Duration),
		)
		e.emit(progress.Event{
			RunID:  runID,
			TS:     e.clock.Now(),
			Stage:  progress.StageDomainError,
			Domain: target.Domain,
			Dur:    result.Duration,
			Note:   err.Error(),
		})
		return result
	}

	result.Succeeded = true
	logger.Info("domain sync complete",
		zap.Int("keywords", result.KeywordsChecked),
		zap.Int("cells_changed", result.CellsChanged),
		zap.String("archive_uri", result.ArchiveURI),
		zap.Duration("duration", result.Duration),
	)
	e.emit(progress.Event{
		RunID:   runID,
		TS:      e.clock.Now(),
		Stage:   progress.StageDomainDone,
		Domain:  target.Domain,
		Changed: result.CellsChanged,
		Dur:     result.Duration,
	})
	return result
}

func (e *Engine) sync(ctx context.Context, logger *zap.Logger, runID string, target rank.Target, ref sheet.Ref, result *rank.DomainResult) error {
	grid, err := e.store.ReadGrid(ctx, ref)
	if err != nil {
		return fmt.Errorf("read worksheet: %w", err)
	}
	if len(grid) <= 1 {
		logger.Warn("worksheet has no keyword rows, nothing to sync")
		return nil
	}

	snap, err := sheet.ParseSnapshot(grid, e.domains)
	if err != nil {
		return fmt.Errorf("parse worksheet: %w", err)
	}
	if _, ok := snap.ColumnFor(target.Domain); !ok {
		return fmt.Errorf("reference column %q not found in worksheet", target.Domain)
	}

	results := make(map[string]map[string]rank.Result)
	for _, row := range snap.Rows {
		if row.Keyword == "" {
			continue
		}
		if _, done := results[row.Keyword]; done {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("sync interrupted: %w", ctxErr)
		}

		lookupStart := e.clock.Now()
		res, err := e.source.Rankings(ctx, row.Keyword, snap.Domains())
		if err != nil {
			return fmt.Errorf("keyword %q: %w", row.Keyword, err)
		}
		results[row.Keyword] = res
		result.KeywordsChecked++

		r := res[target.Domain]
		e.emit(progress.Event{
			RunID:    runID,
			TS:       e.clock.Now(),
			Stage:    progress.StageKeywordChecked,
			Domain:   target.Domain,
			Keyword:  row.Keyword,
			Position: r.Position,
			Found:    r.Found,
			Dur:      e.clock.Now().Sub(lookupStart),
		})
	}

	differ := rank.Differ{Reference: target.Domain}
	plan := differ.Plan(snap, results)
	if err := e.updater.Apply(ctx, ref, plan); err != nil {
		return fmt.Errorf("apply updates: %w", err)
	}
	result.CellsChanged = len(plan.Changes)
	metrics.AddCellsChanged(target.Domain, len(plan.Changes))

	if e.archiver != nil {
		uri, err := e.archiver.ArchiveSnapshot(ctx, runID, target.Domain, snap.Header, plan.Grid)
		if err != nil {
			// Archive loss is not worth failing a sync that already landed.
			logger.Warn("archive snapshot failed", zap.Error(err))
		} else {
			result.ArchiveURI = uri
		}
	}
	return nil
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}
