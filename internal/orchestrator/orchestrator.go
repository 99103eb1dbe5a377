// Package orchestrator coordinates sync runs: it fans domain jobs out over
// a bounded worker pool, persists run history, and publishes completion
// notifications.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/antyra/ranksync/internal/clock/system"
	"github.com/antyra/ranksync/internal/id/uuid"
	"github.com/antyra/ranksync/internal/progress"
	"github.com/antyra/ranksync/internal/rank"
)

// Sentinel errors surfaced to callers.
var (
	ErrRunInProgress = errors.New("a sync run is already in progress")
	ErrUnknownDomain = errors.New("unknown domain")
	ErrNoDomains     = errors.New("no domains selected")
)

const defaultConcurrency = 5

// Syncer executes one domain's worksheet sync.
type Syncer interface {
	SyncDomain(ctx context.Context, runID string, target rank.Target) rank.DomainResult
}

// Config fixes the target set and pool shape for an Orchestrator.
type Config struct {
	Targets     []rank.Target
	Concurrency int
	// Topic names the notification topic for finished runs.
	Topic string
}

// Deps carries the orchestrator's collaborators. RunStore, Publisher, and
// Emitter may be nil; persistence and notification then turn into no-ops.
type Deps struct {
	Syncer    Syncer
	RunStore  rank.RunStore
	Publisher rank.Publisher
	Emitter   progress.Emitter
	IDs       rank.IDGenerator
	Clock     rank.Clock
	Logger    *zap.Logger
}

// Orchestrator runs at most one sync run at a time.
type Orchestrator struct {
	cfg       Config
	syncer    Syncer
	store     rank.RunStore
	publisher rank.Publisher
	emitter   progress.Emitter
	ids       rank.IDGenerator
	clock     rank.Clock
	logger    *zap.Logger

	mu      sync.Mutex
	running bool
}

// New validates the config and builds an Orchestrator.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Syncer == nil {
		return nil, fmt.Errorf("syncer is required")
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("at least one target is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if deps.IDs == nil {
		deps.IDs = uuid.NewUUIDGenerator()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:       cfg,
		syncer:    deps.Syncer,
		store:     deps.RunStore,
		publisher: deps.Publisher,
		emitter:   deps.Emitter,
		ids:       deps.IDs,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}, nil
}

// Active reports whether a run is currently executing.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Start launches a run over the selected domains (all targets when domains
// is empty) and returns immediately. The summary arrives on the returned
// channel once the run finishes. Only one run may execute at a time;
// concurrent attempts fail with ErrRunInProgress.
func (o *Orchestrator) Start(ctx context.Context, trigger rank.RunTrigger, domains []string) (string, <-chan rank.RunSummary, error) {
	targets, err := o.selectTargets(domains)
	if err != nil {
		return "", nil, err
	}
	if !o.claim() {
		return "", nil, ErrRunInProgress
	}

	runID, err := o.ids.NewID()
	if err != nil {
		o.release()
		return "", nil, fmt.Errorf("generate run id: %w", err)
	}

	run := rank.Run{
		ID:      runID,
		Trigger: trigger,
		Status:  rank.RunStatusRunning,
		Started: o.clock.Now(),
	}
	if o.store != nil {
		// A history outage should not block the sync itself.
		if err := o.store.CreateRun(ctx, run); err != nil {
			o.logger.Warn("record run start failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	done := make(chan rank.RunSummary, 1)
	go func() {
		defer o.release()
		done <- o.execute(ctx, run, targets)
	}()
	return runID, done, nil
}

// Sync launches a run and blocks until it finishes.
func (o *Orchestrator) Sync(ctx context.Context, trigger rank.RunTrigger, domains []string) (rank.RunSummary, error) {
	_, done, err := o.Start(ctx, trigger, domains)
	if err != nil {
		return rank.RunSummary{}, err
	}
	return <-done, nil
}

func (o *Orchestrator) execute(ctx context.Context, run rank.Run, targets []rank.Target) rank.RunSummary {
	logger := o.logger.With(zap.String("run_id", run.ID), zap.String("trigger", string(run.Trigger)))
	logger.Info("sync run starting", zap.Int("domains", len(targets)))
	o.emit(progress.Event{RunID: run.ID, TS: run.Started, Stage: progress.StageRunStart, Note: string(run.Trigger)})

	results := o.runPool(ctx, run.ID, targets)

	// Keep persisting even when the run context was canceled.
	persistCtx := context.WithoutCancel(ctx)

	processed, failed := 0, 0
	for _, r := range results {
		if r.Succeeded {
			processed++
		} else {
			failed++
		}
		if o.store != nil {
			if err := o.store.RecordDomainResult(persistCtx, rank.StoreDomainResult(run.ID, r)); err != nil {
				logger.Warn("record domain result failed", zap.String("domain", r.Domain), zap.Error(err))
			}
		}
	}

	finished := o.clock.Now()
	status := rank.RunStatusCompleted
	if ctx.Err() != nil {
		status = rank.RunStatusCanceled
	}
	if o.store != nil {
		if err := o.store.CompleteRun(persistCtx, run.ID, status, processed, failed, finished); err != nil {
			logger.Warn("record run completion failed", zap.Error(err))
		}
	}

	summary := rank.RunSummary{
		ID:        run.ID,
		Trigger:   run.Trigger,
		Status:    status,
		Started:   run.Started,
		Finished:  finished,
		Domains:   results,
		Processed: processed,
		Failed:    failed,
	}

	o.emit(progress.Event{
		RunID: run.ID,
		TS:    finished,
		Stage: progress.StageRunDone,
		Dur:   finished.Sub(run.Started),
		Note:  string(status),
	})
	logger.Info("sync run finished",
		zap.String("status", string(status)),
		zap.Int("processed", processed),
		zap.Int("failed", failed),
		zap.Duration("duration", finished.Sub(run.Started)),
	)

	o.notify(persistCtx, summary)
	return summary
}

// runPool executes the targets over a bounded pool. Results land at their
// target's index, so output order matches input order regardless of which
// worker finished first.
func (o *Orchestrator) runPool(ctx context.Context, runID string, targets []rank.Target) []rank.DomainResult {
	width := o.cfg.Concurrency
	if width > len(targets) {
		width = len(targets)
	}

	jobs := make(chan int)
	results := make([]rank.DomainResult, len(targets))
	var wg sync.WaitGroup
	for w := 0; w < width; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = o.runDomain(ctx, runID, targets[idx])
			}
		}()
	}
	for idx := range targets {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return results
}

// runDomain isolates one domain job: a panic becomes a failed result
// instead of tearing the run down.
func (o *Orchestrator) runDomain(ctx context.Context, runID string, target rank.Target) (result rank.DomainResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("domain sync panicked",
				zap.String("run_id", runID),
				zap.String("domain", target.Domain),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result = rank.DomainResult{Domain: target.Domain, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return o.syncer.SyncDomain(ctx, runID, target)
}

func (o *Orchestrator) selectTargets(domains []string) ([]rank.Target, error) {
	if len(domains) == 0 {
		return append([]rank.Target(nil), o.cfg.Targets...), nil
	}
	byDomain := make(map[string]rank.Target, len(o.cfg.Targets))
	for _, t := range o.cfg.Targets {
		byDomain[strings.ToLower(t.Domain)] = t
	}
	out := make([]rank.Target, 0, len(domains))
	seen := make(map[string]bool, len(domains))
	for _, domain := range domains {
		key := strings.ToLower(strings.TrimSpace(domain))
		if key == "" || seen[key] {
			continue
		}
		target, ok := byDomain[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
		}
		seen[key] = true
		out = append(out, target)
	}
	if len(out) == 0 {
		return nil, ErrNoDomains
	}
	return out, nil
}

type runNotification struct {
	RunID     string               `json:"run_id"`
	Trigger   string               `json:"trigger"`
	Status    string               `json:"status"`
	Started   time.Time            `json:"started_at"`
	Finished  time.Time            `json:"finished_at"`
	Processed int                  `json:"processed"`
	Failed    int                  `json:"failed"`
	Domains   []domainNotification `json:"domains"`
}

type domainNotification struct {
	Domain          string `json:"domain"`
	Succeeded       bool   `json:"succeeded"`
	Error           string `json:"error,omitempty"`
	KeywordsChecked int    `json:"keywords_checked"`
	CellsChanged    int    `json:"cells_changed"`
	DurationMS      int64  `json:"duration_ms"`
	ArchiveURI      string `json:"archive_uri,omitempty"`
}

// notify publishes the run summary; delivery is best effort.
func (o *Orchestrator) notify(ctx context.Context, summary rank.RunSummary) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	payload := runNotification{
		RunID:     summary.ID,
		Trigger:   string(summary.Trigger),
		Status:    string(summary.Status),
		Started:   summary.Started,
		Finished:  summary.Finished,
		Processed: summary.Processed,
		Failed:    summary.Failed,
	}
	for _, d := range summary.Domains {
		errText := ""
		if d.Err != nil {
			errText = d.Err.Error()
		}
		payload.Domains = append(payload.Domains, domainNotification{
			Domain:          d.Domain,
			Succeeded:       d.Succeeded,
			Error:           errText,
			KeywordsChecked: d.KeywordsChecked,
			CellsChanged:    d.CellsChanged,
			DurationMS:      d.Duration.Milliseconds(),
			ArchiveURI:      d.ArchiveURI,
		})
	}
	id, err := o.publisher.Publish(ctx, o.cfg.Topic, payload)
	if err != nil {
		o.logger.Warn("publish run notification failed", zap.String("run_id", summary.ID), zap.Error(err))
		return
	}
	o.logger.Debug("run notification published", zap.String("run_id", summary.ID), zap.String("message_id", id))
}

func (o *Orchestrator) emit(evt progress.Event) {
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(evt)
}

func (o *Orchestrator) claim() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return false
	}
	o.running = true
	return true
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}
