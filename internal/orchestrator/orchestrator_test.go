package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antyra/ranksync/internal/progress"
	pubmem "github.com/antyra/ranksync/internal/publisher/memory"
	"github.com/antyra/ranksync/internal/rank"
	storagemem "github.com/antyra/ranksync/internal/storage/memory"
)

type fakeSyncer struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]bool
	panics  map[string]bool

	inflight    atomic.Int64
	maxInflight atomic.Int64
	delay       time.Duration
}

func (f *fakeSyncer) SyncDomain(ctx context.Context, runID string, target rank.Target) rank.DomainResult {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		prev := f.maxInflight.Load()
		if cur <= prev || f.maxInflight.CompareAndSwap(prev, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, target.Domain)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := ctx.Err(); err != nil {
		return rank.DomainResult{Domain: target.Domain, Err: err}
	}
	if f.panics[target.Domain] {
		panic("boom")
	}
	if f.failing[target.Domain] {
		return rank.DomainResult{Domain: target.Domain, Err: errors.New("sync failed")}
	}
	return rank.DomainResult{
		Domain:          target.Domain,
		Succeeded:       true,
		KeywordsChecked: 3,
		CellsChanged:    1,
		Duration:        10 * time.Millisecond,
		ArchiveURI:      "memory://rankings/" + target.Domain + "/snapshot.csv",
	}
}

func (f *fakeSyncer) domains() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type blockingSyncer struct {
	started chan string
	release chan struct{}
}

func (b *blockingSyncer) SyncDomain(_ context.Context, _ string, target rank.Target) rank.DomainResult {
	b.started <- target.Domain
	<-b.release
	return rank.DomainResult{Domain: target.Domain, Succeeded: true}
}

type captureEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (c *captureEmitter) Emit(evt progress.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) stages() []progress.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]progress.Stage, 0, len(c.events))
	for _, evt := range c.events {
		out = append(out, evt.Stage)
	}
	return out
}

type stubIDs struct {
	id  string
	err error
}

func (s stubIDs) NewID() (string, error) { return s.id, s.err }

func testTargets() []rank.Target {
	return []rank.Target{
		{Domain: "kia.lk", SheetID: 0, DisplayName: "KIA"},
		{Domain: "dimo.lk", SheetID: 101, DisplayName: "DIMO"},
		{Domain: "toyota.lk", SheetID: 202, DisplayName: "Toyota"},
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Targets: testTargets()}, Deps{})
	require.ErrorContains(t, err, "syncer is required")

	_, err = New(Config{}, Deps{Syncer: &fakeSyncer{}})
	require.ErrorContains(t, err, "at least one target is required")
}

func TestSyncRunsAllTargets(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{failing: map[string]bool{"dimo.lk": true}}
	store := storagemem.NewRunStore()
	publisher := pubmem.New()
	emitter := &captureEmitter{}

	o, err := New(
		Config{Targets: testTargets(), Concurrency: 2, Topic: "rank-sync-events"},
		Deps{Syncer: syncer, RunStore: store, Publisher: publisher, Emitter: emitter, IDs: stubIDs{id: "run-1"}},
	)
	require.NoError(t, err)

	summary, err := o.Sync(context.Background(), rank.TriggerAPI, nil)
	require.NoError(t, err)

	require.Equal(t, "run-1", summary.ID)
	require.Equal(t, rank.TriggerAPI, summary.Trigger)
	require.Equal(t, rank.RunStatusCompleted, summary.Status)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Failed)

	require.Len(t, summary.Domains, 3)
	require.Equal(t, "kia.lk", summary.Domains[0].Domain)
	require.Equal(t, "dimo.lk", summary.Domains[1].Domain)
	require.Equal(t, "toyota.lk", summary.Domains[2].Domain)
	require.True(t, summary.Domains[0].Succeeded)
	require.EqualError(t, summary.Domains[1].Err, "sync failed")

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, rank.RunStatusCompleted, run.Status)
	require.Equal(t, 2, run.Processed)
	require.Equal(t, 1, run.Failed)
	require.NotNil(t, run.Finished)

	stored, err := store.ListDomainResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	require.Equal(t, "dimo.lk", stored[1].Domain)
	require.Equal(t, "sync failed", stored[1].Error)
	require.True(t, stored[0].Succeeded)

	require.Equal(t, []progress.Stage{progress.StageRunStart, progress.StageRunDone}, emitter.stages())

	msgs := publisher.MessagesFor("rank-sync-events")
	require.Len(t, msgs, 1)
	note, ok := msgs[0].Payload.(runNotification)
	require.True(t, ok)
	require.Equal(t, "run-1", note.RunID)
	require.Equal(t, "completed", note.Status)
	require.Equal(t, 1, note.Failed)
	require.Len(t, note.Domains, 3)
	require.Equal(t, "sync failed", note.Domains[1].Error)
}

func TestSyncSelectsAndDeduplicatesDomains(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{}
	o, err := New(Config{Targets: testTargets()}, Deps{Syncer: syncer})
	require.NoError(t, err)

	summary, err := o.Sync(context.Background(), rank.TriggerCLI, []string{" KIA.LK ", "kia.lk", "toyota.lk"})
	require.NoError(t, err)

	require.Len(t, summary.Domains, 2)
	require.Equal(t, "kia.lk", summary.Domains[0].Domain)
	require.Equal(t, "toyota.lk", summary.Domains[1].Domain)
	require.ElementsMatch(t, []string{"kia.lk", "toyota.lk"}, syncer.domains())
}

func TestSyncRejectsUnknownDomain(t *testing.T) {
	t.Parallel()

	o, err := New(Config{Targets: testTargets()}, Deps{Syncer: &fakeSyncer{}})
	require.NoError(t, err)

	_, err = o.Sync(context.Background(), rank.TriggerAPI, []string{"kia.lk", "bmw.lk"})
	require.ErrorIs(t, err, ErrUnknownDomain)
	require.False(t, o.Active())
}

func TestSyncRejectsBlankDomainList(t *testing.T) {
	t.Parallel()

	o, err := New(Config{Targets: testTargets()}, Deps{Syncer: &fakeSyncer{}})
	require.NoError(t, err)

	_, err = o.Sync(context.Background(), rank.TriggerAPI, []string{" ", ""})
	require.ErrorIs(t, err, ErrNoDomains)
}

func TestStartRejectsConcurrentRuns(t *testing.T) {
	t.Parallel()

	syncer := &blockingSyncer{started: make(chan string, 1), release: make(chan struct{})}
	o, err := New(Config{Targets: testTargets()[:1]}, Deps{Syncer: syncer})
	require.NoError(t, err)

	_, done, err := o.Start(context.Background(), rank.TriggerAPI, nil)
	require.NoError(t, err)
	<-syncer.started
	require.True(t, o.Active())

	_, _, err = o.Start(context.Background(), rank.TriggerAPI, nil)
	require.ErrorIs(t, err, ErrRunInProgress)

	close(syncer.release)
	summary := <-done
	require.Equal(t, rank.RunStatusCompleted, summary.Status)
	require.False(t, o.Active())

	syncer.release = make(chan struct{})
	close(syncer.release)
	_, err = o.Sync(context.Background(), rank.TriggerAPI, nil)
	require.NoError(t, err)
}

func TestStartIDGenerationFailure(t *testing.T) {
	t.Parallel()

	o, err := New(Config{Targets: testTargets()}, Deps{Syncer: &fakeSyncer{}, IDs: stubIDs{err: errors.New("entropy gone")}})
	require.NoError(t, err)

	_, _, err = o.Start(context.Background(), rank.TriggerAPI, nil)
	require.ErrorContains(t, err, "generate run id")
	require.False(t, o.Active())
}

func TestSyncRecoversFromPanic(t *testing.T) {
	t.Parallel()

	syncer := &fakeSyncer{panics: map[string]bool{"dimo.lk": true}}
	o, err := New(Config{Targets: testTargets(), Concurrency: 1}, Deps{Syncer: syncer})
	require.NoError(t, err)

	summary, err := o.Sync(context.Background(), rank.TriggerAPI, nil)
	require.NoError(t, err)

	require.Equal(t, rank.RunStatusCompleted, summary.Status)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.ErrorContains(t, summary.Domains[1].Err, "panic: boom")
}

func TestSyncCanceledContextMarksRunCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := storagemem.NewRunStore()
	o, err := New(Config{Targets: testTargets()}, Deps{Syncer: &fakeSyncer{}, RunStore: store, IDs: stubIDs{id: "run-2"}})
	require.NoError(t, err)

	summary, err := o.Sync(ctx, rank.TriggerSchedule, nil)
	require.NoError(t, err)
	require.Equal(t, rank.RunStatusCanceled, summary.Status)
	require.Equal(t, 3, summary.Failed)

	run, err := store.GetRun(context.Background(), "run-2")
	require.NoError(t, err)
	require.Equal(t, rank.RunStatusCanceled, run.Status)
}

func TestRunPoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	targets := []rank.Target{
		{Domain: "a.lk"}, {Domain: "b.lk"}, {Domain: "c.lk"}, {Domain: "d.lk"},
	}
	syncer := &fakeSyncer{delay: 20 * time.Millisecond}
	o, err := New(Config{Targets: targets, Concurrency: 2}, Deps{Syncer: syncer})
	require.NoError(t, err)

	summary, err := o.Sync(context.Background(), rank.TriggerAPI, nil)
	require.NoError(t, err)

	require.Equal(t, 4, summary.Processed)
	require.Len(t, syncer.domains(), 4)
	require.LessOrEqual(t, syncer.maxInflight.Load(), int64(2))
}
