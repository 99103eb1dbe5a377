package memory

import (
	"context"
	"testing"
	"time"

	"github.com/antyra/ranksync/internal/rank"
)

func TestRunStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	started := time.Unix(1700000000, 0).UTC()

	run := rank.Run{ID: "run-1", Trigger: rank.TriggerCLI, Status: rank.RunStatusRunning, Started: started}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := store.CreateRun(ctx, run); err == nil {
		t.Fatal("expected duplicate run error")
	}

	if err := store.RecordDomainResult(ctx, rank.StoredDomainResult{RunID: "run-1", Domain: "kia.lk", Succeeded: true}); err != nil {
		t.Fatalf("RecordDomainResult() error = %v", err)
	}

	finished := started.Add(time.Minute)
	if err := store.CompleteRun(ctx, "run-1", rank.RunStatusCompleted, 1, 0, finished); err != nil {
		t.Fatalf("CompleteRun() error = %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != rank.RunStatusCompleted || got.Processed != 1 {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.Finished == nil || !got.Finished.Equal(finished) {
		t.Fatalf("unexpected finish time %v", got.Finished)
	}

	results, err := store.ListDomainResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListDomainResults() error = %v", err)
	}
	if len(results) != 1 || results[0].Domain != "kia.lk" {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestRunStoreNotFound(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "missing"); err != rank.ErrRunNotFound {
		t.Fatalf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	if err := store.CompleteRun(ctx, "missing", rank.RunStatusCompleted, 0, 0, time.Now()); err != rank.ErrRunNotFound {
		t.Fatalf("CompleteRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestRunStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewRunStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	for i, id := range []string{"run-1", "run-2", "run-3"} {
		err := store.CreateRun(ctx, rank.Run{
			ID:      id,
			Trigger: rank.TriggerSchedule,
			Status:  rank.RunStatusRunning,
			Started: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("CreateRun(%s) error = %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-3" || runs[1].ID != "run-2" {
		t.Fatalf("unexpected order %+v", runs)
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unexpected length %d", len(all))
	}
}
