package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/antyra/ranksync/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := "0191f2f8-2c4e-7bf1-a400-000000000001"
	now := time.Now()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart},
		{RunID: runID, TS: now, Stage: progress.StageDomainStart, Domain: "kia.lk"},
		{
			RunID:    runID,
			TS:       now.Add(2 * time.Second),
			Stage:    progress.StageKeywordChecked,
			Domain:   "kia.lk",
			Keyword:  "car price",
			Position: 13,
			Found:    true,
			Dur:      200 * time.Millisecond,
		},
		{
			RunID:   runID,
			TS:      now.Add(10 * time.Second),
			Stage:   progress.StageDomainDone,
			Domain:  "kia.lk",
			Changed: 4,
			Dur:     10 * time.Second,
		},
		{RunID: runID, TS: now.Add(15 * time.Second), Stage: progress.StageRunDone, Dur: 15 * time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.domainsCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.domainsCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.domainsRunning))

	require.InDelta(
		t,
		1.0,
		testutil.ToFloat64(sink.keywordsChecked.WithLabelValues("kia.lk", "true")),
		1e-9,
	)
	require.Equal(t, 1, testutil.CollectAndCount(sink.keywordDuration, "ranksync_keyword_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.runRuntime, "ranksync_run_runtime_seconds"))
}

// TestPrometheusSinkTracksRunningDomains exercises the start/complete gauge pairing.
func TestPrometheusSinkTracksRunningDomains(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := "0191f2f8-2c4e-7bf1-a400-000000000002"
	now := time.Now()

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageDomainStart, Domain: "kia.lk"},
		{RunID: runID, TS: now, Stage: progress.StageDomainStart, Domain: "dimo.lk"},
	}))
	require.Equal(t, 2.0, testutil.ToFloat64(sink.domainsRunning))

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageDomainError, Domain: "dimo.lk", Note: "boom"},
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.domainsRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.domainsCompleted.WithLabelValues("error")))
}
