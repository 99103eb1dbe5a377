package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/antyra/ranksync/internal/rank"
)

func TestCreateRunInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	run := rank.Run{
		ID:      "0191f2f8-2c4e-7bf1-a400-000000000001",
		Trigger: rank.TriggerAPI,
		Status:  rank.RunStatusRunning,
		Started: started,
	}

	mock.ExpectExec("INSERT INTO sync_runs").
		WithArgs(run.ID, "api", "running", started, 0, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunUpdatesRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	finished := time.Unix(1700000360, 0).UTC()
	mock.ExpectExec("UPDATE sync_runs").
		WithArgs("run-1", "completed", 3, 1, finished).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = store.CompleteRun(context.Background(), "run-1", rank.RunStatusCompleted, 3, 1, finished)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRunUnknownRun(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	finished := time.Unix(1700000360, 0).UTC()
	mock.ExpectExec("UPDATE sync_runs").
		WithArgs("missing", "canceled", 0, 0, finished).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.CompleteRun(context.Background(), "missing", rank.RunStatusCanceled, 0, 0, finished)
	require.ErrorIs(t, err, rank.ErrRunNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordDomainResultInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	result := rank.StoredDomainResult{
		RunID:           "run-1",
		Domain:          "kia.lk",
		Succeeded:       true,
		KeywordsChecked: 24,
		CellsChanged:    6,
		DurationMS:      5300,
		ArchiveURI:      "gs://bucket/rankings/kia.lk/archive.csv",
	}

	mock.ExpectExec("INSERT INTO sync_run_domains").
		WithArgs(
			result.RunID,
			result.Domain,
			result.Succeeded,
			result.Error,
			result.KeywordsChecked,
			result.CellsChanged,
			result.DurationMS,
			result.ArchiveURI,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordDomainResult(context.Background(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunScansNullableFinish(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	rows := mock.NewRows([]string{"id", "triggered_by", "status", "started_at", "finished_at", "processed", "failed"}).
		AddRow("run-1", "schedule", "running", started, nil, 0, 0)
	mock.ExpectQuery("SELECT id, triggered_by, status, started_at, finished_at, processed, failed FROM sync_runs").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, rank.TriggerSchedule, run.Trigger)
	require.Equal(t, rank.RunStatusRunning, run.Status)
	require.Equal(t, started, run.Started)
	require.Nil(t, run.Finished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, triggered_by, status, started_at, finished_at, processed, failed FROM sync_runs").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetRun(context.Background(), "missing")
	require.ErrorIs(t, err, rank.ErrRunNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(2 * time.Minute)
	rows := mock.NewRows([]string{"id", "triggered_by", "status", "started_at", "finished_at", "processed", "failed"}).
		AddRow("run-2", "api", "completed", started.Add(time.Hour), &finished, 3, 0).
		AddRow("run-1", "cli", "canceled", started, nil, 1, 1)
	mock.ExpectQuery("SELECT id, triggered_by, status, started_at, finished_at, processed, failed FROM sync_runs").
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-2", runs[0].ID)
	require.NotNil(t, runs[0].Finished)
	require.Equal(t, finished, *runs[0].Finished)
	require.Equal(t, rank.TriggerCLI, runs[1].Trigger)
	require.Nil(t, runs[1].Finished)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRunsDefaultsLimit(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	rows := mock.NewRows([]string{"id", "triggered_by", "status", "started_at", "finished_at", "processed", "failed"})
	mock.ExpectQuery("SELECT id, triggered_by, status, started_at, finished_at, processed, failed FROM sync_runs").
		WithArgs(defaultListLimit).
		WillReturnRows(rows)

	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDomainResultsScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRunStoreWithPool(mock)
	require.NoError(t, err)

	rows := mock.NewRows([]string{"run_id", "domain", "succeeded", "error", "keywords_checked", "cells_changed", "duration_ms", "archive_uri"}).
		AddRow("run-1", "kia.lk", true, "", 24, 6, int64(5300), "memory://rankings/kia.lk/a.csv").
		AddRow("run-1", "dimo.lk", false, "reference column missing", 0, 0, int64(120), "")
	mock.ExpectQuery("SELECT run_id, domain, succeeded, error, keywords_checked, cells_changed, duration_ms, archive_uri FROM sync_run_domains").
		WithArgs("run-1").
		WillReturnRows(rows)

	results, err := store.ListDomainResults(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "kia.lk", results[0].Domain)
	require.True(t, results[0].Succeeded)
	require.Equal(t, "reference column missing", results[1].Error)
	require.NoError(t, mock.ExpectationsWereMet())
}
