package rank

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrRunNotFound is returned by RunStore lookups for unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Source resolves keyword rankings for a set of domains. A nil error with
// Failed results means the lookup exhausted its retries; a non-nil error is
// reserved for context cancellation and aborts the calling job.
type Source interface {
	Rankings(ctx context.Context, keyword string, domains []string) (map[string]Result, error)
}

// ResultCache memoizes per keyword/domain lookups for the cache TTL.
type ResultCache interface {
	Get(keyword, domain string) (Result, bool)
	Set(keyword, domain string, r Result)
}

// Pacer blocks until the next ranking API call is allowed.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RetryPolicy decides whether a failed API call is retried and how long to
// wait before the next attempt.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// BlobStore persists an object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher delivers JSON payloads to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunStore persists run headers and per-domain outcomes.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	CompleteRun(ctx context.Context, runID string, status RunStatus, processed, failed int, finished time.Time) error
	RecordDomainResult(ctx context.Context, res StoredDomainResult) error
	GetRun(ctx context.Context, runID string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListDomainResults(ctx context.Context, runID string) ([]StoredDomainResult, error)
}
