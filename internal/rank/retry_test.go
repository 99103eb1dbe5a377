package rank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedRetryPolicyShouldRetry(t *testing.T) {
	t.Parallel()

	p := NewFixedRetryPolicy(3, time.Second)
	boom := errors.New("boom")

	require.False(t, p.ShouldRetry(nil, 1))
	require.True(t, p.ShouldRetry(boom, 1))
	require.True(t, p.ShouldRetry(boom, 2))
	require.False(t, p.ShouldRetry(boom, 3))
	require.False(t, p.ShouldRetry(boom, 4))
}

func TestFixedRetryPolicyContextErrorsNotRetried(t *testing.T) {
	t.Parallel()

	p := NewFixedRetryPolicy(3, time.Second)

	require.False(t, p.ShouldRetry(context.Canceled, 1))
	require.False(t, p.ShouldRetry(context.DeadlineExceeded, 1))
	require.False(t, p.ShouldRetry(errors.Join(errors.New("wrap"), context.Canceled), 1))
}

func TestFixedRetryPolicyBackoffIsConstant(t *testing.T) {
	t.Parallel()

	p := NewFixedRetryPolicy(3, 2*time.Second)
	require.Equal(t, 2*time.Second, p.Backoff(1))
	require.Equal(t, 2*time.Second, p.Backoff(2))
}

func TestFixedRetryPolicyClamps(t *testing.T) {
	t.Parallel()

	p := NewFixedRetryPolicy(0, 0)
	require.Equal(t, time.Second, p.Backoff(1))
	require.False(t, p.ShouldRetry(errors.New("boom"), 1))
}
