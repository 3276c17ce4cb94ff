package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/genomehubs/backfill/pkg/backfill/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Category
	}{
		{
			name: "discovery transport failure is transient",
			err:  &errors.DiscoveryError{RootID: "GCA_000222935", Message: "connection refused"},
			want: errors.CategoryTransient,
		},
		{
			name: "discovery 503 is transient",
			err:  &errors.DiscoveryError{RootID: "GCA_000222935", StatusCode: 503, Message: "unavailable"},
			want: errors.CategoryTransient,
		},
		{
			name: "fetch 429 is transient",
			err:  &errors.FetchError{VersionID: "GCA_000222935.1", StatusCode: 429, Message: "rate limited"},
			want: errors.CategoryTransient,
		},
		{
			name: "fetch 404 is not found",
			err:  &errors.FetchError{VersionID: "GCA_000222935.1", StatusCode: 404, Message: "no such accession"},
			want: errors.CategoryNotFound,
		},
		{
			name: "not found error",
			err:  &errors.NotFoundError{VersionID: "GCA_000222935.1"},
			want: errors.CategoryNotFound,
		},
		{
			name: "fetch 400 is permanent",
			err:  &errors.FetchError{VersionID: "bogus", StatusCode: 400, Message: "bad accession"},
			want: errors.CategoryPermanent,
		},
		{
			name: "checkpoint IO error is permanent",
			err:  &errors.CheckpointIOError{Op: "flush", Path: "/tmp/cp.json", Err: stderrors.New("disk full")},
			want: errors.CategoryPermanent,
		},
		{
			name: "unknown error is permanent",
			err:  stderrors.New("something else"),
			want: errors.CategoryPermanent,
		},
		{
			name: "wrapped fetch error keeps its category",
			err:  fmt.Errorf("processing root: %w", &errors.FetchError{VersionID: "GCA_1.1", StatusCode: 500}),
			want: errors.CategoryTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Categorize(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, errors.IsRetryable(&errors.DiscoveryError{Message: "timeout"}))
	assert.False(t, errors.IsRetryable(&errors.NotFoundError{VersionID: "GCA_1.1"}))
	assert.False(t, errors.IsRetryable(stderrors.New("unknown")))
}

func TestWithRetryContext_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := errors.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}

	calls := 0
	result := errors.WithRetryContext(context.Background(), cfg, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &errors.FetchError{VersionID: "GCA_1.1", Message: "timeout"}
		}
		return "payload", nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, "payload", result.Value)
	assert.Equal(t, 3, result.Attempts)
}

func TestWithRetryContext_NotFoundShortCircuits(t *testing.T) {
	calls := 0
	result := errors.WithRetryContext(context.Background(), errors.DefaultRetry, func(context.Context) (string, error) {
		calls++
		return "", &errors.NotFoundError{VersionID: "GCA_1.1"}
	})

	require.Error(t, result.Err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.IsNotFound(result.Err))
}

func TestWithRetryContext_ExhaustsAttempts(t *testing.T) {
	cfg := errors.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  1.5,
	}

	calls := 0
	result := errors.WithRetryContext(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, &errors.DiscoveryError{RootID: "GCA_1", Message: "unreachable"}
	})

	require.Error(t, result.Err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts)

	var catErr *errors.CategorizedError
	require.ErrorAs(t, result.Err, &catErr)
	assert.Equal(t, errors.CategoryTransient, catErr.Category)
	assert.Equal(t, 3, catErr.Retries)

	var discErr *errors.DiscoveryError
	assert.ErrorAs(t, result.Err, &discErr)
}

func TestWithRetryContext_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := errors.WithRetryContext(ctx, errors.DefaultRetry, func(context.Context) (int, error) {
		t.Fatal("should not be called with a cancelled context")
		return 0, nil
	})

	require.Error(t, result.Err)
	assert.Equal(t, 0, result.Attempts)
}

func TestCategorizedError_Message(t *testing.T) {
	err := &errors.CategorizedError{
		Err:      &errors.FetchError{VersionID: "GCA_1.2", StatusCode: 502, Message: "bad gateway"},
		Category: errors.CategoryTransient,
		Retries:  3,
		Context:  "max retries exceeded",
	}
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Contains(t, err.Error(), "transient")
	assert.Contains(t, err.Error(), "attempts: 3")
}
