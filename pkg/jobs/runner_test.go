package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerProcessesAllKeys(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 3, MaxRetries: 1, Backoff: time.Millisecond})

	var mu sync.Mutex
	seen := make(map[string]bool)
	results := runner.Run(context.Background(), []string{"a", "b", "c", "d"}, func(ctx context.Context, key string) error {
		mu.Lock()
		seen[key] = true
		mu.Unlock()
		return nil
	})

	require.Len(t, results, 4)
	assert.Len(t, seen, 4)
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.Equal(t, 1, res.Attempts)
	}
}

func TestRunnerRetriesUntilSuccess(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 1, MaxRetries: 3, Backoff: time.Millisecond})

	var calls int32
	results := runner.Run(context.Background(), []string{"a"}, func(ctx context.Context, key string) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Attempts)
}

func TestRunnerReportsExhaustedRetries(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 1, MaxRetries: 2, Backoff: time.Millisecond})

	failure := errors.New("permanent")
	results := runner.Run(context.Background(), []string{"a", "b"}, func(ctx context.Context, key string) error {
		if key == "a" {
			return failure
		}
		return nil
	})

	require.Len(t, results, 2)
	byKey := make(map[string]Result)
	for _, res := range results {
		byKey[res.Key] = res
	}
	assert.ErrorIs(t, byKey["a"].Err, failure)
	assert.Equal(t, 2, byKey["a"].Attempts)
	assert.NoError(t, byKey["b"].Err)
}

func TestRunnerOneFailureDoesNotStopOthers(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 2, MaxRetries: 1, Backoff: time.Millisecond})

	results := runner.Run(context.Background(), []string{"ok-1", "bad", "ok-2"}, func(ctx context.Context, key string) error {
		if key == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	require.Len(t, results, 3)
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRunnerCancellationSkipsUndispatched(t *testing.T) {
	runner := NewRunner(RunnerConfig{Workers: 1, MaxRetries: 1, Backoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	keys := []string{"a", "b", "c", "d", "e"}
	results := runner.Run(ctx, keys, func(ctx context.Context, key string) error {
		cancel()
		return nil
	})

	require.Len(t, results, len(keys))
	skipped := 0
	for _, res := range results {
		if errors.Is(res.Err, context.Canceled) {
			skipped++
		}
	}
	assert.Greater(t, skipped, 0)
}

func TestRunnerEmptyKeys(t *testing.T) {
	runner := NewRunner(RunnerConfig{})
	assert.Nil(t, runner.Run(context.Background(), nil, func(ctx context.Context, key string) error {
		t.Fatal("should not be called")
		return nil
	}))
}
