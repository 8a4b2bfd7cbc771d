package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Result reports the outcome of one unit of work.
type Result struct {
	Key      string
	Attempts int
	Err      error
}

// RunnerConfig bounds parallelism and retry behaviour.
type RunnerConfig struct {
	Workers    int
	MaxRetries int
	Backoff    time.Duration
	Logger     *zap.Logger
}

// Runner executes independent keyed units of work on a bounded worker pool,
// retrying each unit with exponential backoff. Units never share state, so a
// failing unit only surfaces in its own Result.
type Runner struct {
	workers    int
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewRunner builds a runner, applying safe defaults for zero values.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		logger:     cfg.Logger,
	}
}

// Run processes every key through fn and blocks until all units finished or
// the context was cancelled. Units not started at cancellation are reported
// with the context error so callers can tell skipped from failed.
func (r *Runner) Run(ctx context.Context, keys []string, fn func(context.Context, string) error) []Result {
	if len(keys) == 0 {
		return nil
	}

	work := make(chan string)
	results := make(chan Result, len(keys))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range work {
				results <- r.runOne(ctx, key, fn)
			}
		}()
	}

	dispatched := 0
dispatch:
	for _, key := range keys {
		select {
		case <-ctx.Done():
			break dispatch
		case work <- key:
			dispatched++
		}
	}
	close(work)
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(keys))
	for res := range results {
		out = append(out, res)
	}
	for _, key := range keys[dispatched:] {
		out = append(out, Result{Key: key, Err: ctx.Err()})
	}
	return out
}

func (r *Runner) runOne(ctx context.Context, key string, fn func(context.Context, string) error) Result {
	var err error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		err = fn(ctx, key)
		if err == nil {
			return Result{Key: key, Attempts: attempt}
		}
		if ctx.Err() != nil {
			return Result{Key: key, Attempts: attempt, Err: err}
		}
		if attempt == r.maxRetries {
			break
		}
		delay := r.backoff << (attempt - 1)
		r.logger.Sugar().Warnw("unit failed, retrying", "key", key, "attempt", attempt, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Key: key, Attempts: attempt, Err: err}
		case <-timer.C:
		}
	}
	r.logger.Sugar().Errorw("unit exceeded retries", "key", key, "attempts", r.maxRetries, "error", err)
	return Result{Key: key, Attempts: r.maxRetries, Err: err}
}
