package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Runner executes one generation job.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// Executor schedules generation jobs.
type Executor interface {
	Dispatch(ctx context.Context, job Job) error
	// Cancel stops the in-flight run of the account, if this executor can
	// reach it. Stale runs are also rejected by the epoch check.
	Cancel(accountID string)
}

type inflight struct {
	run    uint64
	cancel context.CancelFunc
}

// InlineExecutor runs jobs on goroutines of the current process, at most one
// per account.
type InlineExecutor struct {
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]inflight
	runs    uint64
	closed  bool
	wg      sync.WaitGroup
}

// NewInlineExecutor constructs an InlineExecutor.
func NewInlineExecutor(runner Runner, logger *slog.Logger) *InlineExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlineExecutor{runner: runner, logger: logger, running: make(map[string]inflight)}
}

// ErrExecutorClosed is returned by Dispatch after Shutdown.
var ErrExecutorClosed = errors.New("capture: executor closed")

// Dispatch starts job in the background, cancelling any earlier run of the
// same account. The request context is not inherited.
func (e *InlineExecutor) Dispatch(_ context.Context, job Job) error {
	runCtx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		cancel()
		return ErrExecutorClosed
	}
	if prev, ok := e.running[job.AccountID]; ok {
		prev.cancel()
	}
	e.runs++
	run := e.runs
	e.running[job.AccountID] = inflight{run: run, cancel: cancel}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.release(job.AccountID, run)
		defer cancel()
		if err := e.runner.Run(runCtx, job); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("generation run failed", slog.String("account_id", job.AccountID), slog.Any("error", err))
		}
	}()
	return nil
}

// Cancel implements Executor.
func (e *InlineExecutor) Cancel(accountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.running[accountID]; ok {
		cur.cancel()
		delete(e.running, accountID)
	}
}

// Shutdown cancels every run and waits for them to return or ctx to end.
func (e *InlineExecutor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	for id, cur := range e.running {
		cur.cancel()
		delete(e.running, id)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every dispatched run has returned.
func (e *InlineExecutor) Wait() {
	e.wg.Wait()
}

func (e *InlineExecutor) release(accountID string, run uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.running[accountID]; ok && cur.run == run {
		delete(e.running, accountID)
	}
}

var _ Executor = (*InlineExecutor)(nil)
