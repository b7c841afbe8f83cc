package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Job asks the pipeline to generate for one account. Epoch pins the run to
// the capture it was started for.
type Job struct {
	AccountID string `json:"account_id"`
	Epoch     uint64 `json:"epoch"`
}

// Delays are the pauses between stages. Each one is a cancellation point.
type Delays struct {
	Analysis  time.Duration
	Lead      time.Duration
	Synthesis time.Duration
}

// Pipeline drives a generation run from Transcribed (or Analyzed) to
// Synthesized.
type Pipeline struct {
	Store       Store
	Analyzer    Analyzer
	Synthesizer Synthesizer
	Outputs     *AudioStore
	Delays      Delays
	OnStage     func(Stage)
	Logger      *slog.Logger
	Now         func() time.Time
}

// Run executes job. A run that lost ownership of the state (reset or new
// capture) stops quietly and returns nil; cancellation returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	logger := p.logger().With(slog.String("account_id", job.AccountID), slog.Uint64("epoch", job.Epoch))

	st, err := p.Store.Load(ctx, job.AccountID)
	if err != nil {
		return err
	}
	if st.Epoch != job.Epoch || !st.Running {
		logger.Debug("generation run superseded before start")
		return nil
	}

	analysis := st.Analysis
	if st.Stage == StageTranscribed {
		if err := sleep(ctx, p.Delays.Analysis); err != nil {
			return p.abandon(job, err)
		}
		analysis, err = p.Analyzer.Analyze(ctx, st.Transcript)
		if err != nil {
			return p.abandon(job, fmt.Errorf("capture: analyze: %w", err))
		}
		if err := p.advance(ctx, job, StageAnalyzed, analysis); err != nil {
			return p.settle(logger, job, err)
		}
	}

	if err := sleep(ctx, p.Delays.Lead); err != nil {
		return p.abandon(job, err)
	}
	if err := sleep(ctx, p.Delays.Synthesis); err != nil {
		return p.abandon(job, err)
	}
	audio, err := p.Synthesizer.Synthesize(ctx, analysis)
	if err != nil {
		return p.abandon(job, fmt.Errorf("capture: synthesize: %w", err))
	}
	outputID := uuid.NewString()
	if err := p.Outputs.Save(outputID, audio); err != nil {
		return p.abandon(job, err)
	}
	if err := p.advance(ctx, job, StageSynthesized, outputID); err != nil {
		_ = p.Outputs.Delete(outputID)
		return p.settle(logger, job, err)
	}
	logger.Info("generation completed", slog.String("output_id", outputID))
	return nil
}

func (p *Pipeline) advance(ctx context.Context, job Job, to Stage, payload string) error {
	_, err := p.Store.Update(ctx, job.AccountID, func(cur State) (State, error) {
		return cur.advance(job.Epoch, to, payload, p.now())
	})
	if err != nil {
		return err
	}
	if p.OnStage != nil {
		p.OnStage(to)
	}
	return nil
}

// settle treats a stale advance as a quiet stop.
func (p *Pipeline) settle(logger *slog.Logger, job Job, err error) error {
	if errors.Is(err, ErrStaleRun) {
		logger.Debug("generation run superseded")
		return nil
	}
	return p.abandon(job, err)
}

// abandon clears the running flag so the account can retry, then returns
// cause. The store update runs detached from ctx, which may be cancelled.
func (p *Pipeline) abandon(job Job, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := p.Store.Update(ctx, job.AccountID, func(cur State) (State, error) {
		return cur.abandon(job.Epoch, p.now())
	})
	if err != nil && !errors.Is(err, ErrStaleRun) {
		return errors.Join(cause, err)
	}
	return cause
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
