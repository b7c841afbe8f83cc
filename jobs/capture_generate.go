package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/voicebot/voicebot/internal/capture"
	jobmetrics "github.com/voicebot/voicebot/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CaptureGenerateJob instruments generation runs. It serves both the inline
// executor, as a capture.Runner, and the worker, as an Asynq handler.
type CaptureGenerateJob struct {
	Runner  capture.Runner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCaptureGenerateJob wires dependencies for the generation handler.
func NewCaptureGenerateJob(runner capture.Runner, logger *slog.Logger, metrics *jobmetrics.Metrics) *CaptureGenerateJob {
	return &CaptureGenerateJob{Runner: runner, Logger: logger, Metrics: metrics}
}

// Run implements capture.Runner.
func (j *CaptureGenerateJob) Run(ctx context.Context, job capture.Job) (resultErr error) {
	if j == nil || j.Runner == nil {
		return errors.New("capture generate: handler not configured")
	}
	tracker := j.metrics().Track(TaskCaptureGenerate)
	defer func() {
		// Cancellation is a user action, not a job failure.
		if errors.Is(resultErr, context.Canceled) {
			_ = tracker.End(nil)
			return
		}
		resultErr = tracker.End(resultErr)
	}()
	return j.Runner.Run(ctx, job)
}

// Handle processes TaskCaptureGenerate tasks.
func (j *CaptureGenerateJob) Handle(ctx context.Context, t *asynq.Task) error {
	var job capture.Job
	if err := json.Unmarshal(t.Payload(), &job); err != nil || job.AccountID == "" {
		return asynq.SkipRetry
	}
	if err := j.Run(ctx, job); err != nil {
		j.logger().Error("capture generate", slog.String("account_id", job.AccountID), slog.Any("error", err))
		return err
	}
	return nil
}

func (j *CaptureGenerateJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CaptureGenerateJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

var _ capture.Runner = (*CaptureGenerateJob)(nil)
