package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/voicebot/voicebot/internal/jobs"
)

// Sweeper removes outputs older than a cutoff.
type Sweeper interface {
	Sweep(cutoff time.Time) (int, error)
}

// AudioSweepJob deletes synthesised outputs past their retention.
type AudioSweepJob struct {
	Store     Sweeper
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAudioSweepJob wires dependencies for the sweep handler.
func NewAudioSweepJob(store Sweeper, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *AudioSweepJob {
	return &AudioSweepJob{
		Store:     store,
		Retention: retention,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run sweeps once.
func (j *AudioSweepJob) Run(ctx context.Context) (resultErr error) {
	if j == nil || j.Store == nil {
		return errors.New("audio sweep: handler not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tracker := j.metrics().Track(TaskAudioSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	removed, err := j.Store.Sweep(j.now().Add(-j.Retention))
	j.metrics().AddSwept(removed)
	if err != nil {
		j.logger().Error("audio sweep", slog.Int("removed", removed), slog.Any("error", err))
		return err
	}
	if removed > 0 {
		j.logger().Info("audio sweep completed", slog.Int("removed", removed))
	}
	return nil
}

// Handle processes TaskAudioSweep tasks.
func (j *AudioSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AudioSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	return j.Run(ctx)
}

// Loop sweeps every interval until ctx ends. Used when no worker process
// runs the scheduled task.
func (j *AudioSweepJob) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

func (j *AudioSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *AudioSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AudioSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
