package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voicebot/voicebot/internal/capture"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCaptureGenerate runs the analysis and synthesis of one capture.
	TaskCaptureGenerate = "capture:generate"
	// TaskAudioSweep removes synthesised outputs past retention.
	TaskAudioSweep = "audio:sweep"
)

// generateTimeout bounds one generation run on a worker.
const generateTimeout = 2 * time.Minute

// NewCaptureGenerateTask constructs an Asynq task for job. Generation is not
// retried: a failed run clears the running flag and the user starts again.
func NewCaptureGenerateTask(job capture.Job) (*asynq.Task, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCaptureGenerate, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(0),
		asynq.Timeout(generateTimeout),
	), nil
}

// AudioSweepPayload carries scheduling metadata.
type AudioSweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewAudioSweepTask constructs an Asynq task for the retention sweep.
func NewAudioSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(AudioSweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAudioSweep, body, asynq.Queue(QueueDefault)), nil
}
