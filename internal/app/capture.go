package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/voicebot/internal/capture"
	jobmetrics "github.com/voicebot/voicebot/internal/jobs"
)

// CaptureDeps are the pieces shared by the web and worker processes.
type CaptureDeps struct {
	Store    *capture.RedisStore
	Outputs  *capture.AudioStore
	Pipeline *capture.Pipeline
}

// NewCaptureDeps builds the capture store, output store and pipeline from cfg.
// Capture state lives as long as a session can.
func NewCaptureDeps(cfg *Config, client *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) (*CaptureDeps, error) {
	outputs, err := capture.NewAudioStore(cfg.AudioDir)
	if err != nil {
		return nil, err
	}
	store := capture.NewRedisStore(client, cfg.SessionTTL)
	pipeline := &capture.Pipeline{
		Store:       store,
		Analyzer:    capture.SimulatedAnalyzer{},
		Synthesizer: capture.NewToneSynthesizer(),
		Outputs:     outputs,
		Delays: capture.Delays{
			Analysis:  cfg.AnalysisDelay,
			Lead:      cfg.SynthesisLead,
			Synthesis: cfg.SynthesisDelay,
		},
		OnStage: func(s capture.Stage) { metrics.AddStage(s.String()) },
		Logger:  logger,
	}
	return &CaptureDeps{Store: store, Outputs: outputs, Pipeline: pipeline}, nil
}
