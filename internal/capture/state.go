package capture

import (
	"errors"
	"time"

	"github.com/voicebot/voicebot/internal/shared"
)

// ErrStaleRun is returned when a generation run no longer owns the state,
// because the account reset or captured new audio after the run started.
var ErrStaleRun = errors.New("capture: stale generation run")

// State is the per-account wizard state.
type State struct {
	Stage      Stage     `json:"stage"`
	Source     Source    `json:"source,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	MediaType  string    `json:"mediaType,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Analysis   string    `json:"analysis,omitempty"`
	OutputID   string    `json:"outputId,omitempty"`
	Epoch      uint64    `json:"epoch"`
	Running    bool      `json:"running"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// captured moves to Transcribed with fresh derived data. Any earlier run is
// invalidated by the new epoch.
func (s State) captured(src Source, filename, mediaType, transcript string, now time.Time) State {
	return State{
		Stage:      StageTranscribed,
		Source:     src,
		Filename:   filename,
		MediaType:  mediaType,
		Transcript: transcript,
		Epoch:      s.Epoch + 1,
		UpdatedAt:  now,
	}
}

// beginGenerate marks a run in flight. A run starts from Transcribed, or
// resumes from Analyzed when an earlier run stopped before synthesis.
func (s State) beginGenerate(now time.Time) (State, error) {
	switch {
	case s.Stage == StageIdle:
		return s, shared.ErrNotCaptured
	case s.Running:
		return s, shared.ErrGenerationRunning
	case s.Stage == StageSynthesized:
		return s, shared.ErrAlreadySynthesized
	}
	s.Running = true
	s.UpdatedAt = now
	return s, nil
}

// advance moves the run owning epoch one stage forward, recording payload as
// the analysis text or the output id.
func (s State) advance(epoch uint64, to Stage, payload string, now time.Time) (State, error) {
	if s.Epoch != epoch || !s.Running {
		return s, ErrStaleRun
	}
	next, ok := s.Stage.Next()
	if !ok || next != to {
		return s, ErrStaleRun
	}
	s.Stage = to
	switch to {
	case StageAnalyzed:
		s.Analysis = payload
	case StageSynthesized:
		s.OutputID = payload
		s.Running = false
	}
	s.UpdatedAt = now
	return s, nil
}

// abandon clears the running flag of a run that stopped early.
func (s State) abandon(epoch uint64, now time.Time) (State, error) {
	if s.Epoch != epoch || !s.Running {
		return s, ErrStaleRun
	}
	s.Running = false
	s.UpdatedAt = now
	return s, nil
}

// reset returns to Idle, clearing every derived field.
func (s State) reset(now time.Time) State {
	return State{Stage: StageIdle, Epoch: s.Epoch + 1, UpdatedAt: now}
}
