// Package capture implements the audio capture wizard: a per-account state
// machine (Idle → Transcribed → Analyzed → Synthesized), the generation
// pipeline that drives it and the HTTP surface the dashboard talks to.
package capture

import "fmt"

// Stage marks how far an account has progressed through the wizard.
type Stage int

// Stages in order. A stage only advances one step at a time or resets to
// StageIdle.
const (
	StageIdle Stage = iota
	StageTranscribed
	StageAnalyzed
	StageSynthesized
)

var stageNames = [...]string{"idle", "transcribed", "analyzed", "synthesized"}

func (s Stage) String() string {
	if s < StageIdle || s > StageSynthesized {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Next returns the stage that follows s.
func (s Stage) Next() (Stage, bool) {
	if s < StageIdle || s >= StageSynthesized {
		return s, false
	}
	return s + 1, true
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	if s < StageIdle || s > StageSynthesized {
		return nil, fmt.Errorf("capture: invalid stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	for i, name := range stageNames {
		if name == string(text) {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("capture: unknown stage %q", text)
}
