package capture

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/voicebot/internal/shared"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestStageOrder(t *testing.T) {
	next, ok := StageIdle.Next()
	require.True(t, ok)
	assert.Equal(t, StageTranscribed, next)
	_, ok = StageSynthesized.Next()
	assert.False(t, ok)

	raw, err := json.Marshal(StageAnalyzed)
	require.NoError(t, err)
	assert.JSONEq(t, `"analyzed"`, string(raw))
	var back Stage
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, StageAnalyzed, back)
	assert.Error(t, back.UnmarshalText([]byte("done")))
}

func TestGenerateRequiresCapture(t *testing.T) {
	var st State
	out, err := st.beginGenerate(t0)
	require.ErrorIs(t, err, shared.ErrNotCaptured)
	assert.Equal(t, st, out)
}

func TestHappyPathTransitions(t *testing.T) {
	var st State
	st = st.captured(SourceFile, "a.mp3", "audio/mpeg", "hello there", t0)
	assert.Equal(t, StageTranscribed, st.Stage)
	assert.EqualValues(t, 1, st.Epoch)

	st, err := st.beginGenerate(t0)
	require.NoError(t, err)
	assert.True(t, st.Running)

	_, err = st.beginGenerate(t0)
	require.ErrorIs(t, err, shared.ErrGenerationRunning)

	_, err = st.advance(st.Epoch, StageSynthesized, "x", t0)
	require.ErrorIs(t, err, ErrStaleRun, "stages cannot be skipped")

	st, err = st.advance(st.Epoch, StageAnalyzed, "analysis", t0)
	require.NoError(t, err)
	assert.Equal(t, "analysis", st.Analysis)

	st, err = st.advance(st.Epoch, StageSynthesized, "out-1", t0)
	require.NoError(t, err)
	assert.Equal(t, StageSynthesized, st.Stage)
	assert.False(t, st.Running)
	assert.Equal(t, "out-1", st.OutputID)

	_, err = st.beginGenerate(t0)
	require.ErrorIs(t, err, shared.ErrAlreadySynthesized)
}

func TestResetAndRecaptureInvalidateRun(t *testing.T) {
	var st State
	st = st.captured(SourceMicrophone, "", "audio/webm", "hi", t0)
	st, err := st.beginGenerate(t0)
	require.NoError(t, err)
	runEpoch := st.Epoch

	reset := st.reset(t0)
	assert.Equal(t, State{Stage: StageIdle, Epoch: runEpoch + 1, UpdatedAt: t0}, reset)
	_, err = reset.advance(runEpoch, StageAnalyzed, "late", t0)
	require.ErrorIs(t, err, ErrStaleRun)

	recaptured := st.captured(SourceFile, "b.wav", "audio/wav", "new", t0)
	assert.False(t, recaptured.Running)
	assert.Empty(t, recaptured.Analysis)
	_, err = recaptured.advance(runEpoch, StageAnalyzed, "late", t0)
	require.ErrorIs(t, err, ErrStaleRun)
}

func TestAbandonedRunCanResumeFromAnalyzed(t *testing.T) {
	var st State
	st = st.captured(SourceFile, "a.wav", "audio/wav", "hi", t0)
	st, _ = st.beginGenerate(t0)
	st, _ = st.advance(st.Epoch, StageAnalyzed, "analysis", t0)

	st, err := st.abandon(st.Epoch, t0)
	require.NoError(t, err)
	assert.False(t, st.Running)
	assert.Equal(t, StageAnalyzed, st.Stage)

	st, err = st.beginGenerate(t0)
	require.NoError(t, err)
	assert.True(t, st.Running)
}
