package capture

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateAnalyzer blocks until released or cancelled.
type gateAnalyzer struct {
	entered chan struct{}
	release chan struct{}
}

func newGateAnalyzer() *gateAnalyzer {
	return &gateAnalyzer{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gateAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
		return "analysis of " + transcript, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type failingSynth struct{}

func (failingSynth) Synthesize(context.Context, string) ([]byte, error) {
	return nil, errors.New("tts offline")
}

func newPipeline(t *testing.T, store Store) *Pipeline {
	t.Helper()
	outputs, err := NewAudioStore(t.TempDir())
	require.NoError(t, err)
	return &Pipeline{
		Store:       store,
		Analyzer:    SimulatedAnalyzer{},
		Synthesizer: NewToneSynthesizer(),
		Outputs:     outputs,
	}
}

func startRun(t *testing.T, store Store, accountID string) Job {
	t.Helper()
	ctx := context.Background()
	_, err := store.Update(ctx, accountID, func(cur State) (State, error) {
		return cur.captured(SourceFile, "a.wav", "audio/wav", "hello world", t0), nil
	})
	require.NoError(t, err)
	st, err := store.Update(ctx, accountID, func(cur State) (State, error) {
		return cur.beginGenerate(t0)
	})
	require.NoError(t, err)
	return Job{AccountID: accountID, Epoch: st.Epoch}
}

func TestPipelineRunsToSynthesized(t *testing.T) {
	store := newRedisStore(t)
	p := newPipeline(t, store)
	var stages []Stage
	p.OnStage = func(s Stage) { stages = append(stages, s) }
	job := startRun(t, store, "acct")

	require.NoError(t, p.Run(context.Background(), job))

	st, err := store.Load(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, StageSynthesized, st.Stage)
	assert.False(t, st.Running)
	assert.Contains(t, st.Analysis, "AI Analysis completed successfully")
	assert.Equal(t, []Stage{StageAnalyzed, StageSynthesized}, stages)

	f, err := p.Outputs.Open(st.OutputID)
	require.NoError(t, err)
	defer f.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(f, head)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(head))
}

func TestPipelineStopsQuietlyAfterReset(t *testing.T) {
	store := newRedisStore(t)
	p := newPipeline(t, store)
	gate := newGateAnalyzer()
	p.Analyzer = gate
	job := startRun(t, store, "acct")

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), job) }()
	<-gate.entered

	_, err := store.Update(context.Background(), "acct", func(cur State) (State, error) {
		return cur.reset(t0), nil
	})
	require.NoError(t, err)
	close(gate.release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
	st, err := store.Load(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, StageIdle, st.Stage)
	assert.Empty(t, st.Analysis)
}

func TestPipelineCancellationClearsRunning(t *testing.T) {
	store := newRedisStore(t)
	p := newPipeline(t, store)
	gate := newGateAnalyzer()
	p.Analyzer = gate
	job := startRun(t, store, "acct")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, job) }()
	<-gate.entered
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	st, err := store.Load(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, StageTranscribed, st.Stage)
	assert.False(t, st.Running)
}

func TestPipelineFailureKeepsAnalysis(t *testing.T) {
	store := newRedisStore(t)
	p := newPipeline(t, store)
	p.Synthesizer = failingSynth{}
	job := startRun(t, store, "acct")

	require.Error(t, p.Run(context.Background(), job))

	st, err := store.Load(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, StageAnalyzed, st.Stage)
	assert.False(t, st.Running)
	assert.NotEmpty(t, st.Analysis)
}
