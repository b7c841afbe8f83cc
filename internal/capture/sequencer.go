package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicebot/voicebot/internal/shared"
)

// Sequencer owns the wizard transitions of every account.
type Sequencer struct {
	store       Store
	executor    Executor
	transcriber Transcriber
	logger      *slog.Logger
	now         func() time.Time
}

// NewSequencer constructs a Sequencer.
func NewSequencer(store Store, executor Executor, transcriber Transcriber, logger *slog.Logger) *Sequencer {
	if transcriber == nil {
		transcriber = HintTranscriber{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		store:       store,
		executor:    executor,
		transcriber: transcriber,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// State returns the account's current state.
func (s *Sequencer) State(ctx context.Context, accountID string) (State, error) {
	return s.store.Load(ctx, accountID)
}

// Capture records audio from a capture source and moves to Transcribed.
// Capturing again replaces the previous capture and abandons any run.
func (s *Sequencer) Capture(ctx context.Context, accountID string, in AudioInput) (State, error) {
	if len(in.Data) == 0 {
		return State{}, fmt.Errorf("%w: empty audio", shared.ErrValidation)
	}
	mediaType, err := DetectAudio(in.Data, in.ContentType)
	if err != nil {
		return State{}, err
	}
	transcript, err := s.transcriber.Transcribe(ctx, in, mediaType)
	if err != nil {
		return State{}, fmt.Errorf("capture: transcribe: %w", err)
	}

	s.executor.Cancel(accountID)
	st, err := s.store.Update(ctx, accountID, func(cur State) (State, error) {
		return cur.captured(in.Source, in.Filename, mediaType, transcript, s.now()), nil
	})
	if err != nil {
		return State{}, err
	}
	s.logger.Info("audio captured",
		slog.String("account_id", accountID),
		slog.String("source", string(in.Source)),
		slog.String("media_type", mediaType),
		slog.Int("bytes", len(in.Data)))
	return st, nil
}

// Generate starts the analysis and synthesis run. While Idle it fails with
// shared.ErrNotCaptured and leaves the state untouched; the returned state is
// always the current one.
func (s *Sequencer) Generate(ctx context.Context, accountID string) (State, error) {
	st, err := s.store.Update(ctx, accountID, func(cur State) (State, error) {
		return cur.beginGenerate(s.now())
	})
	if err != nil {
		return st, err
	}

	job := Job{AccountID: accountID, Epoch: st.Epoch}
	if err := s.executor.Dispatch(ctx, job); err != nil {
		rolled, rerr := s.store.Update(ctx, accountID, func(cur State) (State, error) {
			return cur.abandon(job.Epoch, s.now())
		})
		if rerr != nil && !errors.Is(rerr, ErrStaleRun) {
			err = errors.Join(err, rerr)
		}
		return rolled, fmt.Errorf("capture: dispatch: %w", err)
	}
	return st, nil
}

// Reset cancels any run and returns the account to Idle.
func (s *Sequencer) Reset(ctx context.Context, accountID string) (State, error) {
	s.executor.Cancel(accountID)
	return s.store.Update(ctx, accountID, func(cur State) (State, error) {
		return cur.reset(s.now()), nil
	})
}

// Forget abandons the account's capture on logout. Its signature matches
// auth.LogoutHook.
func (s *Sequencer) Forget(ctx context.Context, accountID string) error {
	_, err := s.Reset(ctx, accountID)
	return err
}
