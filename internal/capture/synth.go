package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Analyzer produces the analysis text shown in step two.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (string, error)
}

// Synthesizer renders text into WAV audio for step three.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SimulatedAnalyzer returns a canned analysis; there is no model behind it.
type SimulatedAnalyzer struct{}

// Analyze implements Analyzer.
func (SimulatedAnalyzer) Analyze(ctx context.Context, transcript string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	words := len(strings.Fields(transcript))
	return fmt.Sprintf("AI Analysis completed successfully. The audio content has been processed and analyzed for key insights, sentiment, and important information (%d words reviewed).", words), nil
}

// ToneSynthesizer renders a sine tone whose length follows the text length.
// It stands in for speech synthesis.
type ToneSynthesizer struct {
	SampleRate int
	Frequency  float64
	PerWord    time.Duration
	MinLength  time.Duration
	MaxLength  time.Duration
}

// NewToneSynthesizer returns a synthesizer with demo defaults.
func NewToneSynthesizer() ToneSynthesizer {
	return ToneSynthesizer{
		SampleRate: 16000,
		Frequency:  440,
		PerWord:    150 * time.Millisecond,
		MinLength:  time.Second,
		MaxLength:  8 * time.Second,
	}
}

// Synthesize implements Synthesizer, returning 16-bit mono PCM WAV.
func (t ToneSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	length := time.Duration(len(strings.Fields(text))) * t.PerWord
	if length < t.MinLength {
		length = t.MinLength
	}
	if t.MaxLength > 0 && length > t.MaxLength {
		length = t.MaxLength
	}
	samples := int(length.Seconds() * float64(t.SampleRate))
	fade := t.SampleRate / 20
	pcm := make([]int, samples)
	for i := range pcm {
		amp := 0.3
		if i < fade {
			amp *= float64(i) / float64(fade)
		} else if samples-i < fade {
			amp *= float64(samples-i) / float64(fade)
		}
		v := amp * math.Sin(2*math.Pi*t.Frequency*float64(i)/float64(t.SampleRate))
		pcm[i] = int(v * math.MaxInt16)
	}
	return encodeWAV(pcm, t.SampleRate)
}

func encodeWAV(pcm []int, sampleRate int) ([]byte, error) {
	out := &seekBuffer{}
	enc := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           pcm,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("capture: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("capture: encode wav: %w", err)
	}
	return out.buf, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		b.buf = append(b.buf, make([]byte, end-len(b.buf))...)
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("capture: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("capture: negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
