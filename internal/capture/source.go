package capture

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/voicebot/voicebot/internal/shared"
)

// Source identifies where captured audio came from.
type Source string

// Capture sources.
const (
	SourceMicrophone Source = "microphone"
	SourceFile       Source = "file"
)

// AudioInput is what a capture source yields: raw audio plus, for live
// microphone captures, the transcript the browser recognised.
type AudioInput struct {
	Source      Source
	Filename    string
	ContentType string
	Data        []byte
	Transcript  string
}

// DetectAudio returns the media type of the audio. The declared type must
// start with "audio/"; when the client declared nothing useful the content is
// sniffed instead.
func DetectAudio(data []byte, declared string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(base); err == nil {
		base = parsed
	}
	if strings.HasPrefix(base, "audio/") {
		return base, nil
	}
	if base != "" && base != "application/octet-stream" {
		return "", fmt.Errorf("%w: %s", shared.ErrUnsupportedMedia, base)
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return m.String(), nil
		}
	}
	return "", shared.ErrUnsupportedMedia
}

// Transcriber turns captured audio into text. Real speech recognition is out
// of scope; implementations delegate to the capture source.
type Transcriber interface {
	Transcribe(ctx context.Context, in AudioInput, mediaType string) (string, error)
}

// HintTranscriber uses the transcript recognised by the browser and falls
// back to a descriptive placeholder for uploads.
type HintTranscriber struct{}

// Transcribe implements Transcriber.
func (HintTranscriber) Transcribe(ctx context.Context, in AudioInput, mediaType string) (string, error) {
	if t := strings.TrimSpace(in.Transcript); t != "" {
		return t, nil
	}
	name := in.Filename
	if name == "" {
		name = "recording"
	}
	return fmt.Sprintf("Transcript unavailable for %s (%s, %.1f KB). Live transcription only runs while recording.",
		name, mediaType, float64(len(in.Data))/1024), nil
}
