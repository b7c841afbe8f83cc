package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicebot/voicebot/internal/shared"
)

func TestToneSynthesizerWritesWAV(t *testing.T) {
	synth := NewToneSynthesizer()
	data, err := synth.Synthesize(context.Background(), strings.Repeat("word ", 20))
	require.NoError(t, err)

	require.Greater(t, len(data), 44)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.EqualValues(t, len(data)-8, binary.LittleEndian.Uint32(data[4:8]))

	// 20 words at 150ms each.
	assert.Equal(t, 3*16000, decodeSamples(t, data))
}

func decodeSamples(t *testing.T, data []byte) int {
	t.Helper()
	dec := wav.NewDecoder(bytes.NewReader(data))
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.EqualValues(t, 16000, dec.SampleRate)
	assert.EqualValues(t, 16, dec.BitDepth)
	assert.EqualValues(t, 1, dec.NumChans)
	return len(buf.Data)
}

func TestSeekBufferPatchesEarlierBytes(t *testing.T) {
	b := &seekBuffer{}
	_, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	_, err = b.Seek(1, io.SeekStart)
	require.NoError(t, err)
	_, err = b.Write([]byte("XY"))
	require.NoError(t, err)
	pos, err := b.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	assert.EqualValues(t, 6, pos)
	assert.Equal(t, "aXYdef", string(b.buf))
	_, err = b.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestToneSynthesizerClampsLength(t *testing.T) {
	synth := NewToneSynthesizer()
	short, err := synth.Synthesize(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 16000, decodeSamples(t, short))

	long, err := synth.Synthesize(context.Background(), strings.Repeat("w ", 1000))
	require.NoError(t, err)
	assert.Equal(t, 8*16000, decodeSamples(t, long))
}

func TestDetectAudio(t *testing.T) {
	mt, err := DetectAudio(nil, "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", mt)

	mt, err = DetectAudio([]byte{1}, "Audio/WebM; codecs=opus")
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", mt)

	mt, err = DetectAudio(wavClip, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", mt)

	_, err = DetectAudio([]byte("%PDF-1.4"), "application/pdf")
	assert.ErrorIs(t, err, shared.ErrUnsupportedMedia)

	_, err = DetectAudio([]byte("plain words"), "")
	assert.ErrorIs(t, err, shared.ErrUnsupportedMedia)
}

func TestSimulatedAnalyzerCountsWords(t *testing.T) {
	out, err := SimulatedAnalyzer{}.Analyze(context.Background(), "one two three")
	require.NoError(t, err)
	assert.Contains(t, out, "(3 words reviewed)")
}

func TestAudioStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewAudioStore(dir)
	require.NoError(t, err)

	id := uuid.NewString()
	require.NoError(t, store.Save(id, []byte("RIFF")))
	f, err := store.Open(id)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = store.Open("../../etc/passwd")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = store.Open(uuid.NewString())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	old := uuid.NewString()
	require.NoError(t, store.Save(old, []byte("RIFF")))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old+".wav"), past, past))

	staleTmp := filepath.Join(dir, ".tmp-123")
	freshTmp := filepath.Join(dir, ".tmp-456")
	require.NoError(t, os.WriteFile(staleTmp, []byte("RI"), 0o644))
	require.NoError(t, os.WriteFile(freshTmp, []byte("RI"), 0o644))
	require.NoError(t, os.Chtimes(staleTmp, past, past))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "notes.txt"), past, past))

	removed, err := store.Sweep(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, staleTmp)
	assert.FileExists(t, freshTmp)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	_, err = store.Open(old)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = store.Open(id)
	assert.NoError(t, err)

	require.NoError(t, store.Delete(id))
	require.NoError(t, store.Delete(id), "deleting twice is fine")
}
