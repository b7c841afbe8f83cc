package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voicebot/voicebot/internal/shared"
)

const (
	outputExt  = ".wav"
	tempPrefix = ".tmp-"
)

// AudioStore keeps synthesised outputs on disk, one file per output id.
type AudioStore struct {
	dir string
}

// NewAudioStore creates dir when missing.
func NewAudioStore(dir string) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create audio dir: %w", err)
	}
	return &AudioStore{dir: dir}, nil
}

// Save writes data under id atomically.
func (s *AudioStore) Save(id string, data []byte) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("capture: create temp output: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("capture: write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Open opens the output for reading.
func (s *AudioStore) Open(id string) (*os.File, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.ErrNotFound
	}
	return f, err
}

// Delete removes the output; missing files are ignored.
func (s *AudioStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Sweep deletes outputs, and temp files left by interrupted saves, last
// modified before cutoff. It returns how many files were removed.
func (s *AudioStore) Sweep(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, outputExt) || strings.HasPrefix(name, tempPrefix)) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *AudioStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: output id", shared.ErrNotFound)
	}
	return filepath.Join(s.dir, id+outputExt), nil
}
