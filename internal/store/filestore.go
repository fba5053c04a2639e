package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/northroute/internal/conversation"
)

// FileStore keeps the whole collection in a single JSON document on disk:
// the single-durable-key model with a file path as the key. Writes go
// through a temp file and rename so a crash mid-save never leaves a
// half-written state file behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store persisting to path. The file and its parent
// directory are created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) ([]conversation.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.Debug().Str("path", s.path).Msg("no stored thread state, starting empty")
		return nil, nil
	}
	if err != nil {
		return nil, &ReadError{Source: s.path, Cause: err}
	}

	threads, err := decodeCollection(data)
	if err != nil {
		return nil, &ReadError{Source: s.path, Cause: err}
	}

	log.Debug().Str("path", s.path).Int("threads", len(threads)).Msg("loaded thread state")
	return threads, nil
}

func (s *FileStore) Save(_ context.Context, threads []conversation.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := encodeCollection(threads)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	log.Debug().Str("path", s.path).Int("threads", len(threads)).Msg("saved thread state")
	return nil
}
