package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"

	"github.com/northroute/internal/conversation"
)

var (
	boltBucket   = []byte("thread_state")
	boltStateKey = []byte("threads")
)

// BoltStore keeps the collection under a single key in a bbolt file. Same
// durable-key model as the file store, but writes are transactional instead
// of temp-and-rename, which matters when several processes share the state.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the bbolt file at path. The
// one-second timeout turns a held file lock into an error instead of a hang.
func NewBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory %s: %w", dir, err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", path, err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context) ([]conversation.Thread, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(boltStateKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, &ReadError{Source: s.db.Path(), Cause: err}
	}
	if data == nil {
		log.Debug().Str("path", s.db.Path()).Msg("no stored thread state, starting empty")
		return nil, nil
	}

	threads, err := decodeCollection(data)
	if err != nil {
		return nil, &ReadError{Source: s.db.Path(), Cause: err}
	}

	log.Debug().Str("path", s.db.Path()).Int("threads", len(threads)).Msg("loaded thread state")
	return threads, nil
}

func (s *BoltStore) Save(_ context.Context, threads []conversation.Thread) error {
	data, err := encodeCollection(threads)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return b.Put(boltStateKey, data)
	})
	if err != nil {
		return fmt.Errorf("write thread state: %w", err)
	}

	log.Debug().Str("path", s.db.Path()).Int("threads", len(threads)).Msg("saved thread state")
	return nil
}

// Close releases the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
