package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/northroute/internal/conversation"
)

// defaultSlot is the single durable key the collection lives under.
const defaultSlot = "threads"

const createThreadStateTable = `
CREATE TABLE IF NOT EXISTS thread_state (
	slot       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore persists the collection as one row in a thread_state table.
// Same contract as FileStore; selected with storage.driver = "postgres".
type PostgresStore struct {
	pool *pgxpool.Pool
	slot string
}

// NewPostgresStore connects to dsn and ensures the thread_state table
// exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if _, err := pool.Exec(ctx, createThreadStateTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure thread_state table: %w", err)
	}

	return &PostgresStore{pool: pool, slot: defaultSlot}, nil
}

func (s *PostgresStore) Load(ctx context.Context) ([]conversation.Thread, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM thread_state WHERE slot = $1`, s.slot).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debug().Str("slot", s.slot).Msg("no stored thread state, starting empty")
		return nil, nil
	}
	if err != nil {
		return nil, &ReadError{Source: "thread_state/" + s.slot, Cause: err}
	}

	threads, err := decodeCollection(payload)
	if err != nil {
		return nil, &ReadError{Source: "thread_state/" + s.slot, Cause: err}
	}

	log.Debug().Str("slot", s.slot).Int("threads", len(threads)).Msg("loaded thread state")
	return threads, nil
}

func (s *PostgresStore) Save(ctx context.Context, threads []conversation.Thread) error {
	payload, err := encodeCollection(threads)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO thread_state (slot, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		s.slot, payload)
	if err != nil {
		return fmt.Errorf("upsert thread state: %w", err)
	}

	log.Debug().Str("slot", s.slot).Int("threads", len(threads)).Msg("saved thread state")
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
