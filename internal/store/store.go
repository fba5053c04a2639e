package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/northroute/internal/conversation"
)

// schemaVersion is written into every serialized collection. Readers accept
// any version >= 1 plus the legacy unversioned bare-array layout.
const schemaVersion = 1

// Store is the persistence surface for the thread collection. It is an
// explicitly constructed handle passed to whoever owns the registry; there
// is no package-level default. Implementations must treat unreadable or
// malformed stored data as "no prior state": return an empty collection and
// a *ReadError the caller logs and swallows.
type Store interface {
	Load(ctx context.Context) ([]conversation.Thread, error)
	Save(ctx context.Context, threads []conversation.Thread) error
}

// ReadError reports stored data that could not be decoded. Callers recover
// by starting from an empty collection; the error exists only for logging.
type ReadError struct {
	Source string
	Cause  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("unreadable thread state in %s: %v", e.Source, e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }

type envelope struct {
	Version int                   `json:"version"`
	Threads []conversation.Thread `json:"threads"`
}

// encodeCollection serializes threads into the versioned container.
func encodeCollection(threads []conversation.Thread) ([]byte, error) {
	env := envelope{Version: schemaVersion, Threads: threads}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode thread collection: %w", err)
	}
	return data, nil
}

// decodeCollection parses stored bytes. It understands the versioned
// envelope and, for compatibility with state written before versioning, a
// bare JSON array of thread records.
func decodeCollection(data []byte) ([]conversation.Thread, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Version >= 1 {
		return env.Threads, nil
	}

	var legacy []conversation.Thread
	if err := json.Unmarshal(data, &legacy); err == nil {
		return legacy, nil
	}

	return nil, fmt.Errorf("data is neither a versioned envelope nor a thread array")
}
