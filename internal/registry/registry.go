package registry

import (
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/northroute/internal/conversation"
)

// Registry is the in-memory owner of the thread collection: at most one
// thread per canonical location key, with an enumerable view kept sorted by
// descending recency. Upsert is the only mutation path; nothing else may
// touch a thread's message sequence, which keeps the in-memory state and the
// persisted copy from diverging.
type Registry struct {
	mu       sync.Mutex
	fallback string
	threads  []conversation.Thread // sorted by descending LastUpdated
	now      func() time.Time
}

// New builds a registry from a previously loaded collection. Keys are
// canonicalized on the way in; if two loaded records collapse onto the same
// canonical key, the more recently updated one wins.
func New(initial []conversation.Thread, fallbackKey string) *Registry {
	r := &Registry{
		fallback: conversation.CanonicalKey(fallbackKey),
		now:      time.Now,
	}
	for _, th := range initial {
		th = th.Clone()
		th.LocationKey = r.canon(th.LocationKey)
		if i, ok := r.indexOf(th.LocationKey); ok {
			log.Warn().Str("location", th.LocationKey).Msg("duplicate thread key in stored state, keeping newest")
			if th.LastUpdated.After(r.threads[i].LastUpdated) {
				r.threads[i] = th
			}
			continue
		}
		r.threads = append(r.threads, th)
	}
	r.sortLocked()
	return r
}

// Upsert applies mutate to the thread for key (or to a fresh empty thread if
// none exists), stamps LastUpdated, replaces the thread in the collection,
// and re-sorts the enumerable view. It never fails; the updated thread is
// returned as a detached copy.
func (r *Registry) Upsert(key string, mutate func(conversation.Thread) conversation.Thread) conversation.Thread {
	r.mu.Lock()
	defer r.mu.Unlock()

	canon := r.canon(key)

	base := conversation.NewThread(canon)
	i, exists := r.indexOf(canon)
	if exists {
		base = r.threads[i].Clone()
	}

	next := mutate(base)
	// The mutator shapes messages, never identity or recency.
	next.LocationKey = canon
	next.LastUpdated = r.now()

	if exists {
		r.threads[i] = next
	} else {
		r.threads = append(r.threads, next)
	}
	r.sortLocked()

	return next.Clone()
}

// Find returns a detached copy of the thread for key, and whether it exists.
func (r *Registry) Find(key string) (conversation.Thread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.indexOf(r.canon(key)); ok {
		return r.threads[i].Clone(), true
	}
	return conversation.Thread{}, false
}

// ListOrderedByRecency yields threads sorted by descending LastUpdated, ties
// preserving insertion order. The sequence iterates over a snapshot, so it
// is restartable and safe to hold across later upserts.
func (r *Registry) ListOrderedByRecency() iter.Seq[conversation.Thread] {
	snapshot := r.Snapshot()
	return func(yield func(conversation.Thread) bool) {
		for _, th := range snapshot {
			if !yield(th) {
				return
			}
		}
	}
}

// Snapshot deep-copies the collection in recency order, ready to hand to a
// store.
func (r *Registry) Snapshot() []conversation.Thread {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]conversation.Thread, 0, len(r.threads))
	for _, th := range r.threads {
		out = append(out, th.Clone())
	}
	return out
}

// Len reports how many threads exist.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.threads)
}

// canon maps arbitrary input to a canonical key, substituting the fallback
// for anything that trims to nothing so an empty key can never enter the
// collection.
func (r *Registry) canon(key string) string {
	if c := conversation.CanonicalKey(key); c != "" {
		return c
	}
	return r.fallback
}

func (r *Registry) indexOf(canonKey string) (int, bool) {
	for i, th := range r.threads {
		if th.LocationKey == canonKey {
			return i, true
		}
	}
	return 0, false
}

func (r *Registry) sortLocked() {
	slices.SortStableFunc(r.threads, func(a, b conversation.Thread) int {
		return b.LastUpdated.Compare(a.LastUpdated)
	})
}
