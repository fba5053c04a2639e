package router

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/northroute/internal/contextbuilder"
	"github.com/northroute/internal/conversation"
	"github.com/northroute/internal/registry"
	"github.com/northroute/internal/store"
	"github.com/northroute/pkg/schema"
)

// State is the router's position in the submit cycle.
type State string

const (
	StateIdle          State = "idle"
	StateResolving     State = "resolving"
	StateRouted        State = "routed"
	StateAwaitingReply State = "awaiting_reply"
	StateFailed        State = "failed"
)

var (
	// ErrEmptyMessage rejects submissions that trim to nothing.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrSubmissionInFlight rejects a submit while another is outstanding.
	// Submissions are serialized, never queued.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	// ErrSubmissionCanceled reports that the session was reset while this
	// submission's network call was outstanding; its result was discarded.
	ErrSubmissionCanceled = errors.New("submission canceled")
)

// LocationResolver classifies a message into a location key. Implementations
// must never fail; they substitute a fallback key instead.
type LocationResolver interface {
	ResolveLocation(ctx context.Context, message string, history []schema.HistoryItem) string
}

// ReplyGenerator produces the assistant reply for a message given prior
// turns.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, message string, history []schema.HistoryItem) (string, error)
}

// Router sequences a submission end to end: resolve the location (with the
// active thread's context), route the message into the target thread,
// persist, request the reply (with the target thread's context), persist
// again. At most one submission is in flight at a time; each one carries a
// uuid so results arriving after a Reset are discarded instead of applied.
type Router struct {
	mu        sync.Mutex
	state     State
	inflight  uuid.UUID // uuid.Nil when nothing is outstanding
	active    string
	lastError error

	reg      *registry.Registry
	st       store.Store
	builder  *contextbuilder.Builder
	resolver LocationResolver
	replier  ReplyGenerator
	fallback string
}

// Config wires the router's collaborators.
type Config struct {
	Registry         *registry.Registry
	Store            store.Store
	Builder          *contextbuilder.Builder
	Resolver         LocationResolver
	Replier          ReplyGenerator
	FallbackLocation string
}

// New builds a router. The active selection starts on the most recently
// updated thread, or on the fallback key when no thread exists yet.
func New(cfg Config) *Router {
	fallback := conversation.CanonicalKey(cfg.FallbackLocation)
	if fallback == "" {
		fallback = schema.DefaultFallbackLocation
	}

	active := fallback
	for th := range cfg.Registry.ListOrderedByRecency() {
		active = th.LocationKey
		break
	}

	return &Router{
		state:    StateIdle,
		active:   active,
		reg:      cfg.Registry,
		st:       cfg.Store,
		builder:  cfg.Builder,
		resolver: cfg.Resolver,
		replier:  cfg.Replier,
		fallback: fallback,
	}
}

// Result is a completed submission.
type Result struct {
	Location string
	Reply    string
	Thread   conversation.Thread
}

// Submit runs one full submit-to-reply cycle. On reply failure the user
// message stays appended and persisted in the target thread; only the
// assistant message is missing, and the caller retries by resubmitting.
func (r *Router) Submit(ctx context.Context, message string) (Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Result{}, ErrEmptyMessage
	}

	r.mu.Lock()
	if r.inflight != uuid.Nil {
		r.mu.Unlock()
		log.Debug().Msg("submission rejected: one already in flight")
		return Result{}, ErrSubmissionInFlight
	}
	id := uuid.New()
	r.inflight = id
	r.state = StateResolving
	r.lastError = nil
	activeKey := r.active
	r.mu.Unlock()
	r.logTransition(id, StateResolving)

	// Resolution context comes from the thread the user was just looking
	// at, not from wherever the message ends up routed.
	activeThread, _ := r.reg.Find(activeKey)
	location := r.resolver.ResolveLocation(ctx, message, r.builder.ForResolution(activeThread))

	if ctx.Err() != nil {
		r.abandon(id)
		return Result{}, ctx.Err()
	}

	r.mu.Lock()
	if r.inflight != id {
		r.mu.Unlock()
		log.Debug().Stringer("submission", id).Msg("discarding resolution for canceled submission")
		return Result{}, ErrSubmissionCanceled
	}
	target := r.reg.Upsert(location, func(th conversation.Thread) conversation.Thread {
		return th.Append(conversation.NewMessage(conversation.RoleUser, message))
	})
	r.active = target.LocationKey
	r.state = StateRouted
	snapshot := r.reg.Snapshot()
	r.mu.Unlock()
	r.logTransition(id, StateRouted)

	// The user message is durable before the reply call starts.
	r.persist(ctx, snapshot)

	r.mu.Lock()
	if r.inflight != id {
		r.mu.Unlock()
		return Result{}, ErrSubmissionCanceled
	}
	r.state = StateAwaitingReply
	r.mu.Unlock()
	r.logTransition(id, StateAwaitingReply)

	// The full target history includes the just-appended user message; on
	// the wire it travels as message + the turns before it.
	full := r.builder.ForReply(target)
	prior := full[:len(full)-1]
	reply, err := r.replier.GenerateReply(ctx, message, prior)
	if err != nil {
		return r.fail(id, target.LocationKey, err)
	}

	r.mu.Lock()
	if r.inflight != id {
		r.mu.Unlock()
		log.Debug().Stringer("submission", id).Msg("discarding reply for canceled submission")
		return Result{}, ErrSubmissionCanceled
	}
	updated := r.reg.Upsert(target.LocationKey, func(th conversation.Thread) conversation.Thread {
		return th.Append(conversation.NewMessage(conversation.RoleAssistant, reply))
	})
	r.state = StateIdle
	r.inflight = uuid.Nil
	snapshot = r.reg.Snapshot()
	r.mu.Unlock()
	r.logTransition(id, StateIdle)

	r.persist(ctx, snapshot)

	return Result{Location: updated.LocationKey, Reply: reply, Thread: updated}, nil
}

// fail applies replyFailed: record the error, pass through Failed, settle in
// Idle. Returning the error to the caller is the acknowledgment.
func (r *Router) fail(id uuid.UUID, location string, err error) (Result, error) {
	r.mu.Lock()
	if r.inflight != id {
		r.mu.Unlock()
		return Result{}, ErrSubmissionCanceled
	}
	r.state = StateFailed
	r.lastError = err
	r.inflight = uuid.Nil
	r.mu.Unlock()
	r.logTransition(id, StateFailed)

	r.mu.Lock()
	if r.state == StateFailed {
		r.state = StateIdle
	}
	r.mu.Unlock()
	r.logTransition(id, StateIdle)

	log.Warn().Err(err).Str("location", location).Msg("reply generation failed, user message kept")
	return Result{Location: location}, err
}

// abandon clears an in-flight submission whose context died before it
// mutated anything.
func (r *Router) abandon(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight == id {
		r.inflight = uuid.Nil
		r.state = StateIdle
	}
}

// Reset tears down the active cycle, e.g. when the consumer navigates away.
// Any outstanding call's result is discarded when it eventually arrives.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight = uuid.Nil
	r.state = StateIdle
	r.lastError = nil
	log.Debug().Msg("router reset")
}

// Active returns the currently selected location key.
func (r *Router) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// SetActive switches the presentation-layer selection. The key is
// canonicalized; an empty key selects the fallback. The canonical key is
// returned.
func (r *Router) SetActive(key string) string {
	canon := conversation.CanonicalKey(key)
	if canon == "" {
		canon = r.fallback
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = canon
	return canon
}

// ActiveThread returns the thread behind the active selection, if one
// exists yet.
func (r *Router) ActiveThread() (conversation.Thread, bool) {
	return r.reg.Find(r.Active())
}

// Threads lists all threads in descending recency order.
func (r *Router) Threads() []conversation.Thread {
	return r.reg.Snapshot()
}

// State reports the router's current position in the cycle.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastError returns the most recent reply failure, if the last cycle
// failed.
func (r *Router) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastError
}

func (r *Router) persist(ctx context.Context, threads []conversation.Thread) {
	if err := r.st.Save(ctx, threads); err != nil {
		log.Error().Err(err).Msg("failed to persist thread state")
	}
}

func (r *Router) logTransition(id uuid.UUID, to State) {
	log.Debug().Stringer("submission", id).Str("state", string(to)).Msg("router transition")
}
