package contextbuilder

import (
	"github.com/northroute/internal/conversation"
	"github.com/northroute/pkg/schema"
)

// Builder shapes the prior-turn history forwarded to the backend calls.
//
// The two methods are intentionally asymmetric. Location resolution reads
// the *currently active* thread, even though the new message may end up
// routed elsewhere: references like "what about there?" resolve against the
// conversation the user was just having, at the cost of an occasional
// misclassification on an abrupt topic switch. Reply generation reads the
// full *target* thread, the one the message was actually routed to.
// Do not "fix" this by using the target thread for both.
type Builder struct {
	maxResolutionMessages int
}

// New returns a builder. maxResolutionMessages bounds the history sent for
// location resolution to the most recent N entries; 0 means unbounded.
func New(maxResolutionMessages int) *Builder {
	return &Builder{maxResolutionMessages: maxResolutionMessages}
}

// ForResolution returns the active thread's history for the classifier,
// newest-bounded when a limit is configured.
func (b *Builder) ForResolution(active conversation.Thread) []schema.HistoryItem {
	history := active.History()
	if b.maxResolutionMessages > 0 && len(history) > b.maxResolutionMessages {
		history = history[len(history)-b.maxResolutionMessages:]
	}
	return history
}

// ForReply returns the target thread's full history in strict append order,
// including the just-appended user message. Any windowing is the reply
// collaborator's concern, not ours.
func (b *Builder) ForReply(target conversation.Thread) []schema.HistoryItem {
	return target.History()
}
