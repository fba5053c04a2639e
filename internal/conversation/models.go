package conversation

import (
	"strings"
	"time"
	"unicode"

	"github.com/northroute/pkg/schema"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role threads store.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single turn in a location thread. Messages are immutable once
// appended; ordering within a thread is append order. The timestamp is
// informational and never authoritative for ordering.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"ts"`
}

// NewMessage stamps a message with the current instant.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// Thread holds the ordered message history for one canonical location key.
// LastUpdated orders thread enumeration (descending recency) for
// presentation; it never affects message ordering inside the thread.
type Thread struct {
	LocationKey string    `json:"location"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"updatedAt"`
}

// NewThread returns an empty thread for the given canonical key.
func NewThread(key string) Thread {
	return Thread{LocationKey: key}
}

// Append returns a copy of the thread with msg added at the end. The
// receiver is left untouched so registry mutators stay pure.
func (t Thread) Append(msg Message) Thread {
	msgs := make([]Message, 0, len(t.Messages)+1)
	msgs = append(msgs, t.Messages...)
	msgs = append(msgs, msg)
	t.Messages = msgs
	return t
}

// Clone deep-copies the thread so callers can hold a snapshot that later
// upserts cannot alias.
func (t Thread) Clone() Thread {
	msgs := make([]Message, len(t.Messages))
	copy(msgs, t.Messages)
	t.Messages = msgs
	return t
}

// History converts the thread's messages to wire history items.
func (t Thread) History() []schema.HistoryItem {
	items := make([]schema.HistoryItem, 0, len(t.Messages))
	for _, m := range t.Messages {
		items = append(items, schema.HistoryItem{Role: string(m.Role), Content: m.Content})
	}
	return items
}

// CanonicalKey normalizes a location key: surrounding whitespace trimmed,
// internal whitespace runs collapsed to single spaces, each word
// title-cased. Keys differing only by case or spacing address the same
// thread ("british  columbia " and "British Columbia" are one key).
func CanonicalKey(key string) string {
	fields := strings.Fields(key)
	for i, f := range fields {
		fields[i] = titleWord(f)
	}
	return strings.Join(fields, " ")
}

func titleWord(w string) string {
	runes := []rune(strings.ToLower(w))
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}
