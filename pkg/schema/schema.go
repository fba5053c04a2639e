package schema

// Wire types shared by the router's HTTP clients and the backend service.
// Shapes mirror the deployed API: /chat and /extract-location both take a
// message plus optional prior turns.

// MaxMessageLen is the largest message or history entry the backend accepts.
const MaxMessageLen = 10000

// DefaultFallbackLocation is the sentinel key both sides agree on when no
// concrete Canadian location can be determined.
const DefaultFallbackLocation = "General"

// Role values accepted in history items.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryItem is one prior conversation turn forwarded as context.
type HistoryItem struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest asks the backend for an assistant reply.
type ChatRequest struct {
	Message string        `json:"message"`
	History []HistoryItem `json:"history,omitempty"`
}

// ChatResponse carries the generated reply text.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ExtractLocationRequest asks the backend to classify which Canadian
// location a message is about.
type ExtractLocationRequest struct {
	Message string        `json:"message"`
	History []HistoryItem `json:"history,omitempty"`
}

// ExtractLocationResponse carries the canonical location label. An empty
// label means the classifier could not decide; callers substitute their
// fallback key.
type ExtractLocationResponse struct {
	Location string `json:"location"`
}

// ValidRole reports whether r is a role the backend accepts in history.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAssistant
}
