package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northroute/internal/agent"
	"github.com/northroute/internal/classifier"
	"github.com/northroute/pkg/schema"
)

// newTestServer builds a server on the heuristic/fallback paths (no model),
// matching how the service behaves with no API key configured.
func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	if config.CORSOrigins == nil {
		config.CORSOrigins = []string{"http://localhost:3000"}
	}
	return New(config, classifier.New(nil), agent.New(nil))
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestChatFallbackTorontoNonPromotional(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := postJSON(t, s, "/chat", `{"message": "What are top attractions in Toronto?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schema.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	reply := strings.ToLower(resp.Reply)
	assert.Contains(t, reply, "toronto")
	assert.Contains(t, reply, "cn tower")
	assert.NotContains(t, reply, "hotel")
}

func TestExtractLocationFallback(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := postJSON(t, s, "/extract-location", `{"message": "2-day plan for Vancouver please"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp schema.ExtractLocationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Vancouver", resp.Location)

	rec = postJSON(t, s, "/extract-location", `{"message": "What should I pack for winter?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "General", resp.Location)
}

func TestExtractLocationUsesHistory(t *testing.T) {
	s := newTestServer(t, Config{})

	body := `{"message": "What about the food there?", "history": [{"role": "user", "content": "Things to do in Toronto"}]}`
	rec := postJSON(t, s, "/extract-location", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp schema.ExtractLocationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Toronto", resp.Location)
}

func TestValidationRejections(t *testing.T) {
	s := newTestServer(t, Config{})
	oversize := strings.Repeat("a", schema.MaxMessageLen+1)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"empty message", "/chat", `{"message": ""}`, http.StatusUnprocessableEntity},
		{"missing message", "/chat", `{}`, http.StatusUnprocessableEntity},
		{"oversize message", "/chat", `{"message": "` + oversize + `"}`, http.StatusUnprocessableEntity},
		{"bad history role", "/chat", `{"message": "hi", "history": [{"role": "system", "content": "x"}]}`, http.StatusUnprocessableEntity},
		{"empty history content", "/chat", `{"message": "hi", "history": [{"role": "user", "content": ""}]}`, http.StatusUnprocessableEntity},
		{"empty message extract", "/extract-location", `{"message": ""}`, http.StatusUnprocessableEntity},
		{"malformed json", "/chat", `{"message": `, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, s, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, Config{RateLimitRPS: 1})

	// Burst capacity is the configured rate, so the second immediate request
	// must be rejected.
	first := postJSON(t, s, "/extract-location", `{"message": "Things to do in Toronto"}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := postJSON(t, s, "/extract-location", `{"message": "Things to do in Toronto"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	// An origin outside the allow list gets no CORS grant.
	req = httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
