package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTraceWritesCycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "session.trace")

	trace, err := StartSessionTrace(path)
	require.NoError(t, err)

	trace.Submission("Things to do in Toronto")
	trace.Resolved("Toronto", true)
	trace.Reply("Toronto", "Start at the waterfront.")
	trace.Error("reply", errors.New("backend unavailable"))
	trace.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "NORTHROUTE SESSION TRACE")
	assert.Contains(t, content, "Message: Things to do in Toronto")
	assert.Contains(t, content, "Routed to: Toronto (thread switch)")
	assert.Contains(t, content, "Start at the waterfront.")
	assert.Contains(t, content, "ERROR in reply: backend unavailable")
	assert.Contains(t, content, "Session trace completed")
}

func TestSessionTraceNilReceiver(t *testing.T) {
	var trace *SessionTrace

	// Every method must be a no-op on a nil trace.
	trace.Submission("hello")
	trace.Resolved("General", false)
	trace.Reply("General", "hi")
	trace.Error("resolve", errors.New("x"))
	trace.Log("loose message")
	trace.Section("SECTION")
	trace.Close()
}

func TestSessionTraceCloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.trace")

	trace, err := StartSessionTrace(path)
	require.NoError(t, err)

	trace.Close()
	trace.Close()
	trace.Log("after close")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}
