package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SessionTrace writes a plain-text trace of a chat session's routing cycles
// to a file. All methods are safe on a nil receiver so call sites never need
// to check whether tracing is enabled.
type SessionTrace struct {
	file      *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// StartSessionTrace opens the trace file and writes its header.
func StartSessionTrace(path string) (*SessionTrace, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	trace := &SessionTrace{
		file:      file,
		startTime: time.Now(),
	}
	trace.writeHeader()

	return trace, nil
}

func (t *SessionTrace) writeHeader() {
	header := fmt.Sprintf(`NORTHROUTE SESSION TRACE
Start Time: %s
Log Format: [HH:MM:SS.mmm] [+duration] message

`, t.startTime.Format("2006-01-02 15:04:05"))

	t.file.WriteString(header)
	t.file.Sync()
}

// Log writes a timestamped message to the trace.
func (t *SessionTrace) Log(format string, args ...interface{}) {
	if t == nil {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.file == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(t.startTime)
	message := fmt.Sprintf(format, args...)

	t.file.WriteString(fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed.Round(time.Millisecond), message))
	t.file.Sync()
}

// Section writes a visual section header to the trace.
func (t *SessionTrace) Section(title string) {
	if t == nil {
		return
	}

	separator := strings.Repeat("=", 80)
	t.Log("%s", separator)
	t.Log("= %s", title)
	t.Log("%s", separator)
}

// Submission records a user message entering the router.
func (t *SessionTrace) Submission(message string) {
	if t == nil {
		return
	}

	t.Section("SUBMISSION")
	t.Log("Message: %s", message)
}

// Resolved records the location the message was routed to.
func (t *SessionTrace) Resolved(location string, switched bool) {
	if t == nil {
		return
	}

	if switched {
		t.Log("Routed to: %s (thread switch)", location)
	} else {
		t.Log("Routed to: %s", location)
	}
}

// Reply records the assistant reply appended to a thread.
func (t *SessionTrace) Reply(location, reply string) {
	if t == nil {
		return
	}

	t.Log("Reply in %s (%d characters):", location, len(reply))
	t.mutex.Lock()
	if t.file != nil {
		t.file.WriteString(reply + "\n")
	}
	t.mutex.Unlock()
}

// Error records a failed cycle.
func (t *SessionTrace) Error(stage string, err error) {
	if t == nil {
		return
	}

	t.Log("ERROR in %s: %v", stage, err)
}

// Close writes the closing summary and releases the file.
func (t *SessionTrace) Close() {
	if t == nil {
		return
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.file == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(t.startTime)
	t.file.WriteString(fmt.Sprintf("[%s] [+%v] Session trace completed. Total duration: %v\n",
		timestamp, elapsed.Round(time.Millisecond), elapsed.Round(time.Millisecond)))
	t.file.Sync()

	t.file.Close()
	t.file = nil
}
