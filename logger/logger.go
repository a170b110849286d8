// Package logger is a small ring-buffer logger. Every component in this engine logs state
// transitions, bus errors, and guard rejections through a *Logger rather
// than through the standard library's log package directly; the
// transport/collaborator layer is responsible for shipping the tail
// somewhere durable (file, syslog, wherever).
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Permission is implemented by anything that can gate whether a log entry
// is recorded. This mirrors the AllowLogging() convention used
// by its environment type.
type Permission interface {
	AllowLogging() bool
}

// Allow is the permission value that always allows logging.
var Allow = allowPermission{}

type allowPermission struct{}

func (allowPermission) AllowLogging() bool { return true }

type entry struct {
	tag    string
	detail string
}

// Logger is a fixed-capacity ring buffer of tag/detail pairs.
type Logger struct {
	mu       sync.Mutex
	capacity int
	entries  []entry
	next     int
	count    int
}

// NewLogger creates a logger with room for capacity entries. Once full,
// the oldest entry is overwritten.
func NewLogger(capacity int) *Logger {
	if capacity <= 0 {
		capacity = 1
	}
	return &Logger{
		capacity: capacity,
		entries:  make([]entry, capacity),
	}
}

// Clear empties the logger.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next = 0
	l.count = 0
}

// Log records detail under tag, subject to perm.AllowLogging(). detail is
// formatted according to its type: errors and fmt.Stringer use their own
// string representation; everything else uses the %v verb.
func (l *Logger) Log(perm Permission, tag string, detail any) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, formatDetail(detail))
}

// Logf is like Log but the detail is built from a format string and args.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...any) {
	if perm != nil && !perm.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func formatDetail(detail any) string {
	switch d := detail.(type) {
	case error:
		return d.Error()
	case fmt.Stringer:
		return d.String()
	default:
		return fmt.Sprintf("%v", d)
	}
}

func (l *Logger) append(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry{tag: tag, detail: detail}
	l.next = (l.next + 1) % l.capacity
	if l.count < l.capacity {
		l.count++
	}
}

// Write writes every retained entry, oldest first, to w.
func (l *Logger) Write(w io.Writer) {
	l.Tail(w, l.count)
}

// Tail writes at most n of the most recent entries, oldest first, to w.
// Asking for more entries than are available is fine; asking for zero
// writes nothing.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		l.mu.Unlock()
		return
	}

	start := (l.next - n + l.capacity) % l.capacity
	var b strings.Builder
	for i := 0; i < n; i++ {
		e := l.entries[(start+i)%l.capacity]
		b.WriteString(e.tag)
		b.WriteString(": ")
		b.WriteString(e.detail)
		b.WriteString("\n")
	}
	l.mu.Unlock()

	io.WriteString(w, b.String())
}
