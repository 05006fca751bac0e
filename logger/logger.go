// Package logger provides a small ring-buffered, permission-gated logger for
// diagnostic messages; the armdump command logs each taken branch through
// it, and the decoder and memory packages do not log. It never
// participates in control flow: the core's errors (see vmerrors) carry the
// causal chain a host needs, and logging is purely for human visibility
// while debugging a trace.
package logger

import (
	"container/ring"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Permission is queried before a log entry is recorded. This lets a caller
// pass a value (e.g. a verbosity level, or a feature flag) that decides
// whether the entry is worth keeping, without the logger needing to know
// anything about the caller's configuration.
type Permission interface {
	AllowLogging() bool
}

// Allow is a Permission that always allows logging.
var Allow = allowPermission{}

type allowPermission struct{}

func (allowPermission) AllowLogging() bool { return true }

type entry struct {
	tag    string
	detail string
}

// Logger is a fixed-capacity ring of log entries. The zero value is not
// usable; construct one with NewLogger.
type Logger struct {
	mu  sync.Mutex
	buf *ring.Ring
	len int
	cap int
}

// NewLogger creates a Logger that retains at most size entries, discarding
// the oldest when full.
func NewLogger(size int) *Logger {
	return &Logger{
		buf: ring.New(size),
		cap: size,
	}
}

// Log records detail under tag, provided perm allows it. detail is
// formatted according to its type: an error's Error() string, a
// fmt.Stringer's String(), or the %v verb otherwise.
func (l *Logger) Log(perm Permission, tag string, detail any) {
	if !perm.AllowLogging() {
		return
	}
	l.append(tag, formatDetail(detail))
}

// Logf is like Log but formats detail with a format string and arguments.
func (l *Logger) Logf(perm Permission, tag string, format string, args ...any) {
	if !perm.AllowLogging() {
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
	l.buf.Value = entry{tag: tag, detail: detail}
	l.buf = l.buf.Next()
	if l.len < l.cap {
		l.len++
	}
}

// Clear empties the logger.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf = ring.New(l.cap)
	l.len = 0
}

// Write writes every retained entry, oldest first, one per line as
// "tag: detail".
func (l *Logger) Write(w io.Writer) {
	l.Tail(w, l.len)
}

// Tail writes the most recent n entries (or fewer if fewer are retained),
// oldest first.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.len {
		n = l.len
	}

	// the ring cursor (l.buf) points to the slot the *next* write will use,
	// i.e. one past the newest entry, which is the oldest retained entry
	// when the buffer is full.
	start := l.buf.Move(-l.len)
	all := make([]entry, 0, l.len)
	start.Do(func(v any) {
		if v != nil {
			all = append(all, v.(entry))
		}
	})

	skip := len(all) - n
	if skip < 0 {
		skip = 0
	}

	var s strings.Builder
	for _, e := range all[skip:] {
		s.WriteString(e.tag)
		s.WriteString(": ")
		s.WriteString(e.detail)
		s.WriteString("\n")
	}
	io.WriteString(w, s.String())
}
