package testhelper

import "sync"

// LogEntry is one message captured by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// Logger is a datasetapi.Logger that records warnings and errors.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Debug discards msg.
func (l *Logger) Debug(string, ...any) {}

// Info discards msg.
func (l *Logger) Info(string, ...any) {}

// Warn records msg at warn level.
func (l *Logger) Warn(msg string, args ...any) { l.record("warn", msg, args) }

// Error records msg at error level.
func (l *Logger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *Logger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

// Entries returns a copy of the recorded messages.
func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}
