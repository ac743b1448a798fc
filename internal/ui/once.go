package ui

import "sync"

// OnceLogger logs an error only the first time a given condition is reported.
// Reporting the same key again is silent until Resolve is called for it.
type OnceLogger struct {
	mu     sync.Mutex
	active map[string]bool
}

func NewOnceLogger() *OnceLogger {
	return &OnceLogger{
		active: map[string]bool{},
	}
}

// Error logs the message if the condition identified by key is not already active.
// Returns true if the message was printed.
func (l *OnceLogger) Error(key string, format string, a ...interface{}) bool {
	if !l.raise(key) {
		return false
	}
	Error(format, a...)
	return true
}

// Warning behaves like Error, using the warning level.
func (l *OnceLogger) Warning(key string, format string, a ...interface{}) bool {
	if !l.raise(key) {
		return false
	}
	Warning(format, a...)
	return true
}

// Resolve clears the condition identified by key. If it was active,
// a recovery message is printed at info level.
func (l *OnceLogger) Resolve(key string, format string, a ...interface{}) bool {
	l.mu.Lock()
	wasActive := l.active[key]
	delete(l.active, key)
	l.mu.Unlock()

	if wasActive && len(format) > 0 {
		Info(format, a...)
	}
	return wasActive
}

// IsActive reports whether the condition identified by key has been raised and not resolved.
func (l *OnceLogger) IsActive(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[key]
}

func (l *OnceLogger) raise(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[key] {
		return false
	}
	l.active[key] = true
	return true
}
