package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// InvocationLogStore keeps a bounded in-memory log per function so
// caller-less (scheduled) invocations stay observable after the fact.
type InvocationLogStore struct {
	mu       sync.RWMutex
	logs     map[string][]invocationLogEntry
	capacity int
}

type invocationLogEntry struct {
	Timestamp time.Time
	Level     zapcore.Level
	Message   string
}

// NewInvocationLogStore creates a store keeping up to capacity entries
// per function.
func NewInvocationLogStore(capacity int) *InvocationLogStore {
	return &InvocationLogStore{
		logs:     make(map[string][]invocationLogEntry),
		capacity: capacity,
	}
}

// Add appends a log entry for a function, evicting the oldest entries
// past capacity.
func (s *InvocationLogStore) Add(function string, level zapcore.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.logs[function], invocationLogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	})
	if len(entries) > s.capacity {
		entries = entries[len(entries)-s.capacity:]
	}
	s.logs[function] = entries
}

// Tail returns up to n formatted entries for a function, oldest first.
// n <= 0 returns everything retained.
func (s *InvocationLogStore) Tail(function string, n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[function]
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("[%s] [%s] %s",
			e.Timestamp.Format(time.RFC3339),
			e.Level.CapitalString(),
			e.Message)
	}
	return lines
}
