package webhook

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one received webhook delivery (GitHub push, Vercel deploy,
// etc.) kept for the dashboard.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Statistics summarizes the retained events.
type Statistics struct {
	Total       int            `json:"total"`
	BySource    map[string]int `json:"bySource"`
	ByType      map[string]int `json:"byType"`
	OldestEvent *time.Time     `json:"oldestEvent"`
	NewestEvent *time.Time     `json:"newestEvent"`
	Last24Hours int            `json:"last24Hours"`
}

// Logger keeps a bounded, newest-first in-memory log of webhook events.
type Logger struct {
	mu        sync.RWMutex
	events    []Event
	maxEvents int
}

// NewLogger creates a logger retaining at most maxEvents entries.
// A non-positive limit defaults to 1000.
func NewLogger(maxEvents int) *Logger {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &Logger{
		events:    make([]Event, 0, maxEvents),
		maxEvents: maxEvents,
	}
}

// Log records an event, assigning an id and timestamp if missing.
// Oldest events are dropped past the retention limit.
func (l *Logger) Log(event Event) Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append([]Event{event}, l.events...)
	if len(l.events) > l.maxEvents {
		l.events = l.events[:l.maxEvents]
	}

	return event
}

// Events returns up to limit events, newest first. limit <= 0 returns all.
func (l *Logger) Events(limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.events)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Event, n)
	copy(out, l.events[:n])
	return out
}

// EventByID finds an event by id.
func (l *Logger) EventByID(id string) (Event, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// DeleteEvent removes one event by id.
func (l *Logger) DeleteEvent(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.events {
		if e.ID == id {
			l.events = append(l.events[:i], l.events[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all events and returns how many were dropped.
func (l *Logger) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := len(l.events)
	l.events = l.events[:0]
	return count
}

// Statistics computes the summary over retained events.
func (l *Logger) Statistics() Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Statistics{
		Total:    len(l.events),
		BySource: make(map[string]int),
		ByType:   make(map[string]int),
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	for _, e := range l.events {
		stats.BySource[e.Source]++
		stats.ByType[e.Type]++
		if e.Timestamp.After(cutoff) {
			stats.Last24Hours++
		}
	}

	if len(l.events) > 0 {
		newest := l.events[0].Timestamp
		oldest := l.events[len(l.events)-1].Timestamp
		stats.NewestEvent = &newest
		stats.OldestEvent = &oldest
	}

	return stats
}
