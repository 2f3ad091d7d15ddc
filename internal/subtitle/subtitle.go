// Package subtitle holds the translated lines currently on screen and the
// session history they scroll out into.
package subtitle

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subsight/subsight/internal/translate"
)

// Line is one translated subtitle currently eligible for display.
type Line struct {
	Source      string
	Translated  string
	CommittedAt time.Time
}

// Entry is a line retained in session history.
type Entry struct {
	ID          string
	Source      string
	Translated  string
	FromCache   bool
	CommittedAt time.Time
}

// Event notifies the display boundary of a state change.
type Event struct {
	Type    EventType
	Lines   []Line
	Visible bool
}

// EventType discriminates display events.
type EventType string

const (
	// EventLines carries a new set of display lines.
	EventLines EventType = "lines"
	// EventClear tells the display to remove all lines.
	EventClear EventType = "clear"
	// EventVisibility carries a visibility toggle.
	EventVisibility EventType = "visibility"
)

// Store keeps the current display lines and a bounded history. Writes emit
// events for the display boundary; Emit never blocks the pipeline.
type Store struct {
	mu           sync.RWMutex
	lines        []Line
	displayUntil time.Time
	displayFor   time.Duration
	maxLines     int
	history      []Entry
	historyLimit int
	visible      bool
	eventsCh     chan Event
}

// NewStore creates a store. maxLines caps simultaneous display lines,
// historyLimit caps retained entries, displayFor is how long a set of lines
// stays visible after its newest commit.
func NewStore(historyLimit, maxLines int, displayFor time.Duration, eventBuffer int) *Store {
	if maxLines < 1 {
		maxLines = 1
	}
	if historyLimit < 1 {
		historyLimit = 1
	}
	return &Store{
		displayFor:   displayFor,
		maxLines:     maxLines,
		history:      make([]Entry, 0, historyLimit),
		historyLimit: historyLimit,
		visible:      true,
		eventsCh:     make(chan Event, eventBuffer),
	}
}

// Commit records a newly translated line. It joins the current display set,
// evicting the oldest line past maxLines, and restarts the shared display
// timer so the newest line always gets its full duration.
func (s *Store) Commit(source, translated string, fromCache bool, now time.Time) Entry {
	s.mu.Lock()

	entry := Entry{
		ID:          uuid.NewString(),
		Source:      source,
		Translated:  translated,
		FromCache:   fromCache,
		CommittedAt: now,
	}
	s.history = append(s.history, entry)
	if len(s.history) > s.historyLimit {
		s.history = s.history[len(s.history)-s.historyLimit:]
	}

	// Lines whose deadline already passed do not linger under a new commit.
	if now.After(s.displayUntil) {
		s.lines = s.lines[:0]
	}
	s.lines = append(s.lines, Line{Source: source, Translated: translated, CommittedAt: now})
	if len(s.lines) > s.maxLines {
		s.lines = s.lines[len(s.lines)-s.maxLines:]
	}
	s.displayUntil = now.Add(s.displayFor)

	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	visible := s.visible
	s.mu.Unlock()

	s.Emit(Event{Type: EventLines, Lines: lines, Visible: visible})
	return entry
}

// Current returns the lines that should be on screen at now. Nil when the
// display deadline has passed, the store is hidden, or nothing was committed.
func (s *Store) Current(now time.Time) []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.visible || len(s.lines) == 0 || now.After(s.displayUntil) {
		return nil
	}
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// DisplayDeadline returns when the current lines expire.
func (s *Store) DisplayDeadline() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayUntil
}

// Hide drops the current display lines without touching history.
func (s *Store) Hide() {
	s.mu.Lock()
	s.lines = s.lines[:0]
	s.displayUntil = time.Time{}
	s.mu.Unlock()

	s.Emit(Event{Type: EventClear})
}

// SetVisible toggles whether Current returns lines at all. History keeps
// accumulating while hidden.
func (s *Store) SetVisible(v bool) {
	s.mu.Lock()
	changed := s.visible != v
	s.visible = v
	s.mu.Unlock()

	if changed {
		s.Emit(Event{Type: EventVisibility, Visible: v})
	}
}

// Visible reports the current visibility flag.
func (s *Store) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

// History returns a copy of the retained entries, oldest first.
func (s *Store) History() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops all retained entries.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = s.history[:0]
}

// Recent returns up to n of the newest history entries as exchanges, oldest
// first, for providers that replay conversational context.
func (s *Store) Recent(n int) []translate.Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.history) {
		n = len(s.history)
	}
	if n <= 0 {
		return nil
	}
	out := make([]translate.Exchange, 0, n)
	for _, e := range s.history[len(s.history)-n:] {
		out = append(out, translate.Exchange{Source: e.Source, Translated: e.Translated})
	}
	return out
}

// Events returns the display event channel.
func (s *Store) Events() <-chan Event {
	return s.eventsCh
}

// Emit sends an event without blocking; a slow consumer drops events rather
// than stalling the pipeline.
func (s *Store) Emit(event Event) {
	select {
	case s.eventsCh <- event:
	default:
	}
}
