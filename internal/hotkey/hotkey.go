// Package hotkey fans user key actions into the pipeline as events.
package hotkey

// Action identifies a user-triggered command.
type Action string

const (
	// ActionCaptureOnce requests a single capture-translate cycle.
	ActionCaptureOnce Action = "capture_once"
	// ActionToggleWatch starts or stops the periodic capture loop.
	ActionToggleWatch Action = "toggle_watch"
	// ActionHideTranslation clears the currently displayed lines.
	ActionHideTranslation Action = "hide_translation"
	// ActionToggleVisibility shows or hides the subtitle display.
	ActionToggleVisibility Action = "toggle_visibility"
)

// ParseAction maps a wire string to an Action; ok is false for unknown input.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCaptureOnce, ActionToggleWatch, ActionHideTranslation, ActionToggleVisibility:
		return Action(s), true
	}
	return "", false
}

// Event is one key action.
type Event struct {
	Action Action
}

// Source buffers key events between the input boundary and the pipeline.
// Emits never block: if the pipeline is behind, repeated presses collapse.
type Source struct {
	eventsCh chan Event
}

// NewSource creates a source with the given buffer.
func NewSource(buffer int) *Source {
	return &Source{eventsCh: make(chan Event, buffer)}
}

// Emit queues an event, dropping it if the buffer is full.
func (s *Source) Emit(event Event) bool {
	select {
	case s.eventsCh <- event:
		return true
	default:
		return false
	}
}

// Events returns the event channel.
func (s *Source) Events() <-chan Event {
	return s.eventsCh
}
