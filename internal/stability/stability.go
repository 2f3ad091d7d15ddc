// Package stability decides whether recognized text is new, stable, or noise
package stability

import (
	"sync"
	"time"

	"github.com/subsight/subsight/internal/textnorm"
)

// State is the engine's resting state between observations. Commits and
// expiries are momentary transitions, reported through Outcome.
type State int

const (
	// Idle: no text seen, or the last recognition was empty.
	Idle State = iota
	// Candidate: new text seen once, waiting for it to recur.
	Candidate
	// Displayed: text committed and handed to translation/display.
	Displayed
)

func (s State) String() string {
	return [...]string{"idle", "candidate", "displayed"}[s]
}

// Config holds the gating tunables.
type Config struct {
	// DebounceWindow is how soon a candidate must recur to count as stable.
	DebounceWindow time.Duration
	// EmptyExpiryCount is how many consecutive empty recognitions retire the
	// displayed text (the subtitle disappeared from screen).
	EmptyExpiryCount int
	// MaxDisplayDuration retires unchanged displayed text after this long.
	// Zero disables the timeout.
	MaxDisplayDuration time.Duration
	// ImmediateCommit skips the debounce and commits new text on first sight.
	ImmediateCommit bool
}

// Outcome reports what one observation caused.
type Outcome struct {
	Commit  bool   // new stable text was committed
	Text    string // the committed normalized text, when Commit is set
	Expired bool   // the displayed text expired
}

// Engine is the per-capture-stream stability state machine. Raw OCR output
// on live video is noisy frame to frame; without this gating every minor
// misread would fire a translation request.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	state       State
	candidate   string
	candidateAt time.Time
	committed   string // survives expiry so identical text does not re-trigger
	committedAt time.Time
	emptyRuns   int
	lastEmpty   bool // whether the most recent recognition was empty
}

// New creates an engine with the given tunables.
func New(cfg Config) *Engine {
	if cfg.EmptyExpiryCount <= 0 {
		cfg.EmptyExpiryCount = 1
	}
	return &Engine{cfg: cfg}
}

// Observe feeds one recognition result into the state machine. Equality is
// on normalized text, so whitespace drift between frames is not a change.
func (e *Engine) Observe(raw string, now time.Time) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out Outcome
	out.Expired = e.checkTimeout(now)

	norm := textnorm.Normalize(raw)
	e.lastEmpty = norm == ""
	if norm == "" {
		e.candidate = ""
		if e.state == Displayed {
			e.emptyRuns++
			if e.emptyRuns >= e.cfg.EmptyExpiryCount {
				e.retire()
				out.Expired = true
			}
		} else {
			e.state = Idle
		}
		return out
	}

	e.emptyRuns = 0
	if norm == e.committed {
		return out
	}

	if e.cfg.ImmediateCommit {
		e.commit(norm, now)
		out.Commit, out.Text = true, norm
		return out
	}

	if norm != e.candidate {
		e.candidate = norm
		e.candidateAt = now
		if e.state != Displayed {
			e.state = Candidate
		}
		return out
	}

	// The candidate recurred. Within the debounce window that confirms it;
	// after the window it only restarts the clock.
	if now.Sub(e.candidateAt) <= e.cfg.DebounceWindow {
		e.commit(norm, now)
		out.Commit, out.Text = true, norm
	} else {
		e.candidateAt = now
	}
	return out
}

// Tick runs the timer-based expiry check without a recognition result, for
// cycles where OCR was skipped.
func (e *Engine) Tick(now time.Time) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Outcome{Expired: e.checkTimeout(now)}
}

// Repeat feeds the previous recognition again, for cycles where the frame
// was unchanged and OCR was skipped. A repeated blank frame still counts
// toward the empty-run expiry; a repeated text frame only runs the timer.
func (e *Engine) Repeat(now time.Time) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out Outcome
	out.Expired = e.checkTimeout(now)

	if e.lastEmpty && e.state == Displayed {
		e.emptyRuns++
		if e.emptyRuns >= e.cfg.EmptyExpiryCount {
			e.retire()
			out.Expired = true
		}
	}
	return out
}

// Forget clears the committed text so the same line may commit again, for
// when the cycle that committed it was discarded or failed downstream.
func (e *Engine) Forget(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committed != textnorm.Normalize(text) {
		return
	}
	e.committed = ""
	e.emptyRuns = 0
	e.state = Idle
}

// State returns the engine's resting state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Reset clears all gating state, including the last committed text.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = Idle
	e.candidate = ""
	e.committed = ""
	e.emptyRuns = 0
	e.lastEmpty = false
}

func (e *Engine) commit(text string, now time.Time) {
	e.committed = text
	e.committedAt = now
	e.candidate = ""
	e.emptyRuns = 0
	e.state = Displayed
}

// retire moves Displayed back to Idle while keeping the committed text for
// dedup comparison.
func (e *Engine) retire() {
	e.state = Idle
	e.emptyRuns = 0
}

func (e *Engine) checkTimeout(now time.Time) bool {
	if e.state != Displayed || e.cfg.MaxDisplayDuration <= 0 {
		return false
	}
	if now.Sub(e.committedAt) >= e.cfg.MaxDisplayDuration {
		e.retire()
		return true
	}
	return false
}
