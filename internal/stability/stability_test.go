package stability

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		DebounceWindow:     200 * time.Millisecond,
		EmptyExpiryCount:   3,
		MaxDisplayDuration: 10 * time.Second,
	}
}

func TestCommitRequiresRecurrence(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	out := e.Observe("Hello", now)
	if out.Commit {
		t.Error("first sighting should not commit")
	}
	if e.State() != Candidate {
		t.Errorf("state = %v, want candidate", e.State())
	}

	out = e.Observe("Hello", now.Add(100*time.Millisecond))
	if !out.Commit || out.Text != "Hello" {
		t.Errorf("recurrence within window should commit, got %+v", out)
	}
	if e.State() != Displayed {
		t.Errorf("state = %v, want displayed", e.State())
	}
}

func TestIdenticalTextCommitsAtMostOnce(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	commits := 0
	for i := 0; i < 10; i++ {
		out := e.Observe("Same line", now.Add(time.Duration(i)*50*time.Millisecond))
		if out.Commit {
			commits++
		}
	}
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
}

func TestNormalizedEquality(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Hello  world", now)
	out := e.Observe("Hello\nworld ", now.Add(50*time.Millisecond))
	if !out.Commit {
		t.Fatal("whitespace drift should still count as recurrence")
	}
	if out.Text != "Hello world" {
		t.Errorf("committed text = %q, want normalized form", out.Text)
	}

	// Further whitespace drift of the committed text must not re-trigger.
	out = e.Observe(" Hello   world", now.Add(100*time.Millisecond))
	if out.Commit {
		t.Error("noise drift of committed text re-committed")
	}
}

func TestImmediateCommit(t *testing.T) {
	cfg := testConfig()
	cfg.ImmediateCommit = true
	e := New(cfg)

	out := e.Observe("Fast line", time.Now())
	if !out.Commit {
		t.Error("immediate mode should commit on first sighting")
	}
}

func TestLateRecurrenceRestartsWindow(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	// Recurs after the window has elapsed: no commit, window restarts.
	out := e.Observe("Line", now.Add(500*time.Millisecond))
	if out.Commit {
		t.Error("late recurrence should not commit")
	}
	// Next recurrence inside the restarted window commits.
	out = e.Observe("Line", now.Add(600*time.Millisecond))
	if !out.Commit {
		t.Error("recurrence within restarted window should commit")
	}
}

func TestChangedCandidateResetsDebounce(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("First", now)
	e.Observe("Second", now.Add(50*time.Millisecond))
	out := e.Observe("First", now.Add(100*time.Millisecond))
	if out.Commit {
		t.Error("candidate churn should not commit")
	}
}

func TestEmptyRunExpiry(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))
	if e.State() != Displayed {
		t.Fatal("expected displayed state")
	}

	var expired bool
	for i := 0; i < 3; i++ {
		out := e.Observe("", now.Add(time.Duration(i+2)*100*time.Millisecond))
		expired = out.Expired
	}
	if !expired {
		t.Error("three consecutive empties should expire the display")
	}
	if e.State() != Idle {
		t.Errorf("state = %v, want idle", e.State())
	}
}

func TestSingleEmptyDoesNotExpire(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))

	out := e.Observe("", now.Add(100*time.Millisecond))
	if out.Expired {
		t.Error("one empty frame should not expire")
	}
	// Text returns: the run counter must reset.
	e.Observe("Line", now.Add(150*time.Millisecond))
	out = e.Observe("", now.Add(200*time.Millisecond))
	if out.Expired {
		t.Error("empty-run counter should reset when text returns")
	}
}

func TestRepeatCountsEmptyFrames(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))
	e.Observe("", now.Add(100*time.Millisecond))

	// The screen went blank and then stayed static, so recognition is
	// skipped; the repeats still count toward the empty-run expiry.
	out := e.Repeat(now.Add(200 * time.Millisecond))
	if out.Expired {
		t.Error("second consecutive empty should not expire yet")
	}
	out = e.Repeat(now.Add(300 * time.Millisecond))
	if !out.Expired {
		t.Error("third consecutive empty should expire the display")
	}
	if e.State() != Idle {
		t.Errorf("state = %v, want idle", e.State())
	}
}

func TestRepeatOfTextFrameDoesNotExpire(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))

	for i := 0; i < 5; i++ {
		if out := e.Repeat(now.Add(time.Duration(i+2) * 100 * time.Millisecond)); out.Expired {
			t.Fatal("static text frame must not count as empty")
		}
	}
	if e.State() != Displayed {
		t.Errorf("state = %v, want displayed", e.State())
	}
}

func TestForgetAllowsRecommit(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	out := e.Observe("Line", now.Add(50*time.Millisecond))
	if !out.Commit {
		t.Fatal("expected commit")
	}

	e.Forget(out.Text)
	if e.State() != Idle {
		t.Errorf("state = %v, want idle", e.State())
	}

	e.Observe("Line", now.Add(100*time.Millisecond))
	out = e.Observe("Line", now.Add(150*time.Millisecond))
	if !out.Commit {
		t.Error("forgotten text should commit again")
	}
}

func TestForgetIgnoresOtherText(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))

	e.Forget("Something else")

	out := e.Observe("Line", now.Add(100*time.Millisecond))
	if out.Commit {
		t.Error("committed text should still be deduped")
	}
}

func TestMaxDisplayDurationExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDisplayDuration = time.Second
	e := New(cfg)
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))

	out := e.Tick(now.Add(2 * time.Second))
	if !out.Expired {
		t.Error("display timeout should expire the entry")
	}
	if e.State() != Idle {
		t.Errorf("state = %v, want idle", e.State())
	}
}

func TestExpiredTextDoesNotRecommit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDisplayDuration = time.Second
	e := New(cfg)
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))
	e.Tick(now.Add(2 * time.Second))

	// The same text is still on screen; it must not commit again.
	out := e.Observe("Line", now.Add(3*time.Second))
	if out.Commit {
		t.Error("expired text re-committed")
	}
}

func TestNewTextAfterExpiryCommits(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("First", now)
	e.Observe("First", now.Add(50*time.Millisecond))
	e.Observe("", now.Add(100*time.Millisecond))
	e.Observe("", now.Add(200*time.Millisecond))
	e.Observe("", now.Add(300*time.Millisecond))

	e.Observe("Second", now.Add(400*time.Millisecond))
	out := e.Observe("Second", now.Add(450*time.Millisecond))
	if !out.Commit || out.Text != "Second" {
		t.Errorf("new text after expiry should commit, got %+v", out)
	}
}

func TestReset(t *testing.T) {
	e := New(testConfig())
	now := time.Now()

	e.Observe("Line", now)
	e.Observe("Line", now.Add(50*time.Millisecond))
	e.Reset()

	if e.State() != Idle {
		t.Errorf("state = %v, want idle", e.State())
	}
	// After a reset the same text may commit again.
	e.Observe("Line", now.Add(100*time.Millisecond))
	out := e.Observe("Line", now.Add(150*time.Millisecond))
	if !out.Commit {
		t.Error("same text should commit after reset")
	}
}
