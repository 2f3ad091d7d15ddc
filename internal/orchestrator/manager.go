package orchestrator

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/subsight/subsight/internal/capture"
	"github.com/subsight/subsight/internal/config"
	"github.com/subsight/subsight/internal/hotkey"
	"github.com/subsight/subsight/internal/ocr"
	"github.com/subsight/subsight/internal/preprocess"
	"github.com/subsight/subsight/internal/stability"
	"github.com/subsight/subsight/internal/subtitle"
	"github.com/subsight/subsight/internal/trace"
	"github.com/subsight/subsight/internal/translate"
)

// Translator is the translation entry point, normally the provider chain.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) (string, error)
}

// Manager coordinates the capture cycle: grab a frame, gate it, preprocess,
// recognize, debounce, translate, display. Every fault inside a cycle skips
// that cycle; the loop itself never dies.
type Manager struct {
	cfg        *config.Store
	capturer   capture.Capturer
	engine     ocr.Engine
	translator Translator
	cache      *translate.Cache
	stab       *stability.Engine
	subs       *subtitle.Store
	keys       *hotkey.Source

	// inFlight enforces skip-not-queue: a periodic tick that fires while the
	// previous cycle still runs is dropped.
	inFlight atomic.Bool

	mu       sync.Mutex
	watching bool
	stopCh   chan struct{}

	hashMu     sync.Mutex
	lastHash   *goimagehash.ImageHash
	lastRegion capture.Region

	frameMu   sync.RWMutex
	lastFrame []byte // preprocessed frame as PNG, for debugging
}

// New creates a manager over the assembled pipeline stages.
func New(cfg *config.Store, capturer capture.Capturer, engine ocr.Engine, translator Translator,
	cache *translate.Cache, stab *stability.Engine, subs *subtitle.Store, keys *hotkey.Source) *Manager {
	return &Manager{
		cfg:        cfg,
		capturer:   capturer,
		engine:     engine,
		translator: translator,
		cache:      cache,
		stab:       stab,
		subs:       subs,
		keys:       keys,
	}
}

// Start begins consuming key events. The periodic watch loop starts separately
// through StartWatch or the toggle action.
func (m *Manager) Start(ctx context.Context) {
	go m.keyLoop(ctx)
}

// Stop shuts down the watch loop if it is running.
func (m *Manager) Stop() {
	m.StopWatch()
}

func (m *Manager) keyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.keys.Events():
			m.handleKey(ctx, ev)
		}
	}
}

func (m *Manager) handleKey(ctx context.Context, ev hotkey.Event) {
	log := trace.Logger(ctx)
	log.Debug("key action", "action", ev.Action)

	switch ev.Action {
	case hotkey.ActionCaptureOnce:
		go m.CaptureOnce(ctx)
	case hotkey.ActionToggleWatch:
		if m.Watching() {
			m.StopWatch()
		} else {
			m.StartWatch(ctx)
		}
	case hotkey.ActionHideTranslation:
		m.subs.Hide()
	case hotkey.ActionToggleVisibility:
		m.subs.SetVisible(!m.subs.Visible())
	}
}

// StartWatch launches the periodic capture loop. Returns false when already
// watching.
func (m *Manager) StartWatch(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watching {
		return false
	}
	m.watching = true
	m.stopCh = make(chan struct{})
	go m.watchLoop(ctx, m.stopCh)
	trace.Logger(ctx).Info("watch started")
	return true
}

// StopWatch stops the periodic loop. Returns false when not watching.
func (m *Manager) StopWatch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.watching {
		return false
	}
	close(m.stopCh)
	m.watching = false
	return true
}

// Watching reports whether the periodic loop is running.
func (m *Manager) Watching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watching
}

func (m *Manager) watchLoop(ctx context.Context, stopCh <-chan struct{}) {
	interval := m.cfg.Snapshot().CaptureInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			// Hot-reloaded interval takes effect on the next tick.
			if next := m.cfg.Snapshot().CaptureInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}

			if !m.inFlight.CompareAndSwap(false, true) {
				trace.Logger(ctx).Debug("cycle still in flight, skipping tick")
				continue
			}
			go func() {
				defer m.inFlight.Store(false)
				m.cycle(ctx, stopCh)
			}()
		}
	}
}

// CaptureOnce runs a single cycle outside the periodic loop.
func (m *Manager) CaptureOnce(ctx context.Context) {
	m.cycle(ctx, nil)
}

// cycle runs one capture pass. stopCh bounds a periodic cycle to its watch
// run; it is nil for one-shot captures.
func (m *Manager) cycle(ctx context.Context, stopCh <-chan struct{}) {
	ctx, span := trace.StartSpan(ctx, "capture_cycle")
	defer span.End()
	log := trace.Logger(ctx)

	snap := m.cfg.Snapshot()
	now := time.Now()

	frame, err := m.capturer.Capture(ctx, snap.Region)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Warn("capture failed", "error", err)
		return
	}

	// Near-identical frames cannot change the text; skip OCR but keep the
	// display timeout running.
	// An unchanged frame repeats the previous recognition: a static blank
	// screen keeps counting toward the empty-run expiry, and the display
	// timeout keeps running.
	if m.similarFrame(frame.Image, snap.Region) {
		span.SetAttr("skipped", "similar_frame")
		if out := m.stab.Repeat(now); out.Expired {
			m.subs.Hide()
		}
		return
	}

	img := preprocess.Process(frame.Image, snap.Preprocess)
	m.storeFrame(img)
	if snap.DebugImagePath != "" {
		preprocess.WriteDebug(img, snap.DebugImagePath)
	}

	res, err := m.engine.Recognize(ctx, img)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Warn("recognition failed", "error", err)
		return
	}
	span.SetAttr("text_len", len(res.Text))

	out := m.stab.Observe(res.Text, now)
	if out.Expired && !out.Commit {
		m.subs.Hide()
	}
	if !out.Commit {
		return
	}

	// The region may have been reconfigured while this cycle ran; text read
	// from the old region must not reach the display.
	if cur := m.cfg.Snapshot(); cur.Region != snap.Region {
		log.Debug("region changed mid-cycle, discarding text")
		m.stab.Forget(out.Text)
		return
	}

	// A periodic cycle that outlives toggle-off finishes without displaying.
	if stopped(stopCh) {
		log.Debug("watch stopped mid-cycle, discarding text")
		m.stab.Forget(out.Text)
		return
	}

	if err := m.translateAndDisplay(ctx, snap, out.Text); err != nil {
		// Nothing was displayed, so the same line may commit again once a
		// provider recovers.
		m.stab.Forget(out.Text)
	}
}

func stopped(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (m *Manager) translateAndDisplay(ctx context.Context, snap config.Config, text string) error {
	ctx, span := trace.StartSpan(ctx, "translate_and_display")
	defer span.End()
	log := trace.Logger(ctx)

	key := translate.NewKey(text, snap.SourceLang, snap.TargetLang)
	if cached, ok := m.cache.Get(key); ok {
		span.SetAttr("cache", "hit")
		m.subs.Commit(text, cached, true, time.Now())
		return nil
	}

	translated, err := m.translator.Translate(ctx, translate.Request{
		Text:       text,
		SourceLang: snap.SourceLang,
		TargetLang: snap.TargetLang,
		Hint:       snap.OpenAIGameContext,
	})
	if err != nil {
		// The untranslated text is never displayed in its place.
		span.SetAttr("error", err.Error())
		log.Warn("translation failed, nothing displayed", "error", err)
		return err
	}

	m.cache.Put(key, translated)
	m.subs.Commit(text, translated, false, time.Now())
	log.Info("subtitle committed", "source_len", len(text), "translated_len", len(translated))
	return nil
}

func (m *Manager) storeFrame(img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return
	}
	m.frameMu.Lock()
	m.lastFrame = buf.Bytes()
	m.frameMu.Unlock()
}

// LastFrame returns the most recent preprocessed frame as PNG, or nil before
// the first recognized cycle.
func (m *Manager) LastFrame() []byte {
	m.frameMu.RLock()
	defer m.frameMu.RUnlock()
	return m.lastFrame
}

// similarFrame reports whether the frame is perceptually unchanged from the
// previous one for the same region. A region change always resets the gate.
func (m *Manager) similarFrame(img image.Image, region capture.Region) bool {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	m.hashMu.Lock()
	defer m.hashMu.Unlock()

	if m.lastHash == nil || region != m.lastRegion {
		m.lastHash = hash
		m.lastRegion = region
		return false
	}

	dist, err := m.lastHash.Distance(hash)
	if err != nil {
		m.lastHash = hash
		return false
	}
	if dist <= MaxHashDistance {
		return true
	}

	m.lastHash = hash
	return false
}
