package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/subsight/subsight/internal/config"
	"github.com/subsight/subsight/internal/hotkey"
	"github.com/subsight/subsight/internal/orchestrator"
	"github.com/subsight/subsight/internal/subtitle"
	"github.com/subsight/subsight/internal/trace"
	"github.com/subsight/subsight/internal/translate"
)

// Outgoing WebSocket messages.
type subtitleMessage struct {
	Type    string     `json:"type"`
	Lines   []lineJSON `json:"lines"`
	Visible bool       `json:"visible"`
}

type lineJSON struct {
	Source     string `json:"source"`
	Translated string `json:"translated"`
}

type clearMessage struct {
	Type string `json:"type"`
}

type visibilityMessage struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// actionMessage is the incoming control message; actions map to key events.
type actionMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server exposes the pipeline over REST and streams display events over
// WebSocket.
type Server struct {
	appCtx   context.Context
	mgr      *orchestrator.Manager
	cfg      *config.Store
	cache    *translate.Cache
	counters *translate.SessionCounters
	subs     *subtitle.Store
	keys     *hotkey.Source

	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a server and starts the display broadcaster. appCtx bounds the
// watch loops started through the API.
func New(appCtx context.Context, mgr *orchestrator.Manager, cfg *config.Store,
	cache *translate.Cache, counters *translate.SessionCounters,
	subs *subtitle.Store, keys *hotkey.Source) *Server {
	s := &Server{
		appCtx:     appCtx,
		mgr:        mgr,
		cfg:        cfg,
		cache:      cache,
		counters:   counters,
		subs:       subs,
		keys:       keys,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastDisplay()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(trace.Middleware)

	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/subtitle", s.handleSubtitle)
		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleHistoryClear)

		r.Get("/counters", s.handleCounters)
		r.Post("/counters/reset", s.handleCountersReset)

		r.Get("/cache", s.handleCacheStats)
		r.Post("/cache/clear", s.handleCacheClear)

		r.Get("/watch", s.handleWatchStatus)
		r.Post("/watch/start", s.handleWatchStart)
		r.Post("/watch/stop", s.handleWatchStop)
		r.Post("/capture", s.handleCaptureOnce)
		r.Get("/frame", s.handleFrame)

		r.Get("/config", s.handleConfigGet)
		r.Put("/config", s.handleConfigPut)
	})

	return r
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		trace.Logger(r.Context()).Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	ctx := r.Context()
	log := trace.Logger(ctx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Seed the client with the current display state.
	if lines := s.subs.Current(time.Now()); lines != nil {
		_ = wsjson.Write(ctx, conn, subtitleLinesMessage(lines, s.subs.Visible()))
	}

	for {
		var msg json.RawMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(ctx, conn, errorMessage{Type: "error", Message: "rate limit exceeded"})
			continue
		}

		var action actionMessage
		if err := json.Unmarshal(msg, &action); err != nil || action.Type != "action" {
			continue
		}
		act, ok := hotkey.ParseAction(action.Action)
		if !ok {
			_ = wsjson.Write(ctx, conn, errorMessage{Type: "error", Message: "unknown action"})
			continue
		}
		s.keys.Emit(hotkey.Event{Action: act})
	}
}

func subtitleLinesMessage(lines []subtitle.Line, visible bool) subtitleMessage {
	out := subtitleMessage{Type: "subtitle", Lines: make([]lineJSON, 0, len(lines)), Visible: visible}
	for _, l := range lines {
		out.Lines = append(out.Lines, lineJSON{Source: l.Source, Translated: l.Translated})
	}
	return out
}

func (s *Server) broadcastDisplay() {
	for ev := range s.subs.Events() {
		var msg any
		switch ev.Type {
		case subtitle.EventLines:
			msg = subtitleLinesMessage(ev.Lines, ev.Visible)
		case subtitle.EventClear:
			msg = clearMessage{Type: "clear"}
		case subtitle.EventVisibility:
			msg = visibilityMessage{Type: "visibility", Visible: ev.Visible}
		default:
			continue
		}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn, m any) {
				_ = wsjson.Write(context.Background(), c, m)
			}(conn, msg)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleSubtitle(w http.ResponseWriter, r *http.Request) {
	lines := s.subs.Current(time.Now())
	writeJSON(w, subtitleLinesMessage(lines, s.subs.Visible()))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	type entryJSON struct {
		ID          string    `json:"id"`
		Source      string    `json:"source"`
		Translated  string    `json:"translated"`
		FromCache   bool      `json:"from_cache"`
		CommittedAt time.Time `json:"committed_at"`
	}
	hist := s.subs.History()
	out := make([]entryJSON, 0, len(hist))
	for _, e := range hist {
		out = append(out, entryJSON{
			ID:          e.ID,
			Source:      e.Source,
			Translated:  e.Translated,
			FromCache:   e.FromCache,
			CommittedAt: e.CommittedAt,
		})
	}
	writeJSON(w, map[string]any{"entries": out})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.subs.ClearHistory()
	writeJSON(w, map[string]string{"status": "history_cleared"})
}

func (s *Server) handleCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"session_id": s.counters.SessionID(),
		"counts":     s.counters.Snapshot(),
	})
}

func (s *Server) handleCountersReset(w http.ResponseWriter, r *http.Request) {
	s.counters.Reset()
	writeJSON(w, map[string]string{
		"status":     "counters_reset",
		"session_id": s.counters.SessionID(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{"entries": s.cache.Len()})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	writeJSON(w, map[string]string{"status": "cache_cleared"})
}

func (s *Server) handleWatchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"watching": s.mgr.Watching()})
}

func (s *Server) handleWatchStart(w http.ResponseWriter, r *http.Request) {
	started := s.mgr.StartWatch(s.appCtx)
	writeJSON(w, map[string]bool{"watching": true, "started": started})
}

func (s *Server) handleWatchStop(w http.ResponseWriter, r *http.Request) {
	stopped := s.mgr.StopWatch()
	writeJSON(w, map[string]bool{"watching": false, "stopped": stopped})
}

func (s *Server) handleCaptureOnce(w http.ResponseWriter, r *http.Request) {
	go s.mgr.CaptureOnce(s.appCtx)
	writeJSON(w, map[string]string{"status": "capture_triggered"})
}

// handleFrame serves the last preprocessed frame for OCR debugging.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame := s.mgr.LastFrame()
	if frame == nil {
		http.Error(w, "no frame captured yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(frame)
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg.Snapshot())
}

// handleConfigPut patches the live configuration. Fields absent from the body
// keep their current values; the pipeline picks the change up next cycle.
func (s *Server) handleConfigPut(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg.Snapshot()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid config body", http.StatusBadRequest)
		return
	}
	s.cfg.Replace(cfg)
	trace.Logger(r.Context()).Info("configuration updated")
	writeJSON(w, cfg)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
