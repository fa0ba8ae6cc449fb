// Package viewer serves a live view of a loggery ring over HTTP. It
// exposes the embedded browser page on /, a paced WebSocket stream on
// /ws, and cursor-based JSON queries on /api/logs.
package viewer

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/valyala/fastjson"

	"github.com/YashSaxena9/loggery"
)

const sweepInterval = 30 * time.Second

// Server streams a publisher's ring to any number of subscribers.
type Server struct {
	pub  *loggery.Publisher
	cfg  loggery.ViewerConfig
	subs *Registry

	srv      *http.Server
	upgrader websocket.Upgrader
	parsers  fastjson.ParserPool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	startedAt  time.Time
	dropped    atomic.Uint64

	wsMu   sync.Mutex // guards closed and wsWG adds
	wsWG   sync.WaitGroup
	closed bool
}

// New builds a viewer for the given publisher and starts its
// background maintenance (idle sweeping, publish rate sampling).
func New(pub *loggery.Publisher, cfg loggery.ViewerConfig) *Server {
	cfg.Normalize()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		pub:  pub,
		cfg:  cfg,
		subs: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		baseCtx:    ctx,
		baseCancel: cancel,
		startedAt:  time.Now(),
	}
	s.subs.StartSweeper(ctx, sweepInterval, cfg.IdleTimeout())
	pub.StartRateTicker(ctx, time.Second)
	return s
}

// Registry exposes the live subscriptions, mainly for stats and tests.
func (s *Server) Registry() *Registry {
	return s.subs
}

// Handler returns the route table. Tests mount this on httptest
// servers instead of calling Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/api/logs", gzhttp.GzipHandler(http.HandlerFunc(s.handleLogs)))
	mux.Handle("/api/stats", gzhttp.GzipHandler(http.HandlerFunc(s.handleStats)))
	return mux
}

// Start runs the HTTP server on the configured address and blocks
// until Shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}
	log.Printf("viewer: listening on %s", s.cfg.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown terminates every subscription with a final status frame,
// waits for their goroutines to finish, and stops the HTTP server.
// Waiting is bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMu.Lock()
	s.closed = true
	s.wsMu.Unlock()

	for _, sub := range s.subs.List() {
		sub.close(StateDisconnected, "server shutting down")
	}
	s.baseCancel()

	// Hijacked WebSocket connections are invisible to the HTTP server's
	// shutdown, so their handlers are joined here.
	done := make(chan struct{})
	go func() {
		s.wsWG.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if s.srv != nil {
		if serr := s.srv.Shutdown(ctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleWS upgrades the connection and runs the subscription to
// completion. Filter and pacing come from query parameters; bad values
// fall back to defaults rather than rejecting the client.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsMu.Lock()
	if s.closed {
		s.wsMu.Unlock()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wsWG.Add(1)
	s.wsMu.Unlock()
	defer s.wsWG.Done()

	q := r.URL.Query()
	min := loggery.ParseLevelDefault(q.Get("level"), loggery.LevelTrace)
	refreshMs, _ := strconv.Atoi(q.Get("refresh_ms"))
	refresh := s.cfg.ClampRefresh(refreshMs)
	since, _ := strconv.ParseUint(q.Get("since"), 10, 64)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("viewer: upgrade failed: %v", err)
		return
	}

	sub := newSubscription(s.baseCtx, s.pub, s.cfg, conn, &s.parsers, min, refresh, since)
	s.subs.Add(sub)
	log.Printf("viewer: subscription %s connected from %s (level=%s refresh=%s)",
		sub.ID, sub.RemoteAddr, min, refresh)

	sub.run()

	s.subs.Remove(sub.ID)
	if sub.State() == StateError {
		s.dropped.Add(1)
	}
	log.Printf("viewer: subscription %s closed (%s)", sub.ID, sub.State())
}

// handleLogs serves one page of records: GET /api/logs?since=N&level=
// warn&limit=100. The response carries the cursor to pass as since on
// the next call.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	since, _ := strconv.ParseUint(q.Get("since"), 10, 64)
	min := loggery.ParseLevelDefault(q.Get("level"), loggery.LevelTrace)

	limit := 100
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	// Next is the scan high-water mark so pollers skip filtered
	// records, except when limit truncates the page; then it points at
	// the last returned record so the next request resumes there.
	events, next := s.pub.Scan(min, since)
	if len(events) > limit {
		events = events[:limit]
		next = events[limit-1].Seq
	}
	if events == nil {
		events = []loggery.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LogPage{Events: events, Next: next}); err != nil {
		log.Printf("viewer: JSON encode error: %v", err)
	}
}

// Stats is the response body of GET /api/stats.
type Stats struct {
	UptimeMs       int64               `json:"uptime_ms"`
	TotalPublished uint64              `json:"total_published"`
	Rate           float64             `json:"rate"`
	LastSeq        uint64              `json:"last_seq"`
	BufferLen      int                 `json:"buffer_len"`
	BufferCap      int                 `json:"buffer_cap"`
	Levels         map[string]int      `json:"levels"`
	DroppedSubs    uint64              `json:"dropped_subscriptions"`
	Subscriptions  []SubscriptionStats `json:"subscriptions"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ring := s.pub.Ring()
	subs := s.subs.List()
	stats := Stats{
		UptimeMs:       time.Since(s.startedAt).Milliseconds(),
		TotalPublished: s.pub.Total(),
		Rate:           s.pub.Rate(),
		LastSeq:        ring.LastSeq(),
		BufferLen:      ring.Len(),
		BufferCap:      ring.Cap(),
		Levels:         ring.LevelCounts(),
		DroppedSubs:    s.dropped.Load(),
		Subscriptions:  make([]SubscriptionStats, 0, len(subs)),
	}
	for _, sub := range subs {
		stats.Subscriptions = append(stats.Subscriptions, sub.Stats())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Printf("viewer: JSON encode error: %v", err)
	}
}
