package viewer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"

	"github.com/YashSaxena9/loggery"
)

// Connection liveness tuning.
const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
	maxControlBytes = 512
)

// State tracks where a subscription is in its lifecycle. It only moves
// forward: Connected, then Streaming, then one of the terminal states.
type State int32

const (
	StateConnected State = iota
	StateStreaming
	StateDisconnected
	StateError
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateDisconnected:
		return "disconnected"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Subscription is one WebSocket client receiving a paced stream of
// records. Three goroutines serve it: a reader for control messages, a
// writer that owns the connection's write side, and the stream loop
// that snapshots the ring and fills the writer's queue. The stream
// loop never blocks on the client; a full queue drops the whole
// subscription instead.
type Subscription struct {
	ID         string
	RemoteAddr string
	StartedAt  time.Time

	pub     *loggery.Publisher
	cfg     loggery.ViewerConfig
	conn    *websocket.Conn
	parsers *fastjson.ParserPool

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	minLevel  atomic.Int32
	refresh   atomic.Int64 // interval in nanoseconds
	cursor    atomic.Uint64
	dirty     atomic.Bool
	refreshCh chan struct{}

	queue    chan Frame
	sent     atomic.Uint64
	dropped  atomic.Uint64
	lastSeen atomic.Int64 // unix nanos of last sign of life

	reason    atomic.Value // string, set once by close
	closeOnce sync.Once
}

func newSubscription(ctx context.Context, pub *loggery.Publisher, cfg loggery.ViewerConfig,
	conn *websocket.Conn, parsers *fastjson.ParserPool,
	min loggery.Level, refresh time.Duration, since uint64) *Subscription {

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		ID:         uuid.New().String(),
		RemoteAddr: conn.RemoteAddr().String(),
		StartedAt:  time.Now(),
		pub:        pub,
		cfg:        cfg,
		conn:       conn,
		parsers:    parsers,
		ctx:        ctx,
		cancel:     cancel,
		refreshCh:  make(chan struct{}, 1),
		queue:      make(chan Frame, cfg.QueueSize),
	}
	s.state.Store(int32(StateConnected))
	s.minLevel.Store(int32(min))
	s.refresh.Store(int64(refresh))
	s.cursor.Store(since)
	s.lastSeen.Store(time.Now().UnixNano())
	return s
}

// run drives the subscription until the client goes away or the server
// closes it. It owns cleanup: when it returns the connection is closed,
// the writer and reader goroutines have exited, and the publisher wake
// channel is released.
func (s *Subscription) run() {
	defer s.cancel()

	wakeID, wake := s.pub.Subscribe()
	defer s.pub.Unsubscribe(wakeID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		s.readLoop()
	}()

	s.streamLoop(wake)

	s.cancel()
	<-writerDone
	// Closing the connection is what unblocks the reader's pending
	// ReadMessage.
	s.conn.Close()
	<-readerDone
}

// streamLoop paces delivery. The first batch goes out immediately so a
// fresh client sees the retained backlog without waiting a tick; after
// that, at most one frame per refresh interval: data when something
// new matched the filter, a heartbeat otherwise. A publish wake
// short-circuits the wait only when the subscription has already been
// idle a full interval, so sparse traffic arrives promptly without
// letting a fast publisher exceed the paced rate.
func (s *Subscription) streamLoop(wake <-chan struct{}) {
	s.state.Store(int32(StateStreaming))
	s.flush()
	last := time.Now()

	timer := time.NewTimer(s.interval())
	defer timer.Stop()
	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.interval())
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-wake:
			if time.Since(last) < s.interval() {
				s.dirty.Store(true)
				continue
			}
			s.dirty.Store(false)
			s.flush()
			last = time.Now()
			resetTimer()
		case <-s.refreshCh:
			resetTimer()
		case <-timer.C:
			if s.dirty.Swap(false) {
				s.flush()
			} else {
				s.enqueue(Frame{Status: StatusHeartbeat, Next: s.cursor.Load()})
			}
			last = time.Now()
			timer.Reset(s.interval())
		}
	}
}

// flush scans everything past the cursor and queues matches for the
// writer. The cursor advances to the highest sequence the scan
// covered, matching or not, so nothing at or below it is ever sent
// again, even after the client widens its filter.
func (s *Subscription) flush() {
	events, last := s.pub.Scan(s.level(), s.cursor.Load())
	if len(events) == 0 {
		s.cursor.Store(last)
		s.enqueue(Frame{Status: StatusHeartbeat, Next: last})
		return
	}
	if s.enqueue(Frame{Status: StatusData, Events: events, Next: last}) {
		s.cursor.Store(last)
	}
}

// enqueue hands a frame to the writer without blocking. A full queue
// means the client is not draining; the subscription is dropped rather
// than letting it stall the stream loop.
func (s *Subscription) enqueue(f Frame) bool {
	select {
	case s.queue <- f:
		return true
	default:
		s.dropped.Add(1)
		log.Printf("viewer: subscription %s cannot keep up, dropping it", s.ID)
		s.close(StateError, "slow consumer")
		return false
	}
}

// writeLoop is the only goroutine that writes to the connection. It
// tolerates up to FailureLimit consecutive write errors before giving
// the subscription up, and sends a final terminated frame when the
// server is the one closing the stream.
func (s *Subscription) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	failures := 0
	for {
		select {
		case <-s.ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteJSON(Frame{Status: StatusTerminated, Next: s.cursor.Load(), Reason: s.Reason()})
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case f := <-s.queue:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(f); err != nil {
				failures++
				if failures >= s.cfg.FailureLimit {
					log.Printf("viewer: subscription %s failed %d consecutive writes: %v", s.ID, failures, err)
					s.close(StateError, "write failed")
					return
				}
				continue
			}
			failures = 0
			s.sent.Add(1)
			s.lastSeen.Store(time.Now().UnixNano())
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				failures++
				if failures >= s.cfg.FailureLimit {
					s.close(StateError, "ping failed")
					return
				}
			}
		}
	}
}

// readLoop consumes control messages and pongs. Any read error counts
// as the client disconnecting.
func (s *Subscription) readLoop() {
	s.conn.SetReadLimit(maxControlBytes)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.lastSeen.Store(time.Now().UnixNano())
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.close(StateDisconnected, "")
			return
		}
		p := s.parsers.Get()
		ctrl, perr := parseControl(p, data)
		s.parsers.Put(p)
		if perr != nil {
			log.Printf("viewer: bad control from %s: %v", s.RemoteAddr, perr)
			continue
		}
		s.apply(ctrl)
	}
}

// apply executes a control message. Level changes take effect from the
// current cursor forward; they never rewind it.
func (s *Subscription) apply(c control) {
	switch c.action {
	case actionSetLevel:
		s.minLevel.Store(int32(c.level))
		s.dirty.Store(true)
	case actionSetRefresh:
		s.refresh.Store(int64(s.cfg.ClampRefresh(c.refreshMs)))
		select {
		case s.refreshCh <- struct{}{}:
		default:
		}
	case actionClear:
		s.pub.Ring().Clear()
	}
	s.lastSeen.Store(time.Now().UnixNano())
}

// close records the terminal state once and cancels the subscription.
// The first caller wins; later calls are no-ops.
func (s *Subscription) close(st State, reason string) {
	s.closeOnce.Do(func() {
		s.reason.Store(reason)
		s.state.Store(int32(st))
		s.cancel()
	})
}

func (s *Subscription) level() loggery.Level {
	return loggery.Level(s.minLevel.Load())
}

func (s *Subscription) interval() time.Duration {
	return time.Duration(s.refresh.Load())
}

// State returns the subscription's current lifecycle state.
func (s *Subscription) State() State {
	return State(s.state.Load())
}

// Cursor returns the highest sequence delivered so far.
func (s *Subscription) Cursor() uint64 {
	return s.cursor.Load()
}

// Reason returns why the subscription was closed, if it was.
func (s *Subscription) Reason() string {
	if v, ok := s.reason.Load().(string); ok {
		return v
	}
	return ""
}

// SubscriptionStats is the stats endpoint's view of one subscription.
type SubscriptionStats struct {
	ID          string `json:"id"`
	RemoteAddr  string `json:"remote_addr"`
	State       string `json:"state"`
	Level       string `json:"level"`
	RefreshMs   int64  `json:"refresh_ms"`
	Cursor      uint64 `json:"cursor"`
	Sent        uint64 `json:"sent"`
	Dropped     uint64 `json:"dropped"`
	ConnectedMs int64  `json:"connected_ms"`
}

// Stats copies the subscription's counters for reporting.
func (s *Subscription) Stats() SubscriptionStats {
	return SubscriptionStats{
		ID:          s.ID,
		RemoteAddr:  s.RemoteAddr,
		State:       s.State().String(),
		Level:       s.level().String(),
		RefreshMs:   s.interval().Milliseconds(),
		Cursor:      s.cursor.Load(),
		Sent:        s.sent.Load(),
		Dropped:     s.dropped.Load(),
		ConnectedMs: time.Since(s.StartedAt).Milliseconds(),
	}
}

// Registry tracks live subscriptions. A background sweeper prunes
// entries whose connection stopped showing signs of life.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[string]*Subscription)}
}

// Add registers a subscription.
func (r *Registry) Add(s *Subscription) {
	r.mu.Lock()
	r.subs[s.ID] = s
	r.mu.Unlock()
}

// Remove forgets a subscription by ID.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Get retrieves a subscription by ID.
func (r *Registry) Get(id string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[id]
	return s, ok
}

// List returns the current subscriptions in no particular order.
func (r *Registry) List() []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		list = append(list, s)
	}
	return list
}

// Count returns the number of live subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// PruneStale closes and removes subscriptions that have not shown life
// within timeout. It returns how many were dropped.
func (r *Registry) PruneStale(timeout time.Duration) int {
	now := time.Now().UnixNano()
	cutoff := timeout.Nanoseconds()

	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, s := range r.subs {
		if now-s.lastSeen.Load() > cutoff {
			s.close(StateDisconnected, "idle timeout")
			delete(r.subs, id)
			count++
		}
	}
	return count
}

// StartSweeper starts a background goroutine that prunes stale
// subscriptions every interval until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.PruneStale(timeout); n > 0 {
					log.Printf("viewer: pruned %d stale subscriptions", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
