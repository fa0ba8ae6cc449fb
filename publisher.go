package loggery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher assigns sequence numbers, appends records to the ring, and
// wakes anyone waiting for new data. The sequence counter starts at
// zero on process start and is never reset; the first record published
// gets sequence 1.
type Publisher struct {
	ring *Ring

	// seqMu holds sequence issue and ring append together; insertion
	// order in the ring must match sequence order.
	seqMu sync.Mutex
	seq   atomic.Uint64
	total atomic.Uint64

	mu         sync.RWMutex
	waiters    map[uint64]chan struct{}
	nextWaiter uint64

	// Publish rate, updated by the stats ticker.
	rateCount   atomic.Int64
	currentRate float64
	rateMu      sync.RWMutex
	rateOn      atomic.Bool
}

// NewPublisher wraps the given ring. A nil ring gets replaced with one
// of default capacity so Publish can never fail.
func NewPublisher(ring *Ring) *Publisher {
	if ring == nil {
		ring = NewRing(0)
	}
	return &Publisher{
		ring:    ring,
		waiters: make(map[uint64]chan struct{}),
	}
}

// Ring returns the buffer this publisher appends to.
func (p *Publisher) Ring() *Ring {
	return p.ring
}

// Publish stamps the message with the next sequence number and the
// current time, stores it, and signals waiters. It never blocks longer
// than one stamp-and-append under the publish lock and never returns
// an error. The stored record is returned so callers can reuse its
// sequence and timestamp.
func (p *Publisher) Publish(level Level, msg string) Record {
	rec := Record{
		Level:   level,
		Time:    time.Now(),
		Message: msg,
	}
	p.seqMu.Lock()
	rec.Seq = p.seq.Add(1)
	p.ring.Append(rec)
	p.seqMu.Unlock()
	p.total.Add(1)
	p.rateCount.Add(1)
	p.notify()
	return rec
}

// Snapshot is a convenience passthrough to the ring.
func (p *Publisher) Snapshot(min Level, after uint64) []Record {
	return p.ring.Snapshot(min, after)
}

// Scan is a convenience passthrough to the ring.
func (p *Publisher) Scan(min Level, after uint64) ([]Record, uint64) {
	return p.ring.Scan(min, after)
}

// Subscribe registers a wake channel. The channel has capacity one and
// signals are coalesced: an un-drained subscriber sees at most one
// pending wake, and a slow subscriber never blocks Publish.
func (p *Publisher) Subscribe() (uint64, <-chan struct{}) {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.nextWaiter++
	id := p.nextWaiter
	p.waiters[id] = ch
	p.mu.Unlock()
	return id, ch
}

// Unsubscribe removes a wake channel registered by Subscribe.
func (p *Publisher) Unsubscribe(id uint64) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

func (p *Publisher) notify() {
	p.mu.RLock()
	for _, ch := range p.waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	p.mu.RUnlock()
}

// Seq returns the most recently issued sequence number.
func (p *Publisher) Seq() uint64 {
	return p.seq.Load()
}

// Total returns the number of records published over the process
// lifetime, independent of eviction.
func (p *Publisher) Total() uint64 {
	return p.total.Load()
}

// StartRateTicker starts a background goroutine that recomputes the
// publish rate every interval until ctx is cancelled. Only the first
// call does anything.
func (p *Publisher) StartRateTicker(ctx context.Context, interval time.Duration) {
	if !p.rateOn.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				count := p.rateCount.Swap(0)
				rate := float64(count) / interval.Seconds()
				p.rateMu.Lock()
				p.currentRate = rate
				p.rateMu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Rate returns the most recent publish rate in records per second.
func (p *Publisher) Rate() float64 {
	p.rateMu.RLock()
	defer p.rateMu.RUnlock()
	return p.currentRate
}
