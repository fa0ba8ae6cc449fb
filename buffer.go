package loggery

import "sync"

// DefaultCapacity is used when a ring is created with a non-positive
// capacity.
const DefaultCapacity = 1024

// Ring is a bounded FIFO buffer holding the most recent records. The
// backing array is allocated once; when the ring is full the oldest
// slot is overwritten. One writer at a time, any number of concurrent
// readers.
type Ring struct {
	mu   sync.RWMutex
	buf  []Record
	next int // index of the slot the next append writes
	size int // number of live records, 0..len(buf)
}

// NewRing returns an empty ring retaining at most capacity records.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Record, capacity)}
}

// Append inserts a record, evicting the oldest one when the ring is
// full. It never fails.
func (r *Ring) Append(rec Record) {
	r.mu.Lock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
	r.mu.Unlock()
}

// Snapshot returns copies of all retained records with level >= min and
// sequence > after, in ascending sequence order. No matches yields an
// empty result, never an error. Records appended while a snapshot is in
// flight are not included.
func (r *Ring) Snapshot(min Level, after uint64) []Record {
	out, _ := r.Scan(min, after)
	return out
}

// Scan is Snapshot plus the highest sequence the scan covered, read
// under the same lock hold. Streaming cursors advance to that value so
// records a filter skipped are never re-delivered when the filter
// widens later. An empty ring reports the caller's own cursor back.
func (r *Ring) Scan(min Level, after uint64) ([]Record, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	start := r.next - r.size
	if start < 0 {
		start += len(r.buf)
	}
	last := after
	for i := 0; i < r.size; i++ {
		rec := r.buf[(start+i)%len(r.buf)]
		if rec.Seq > last {
			last = rec.Seq
		}
		if rec.Seq <= after || rec.Level < min {
			continue
		}
		out = append(out, rec)
	}
	return out, last
}

// Clear discards every retained record. Sequence numbers are owned by
// the publisher and keep increasing afterwards, so cursors held by live
// subscribers stay valid.
func (r *Ring) Clear() {
	r.mu.Lock()
	clear(r.buf)
	r.next = 0
	r.size = 0
	r.mu.Unlock()
}

// Len returns the number of retained records.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the fixed capacity of the ring.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// LastSeq returns the sequence number of the newest retained record, or
// zero when the ring is empty.
func (r *Ring) LastSeq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.size == 0 {
		return 0
	}
	last := r.next - 1
	if last < 0 {
		last += len(r.buf)
	}
	return r.buf[last].Seq
}

// LevelCounts returns how many retained records sit at each level,
// keyed by level name.
func (r *Ring) LevelCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(levelNames))
	start := r.next - r.size
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.size; i++ {
		counts[r.buf[(start+i)%len(r.buf)].Level.String()]++
	}
	return counts
}
