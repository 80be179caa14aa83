package buffer

import (
	"context"
	"sync"
)

const (
	ringCapacity = 100
	ringTrimTo   = 50
)

// RingBuffer is the documented data-loss fallback: an in-memory queue used
// when the SQLite buffer file cannot be opened. It never blocks on disk
// and never persists, so a process restart loses whatever it holds. When
// it fills past ringCapacity, the oldest entries are dropped down to
// ringTrimTo rather than growing unbounded.
type RingBuffer struct {
	mu      sync.Mutex
	seq     int64
	entries []Entry
}

// NewRingBuffer constructs an empty in-memory buffer.
func NewRingBuffer() *RingBuffer {
	return &RingBuffer{}
}

func (r *RingBuffer) Enqueue(ctx context.Context, data string, timestamp int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.entries = append(r.entries, Entry{
		Seq:       r.seq,
		Timestamp: timestamp,
		Data:      data,
	})
	if len(r.entries) > ringCapacity {
		drop := len(r.entries) - ringTrimTo
		r.entries = append([]Entry(nil), r.entries[drop:]...)
	}
	return r.seq, nil
}

func (r *RingBuffer) Peek(ctx context.Context, n int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if e.Sent {
			continue
		}
		out = append(out, e)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

func (r *RingBuffer) MarkSent(ctx context.Context, seq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].Seq == seq {
			r.entries[i].Sent = true
			return nil
		}
	}
	return nil
}

// GC drops sent entries unconditionally; the ring never grows large
// enough for age-based retention to matter.
func (r *RingBuffer) GC(ctx context.Context, retentionSeconds int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.Sent {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

func (r *RingBuffer) Close() error {
	return nil
}
