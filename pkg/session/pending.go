package session

import (
	"encoding/json"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ocastgo/ocast/pkg/ocast"
)

// pendingEntry is one in-flight command awaiting its reply, per spec.md
// §9 ("a map from sequence id to a closure + an expected-type descriptor").
// decode is nil when the expected reply type is "none".
type pendingEntry struct {
	decode    func(json.RawMessage) (any, error)
	onSuccess func(any)
	onFailure func(*ocast.Error)
}

// pendingTable is the session's map of in-flight commands, guarded during
// insertion, lookup+removal, and bulk-clear per spec.md §5.
type pendingTable struct {
	mu      sync.Mutex
	entries map[int64]*pendingEntry
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[int64]*pendingEntry)}
}

func (t *pendingTable) insert(id int64, e *pendingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = e
}

func (t *pendingTable) remove(id int64) (*pendingEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return e, ok
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// drain removes and returns every pending entry, leaving the table empty.
func (t *pendingTable) drain() []*pendingEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*pendingEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.entries = make(map[int64]*pendingEntry)
	return out
}

// seqGenerator produces strictly positive, unique-while-in-flight sequence
// ids, wrapping to 1 instead of overflowing past the signed 64-bit maximum
// (spec.md §4.H).
type seqGenerator struct {
	counter int64
}

func (g *seqGenerator) next() int64 {
	for {
		cur := atomic.LoadInt64(&g.counter)
		next := cur + 1
		if cur == math.MaxInt64 {
			next = 1
		}
		if atomic.CompareAndSwapInt64(&g.counter, cur, next) {
			return next
		}
	}
}
