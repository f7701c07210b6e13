package dashboard

import (
	"sort"
	"sync"
)

type replayEntry struct {
	seq  int64
	data []byte
}

// ReplayBuffer keeps the last N signal envelopes in sequence order so a
// reconnecting client can catch up from the last seq it saw. Pushes must
// carry increasing sequence numbers.
type ReplayBuffer struct {
	mu      sync.RWMutex
	entries []replayEntry
	limit   int
}

func NewReplayBuffer(limit int) *ReplayBuffer {
	if limit <= 0 {
		limit = 200
	}
	return &ReplayBuffer{entries: make([]replayEntry, 0, limit), limit: limit}
}

// Push stores a copy of data, dropping the oldest entry once full.
func (rb *ReplayBuffer) Push(seq int64, data []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	e := replayEntry{seq: seq, data: append([]byte(nil), data...)}
	if len(rb.entries) == rb.limit {
		copy(rb.entries, rb.entries[1:])
		rb.entries[len(rb.entries)-1] = e
		return
	}
	rb.entries = append(rb.entries, e)
}

// Since returns the envelopes with seq > after, oldest first.
func (rb *ReplayBuffer) Since(after int64) [][]byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	i := sort.Search(len(rb.entries), func(i int) bool { return rb.entries[i].seq > after })
	out := make([][]byte, 0, len(rb.entries)-i)
	for _, e := range rb.entries[i:] {
		out = append(out, e.data)
	}
	return out
}

func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return len(rb.entries)
}
