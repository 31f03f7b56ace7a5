package document

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const idPrefix = "blk_"

// IDAllocator hands out fresh block ids. It is safe for concurrent use.
type IDAllocator struct {
	mu   sync.Mutex
	next uint64
}

// NewIDAllocator returns an allocator whose first id uses counter value next.
func NewIDAllocator(next uint64) *IDAllocator {
	return &IDAllocator{next: next}
}

// Next returns a new id and advances the counter.
func (a *IDAllocator) Next() BlockID {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := FormatID(a.next)
	a.next++
	return id
}

// Counter returns the counter value the next id will use. Persist it to resume allocation later.
func (a *IDAllocator) Counter() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// Observe advances the counter past every allocator-shaped id in d, so ids from imported or loaded documents are never handed out again.
func (a *IDAllocator) Observe(d Document) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id := range d.Blocks {
		if n, ok := ParseID(id); ok && n >= a.next {
			a.next = n + 1
		}
	}
}

// FormatID renders counter value n as a block id.
func FormatID(n uint64) BlockID {
	return BlockID(fmt.Sprintf("%s%012x", idPrefix, n))
}

// ParseID reports the counter value encoded in id, if id has the allocator's form.
func ParseID(id BlockID) (uint64, bool) {
	s, ok := strings.CutPrefix(string(id), idPrefix)
	if !ok || len(s) < 12 {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
