package audit

import (
	"sync"
	"time"
)

// IDGenerator hands out epoch-millisecond ids that strictly increase.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator creates a generator using the wall clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns the current epoch-ms, or last+1 when the clock has not
// moved past the previous id.
func (g *IDGenerator) Next() (int64, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	id := now.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id, now
}
