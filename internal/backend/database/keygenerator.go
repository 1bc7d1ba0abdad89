package database

import (
	"strconv"
	"sync"
	"time"
)

// idGenerator hands out millisecond timestamps as ids. When two ids are requested
// within the same millisecond (or the clock steps back) the previous value is bumped,
// so ids stay unique and strictly increasing for the life of the process.
type idGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

var defaultGenerator = &idGenerator{now: time.Now}

func (g *idGenerator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

// GenerateID returns a new record id.
func GenerateID() string {
	return defaultGenerator.next()
}
