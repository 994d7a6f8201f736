package testutil

import (
	"strconv"
	"sync"
	"time"

	"frameforge/internal/ff"
)

var (
	_ ff.Clock       = (*StubClock)(nil)
	_ ff.IDGenerator = (*StubIDGenerator)(nil)
)

// StubClock is an ff.Clock that only moves when told to.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock starts at 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock by d, which may be negative.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out "id-1", "id-2", ... or the same sequence under
// another prefix.
type StubIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewStubIDGenerator() *StubIDGenerator {
	return NewPrefixedIDGenerator("id-")
}

// NewPrefixedIDGenerator is for tests that reopen a store and must not
// collide with ids already issued by another generator.
func NewPrefixedIDGenerator(prefix string) *StubIDGenerator {
	return &StubIDGenerator{prefix: prefix}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + strconv.Itoa(g.n)
}
