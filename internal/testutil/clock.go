package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant handed out by a DeterministicClock.
var Epoch = time.Date(2022, 2, 2, 19, 39, 5, 0, time.UTC)

// DeterministicClock hands out event timestamps for tests.
//
// Each call to Next advances by one second from Epoch, so the same
// scenario always stamps its events identically and golden traces stay
// byte-for-byte stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	tick int64
}

// NewDeterministicClock creates a clock whose first Next returns Epoch+1s.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new instant.
func (c *DeterministicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick++
	return Epoch.Add(time.Duration(c.tick) * time.Second)
}

// Current returns the last instant handed out without advancing.
// Before the first Next it returns Epoch.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Epoch.Add(time.Duration(c.tick) * time.Second)
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = 0
}
