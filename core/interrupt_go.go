//go:build !tinygo

package core

import "sync"

// criticalSection serialises timer dispatch against main-loop access.
// Regular Go has no interrupts; timer dispatch runs on its own goroutine, so
// a mutex stands in for interrupt masking.
type criticalSection struct {
	mu sync.Mutex
}

func (c *criticalSection) enter() {
	c.mu.Lock()
}

func (c *criticalSection) exit() {
	c.mu.Unlock()
}
