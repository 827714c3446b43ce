//go:build tinygo

package core

import "runtime/interrupt"

// criticalSection disables interrupts for its duration. Sections must not
// nest on the same value.
type criticalSection struct {
	state interrupt.State
}

func (c *criticalSection) enter() {
	c.state = interrupt.Disable()
}

func (c *criticalSection) exit() {
	interrupt.Restore(c.state)
}
