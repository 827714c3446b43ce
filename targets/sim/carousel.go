//go:build !tinygo

package main

import (
	"sync"

	"steppump/config"
	"steppump/core"
)

// Carousel is the simulated plant: a rotary valve with evenly spaced ports
// turned by one axis. It counts rising step edges into a position and drives
// the active-low port and home sensors.
type Carousel struct {
	gpio    *core.MemGPIO
	stepPin core.GPIOPin
	dirPin  core.GPIOPin
	homePin core.GPIOPin
	portPin core.GPIOPin

	stepsPerPort int
	portWidth    int
	ports        int

	mu        sync.Mutex
	position  int // steps from port 0, in [0, revolution)
	reverse   bool
	stepLevel bool
}

// NewCarousel attaches a carousel to the axis named in cfg.Simulation and
// sets the sensors for the starting position, port 0.
func NewCarousel(gpio *core.MemGPIO, cfg *config.BoardConfig) *Carousel {
	sim := cfg.Simulation
	c := &Carousel{
		gpio:         gpio,
		stepPin:      core.GPIOPin(cfg.Pins.Step[sim.Axis]),
		dirPin:       core.GPIOPin(cfg.Pins.Dir[sim.Axis]),
		homePin:      core.GPIOPin(cfg.Pins.Home),
		portPin:      core.GPIOPin(cfg.Pins.Port),
		stepsPerPort: sim.StepsPerPort,
		portWidth:    sim.PortWidth,
		ports:        sim.Ports,
	}
	c.updateSensors()
	gpio.OnOutput(c.onOutput)
	return c
}

func (c *Carousel) revolution() int {
	return c.stepsPerPort * c.ports
}

// onOutput runs in timer context for every step and direction change
func (c *Carousel) onOutput(pin core.GPIOPin, level bool) {
	switch pin {
	case c.dirPin:
		c.mu.Lock()
		c.reverse = level
		c.mu.Unlock()

	case c.stepPin:
		c.mu.Lock()
		rising := level && !c.stepLevel
		c.stepLevel = level
		if rising {
			if c.reverse {
				c.position--
			} else {
				c.position++
			}
			c.position = (c.position + c.revolution()) % c.revolution()
		}
		c.mu.Unlock()

		if rising {
			c.updateSensors()
		}
	}
}

// nearestPort returns the port the carousel is aligned with, if any
func (c *Carousel) nearestPort() (int, bool) {
	c.mu.Lock()
	pos := c.position
	c.mu.Unlock()

	offset := pos % c.stepsPerPort
	port := pos / c.stepsPerPort
	switch {
	case offset <= c.portWidth:
		return port, true
	case offset >= c.stepsPerPort-c.portWidth:
		return (port + 1) % c.ports, true
	}
	return 0, false
}

func (c *Carousel) updateSensors() {
	port, aligned := c.nearestPort()
	c.gpio.SetInput(c.portPin, !aligned)
	c.gpio.SetInput(c.homePin, !(aligned && port == 0))
}

// Position returns the step position from port 0
func (c *Carousel) Position() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Port returns the aligned port index, or -1 between ports
func (c *Carousel) Port() int {
	port, aligned := c.nearestPort()
	if !aligned {
		return -1
	}
	return port
}
