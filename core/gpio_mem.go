package core

import (
	"errors"
	"sync"
)

// PinMode records how a MemGPIO pin was configured
type PinMode uint8

const (
	PinUnconfigured PinMode = iota
	PinOutput
	PinInputPullUp
)

var errPinNotOutput = errors.New("gpio: pin not configured as output")

var _ GPIODriver = (*MemGPIO)(nil)

// MemGPIO is an in-memory GPIODriver. The simulation target uses it for its
// virtual board and tests use it as a fake. It is safe for concurrent use.
type MemGPIO struct {
	mu       sync.Mutex
	levels   map[GPIOPin]bool
	modes    map[GPIOPin]PinMode
	onOutput func(pin GPIOPin, level bool)
}

// NewMemGPIO creates an empty MemGPIO
func NewMemGPIO() *MemGPIO {
	return &MemGPIO{
		levels: make(map[GPIOPin]bool),
		modes:  make(map[GPIOPin]PinMode),
	}
}

// OnOutput registers fn to be called after every SetPin. fn runs on the
// caller's goroutine, which may be timer context, and may call SetInput.
func (m *MemGPIO) OnOutput(fn func(pin GPIOPin, level bool)) {
	m.mu.Lock()
	m.onOutput = fn
	m.mu.Unlock()
}

func (m *MemGPIO) configure(pin GPIOPin, mode PinMode, level bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.modes[pin] == PinUnconfigured {
		m.levels[pin] = level
	}
	m.modes[pin] = mode
	return nil
}

func (m *MemGPIO) ConfigureOutput(pin GPIOPin) error {
	return m.configure(pin, PinOutput, false)
}

func (m *MemGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	return m.configure(pin, PinInputPullUp, true)
}

func (m *MemGPIO) SetPin(pin GPIOPin, value bool) error {
	m.mu.Lock()
	if m.modes[pin] != PinOutput {
		m.mu.Unlock()
		return errPinNotOutput
	}
	m.levels[pin] = value
	fn := m.onOutput
	m.mu.Unlock()

	if fn != nil {
		fn(pin, value)
	}
	return nil
}

func (m *MemGPIO) GetPin(pin GPIOPin) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.levels[pin], nil
}

func (m *MemGPIO) ReadPin(pin GPIOPin) bool {
	value, _ := m.GetPin(pin)
	return value
}

// SetInput drives the level seen on an input pin
func (m *MemGPIO) SetInput(pin GPIOPin, level bool) {
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
}

// Mode returns how pin was configured
func (m *MemGPIO) Mode(pin GPIOPin) PinMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.modes[pin]
}
