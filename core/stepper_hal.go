package core

// StepperBackend defines the hardware abstraction for one axis's step and
// direction outputs. Implementations can use GPIO, PIO, or other methods.
type StepperBackend interface {
	// Init claims and configures the step and direction outputs.
	// Both lines start low.
	Init(stepPin, dirPin GPIOPin) error

	// SetStep drives the step line. Called from timer context on every
	// half period, so it must be fast and must not block.
	SetStep(high bool)

	// SetDirection sets the direction output
	// reverse: true = reverse, false = forward
	SetDirection(reverse bool)

	// Stop immediately halts stepping and leaves the step line low
	Stop()

	// GetName returns backend implementation name
	GetName() string
}
