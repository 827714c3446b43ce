package core

// DigitalOut is a configured output line with optional active-low polarity.
// It is not safe for concurrent use; owners serialise access through the
// scheduler's critical section when a timer handler also drives the line.
type DigitalOut struct {
	Pin       GPIOPin
	ActiveLow bool

	driver GPIODriver
	on     bool
}

// NewDigitalOut configures pin as an output and drives it to the off level
func NewDigitalOut(driver GPIODriver, pin GPIOPin, activeLow bool) (*DigitalOut, error) {
	dout := &DigitalOut{Pin: pin, ActiveLow: activeLow, driver: driver}
	if err := driver.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	dout.Set(false)
	return dout, nil
}

// Set turns the output on or off, honouring polarity
func (d *DigitalOut) Set(on bool) {
	d.on = on
	_ = d.driver.SetPin(d.Pin, on != d.ActiveLow)
}

// Toggle inverts the output
func (d *DigitalOut) Toggle() {
	d.Set(!d.on)
}

// On reports the logical output state
func (d *DigitalOut) On() bool {
	return d.on
}

// DigitalIn is a configured input line read as a raw level
type DigitalIn struct {
	Pin GPIOPin

	driver GPIODriver
}

// NewDigitalIn configures pin as an input with pull-up. The position sensors
// are open-collector, active-low.
func NewDigitalIn(driver GPIODriver, pin GPIOPin) (*DigitalIn, error) {
	if err := driver.ConfigureInputPullUp(pin); err != nil {
		return nil, err
	}
	return &DigitalIn{Pin: pin, driver: driver}, nil
}

// Level returns the raw pin level, true when high
func (d *DigitalIn) Level() bool {
	return d.driver.ReadPin(d.Pin)
}

// levelByte converts a pin level to its wire representation
func levelByte(level bool) uint8 {
	if level {
		return 1
	}
	return 0
}
