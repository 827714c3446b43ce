package core

// GPIOStepperBackend drives step and direction lines through a GPIODriver.
// It is the portable backend used by the simulation and as a fallback on
// hardware without PIO.
type GPIOStepperBackend struct {
	driver  GPIODriver
	stepPin GPIOPin
	dirPin  GPIOPin
}

// NewGPIOStepperBackend creates a new GPIO-based stepper backend
func NewGPIOStepperBackend(driver GPIODriver) *GPIOStepperBackend {
	return &GPIOStepperBackend{driver: driver}
}

func (b *GPIOStepperBackend) Init(stepPin, dirPin GPIOPin) error {
	b.stepPin = stepPin
	b.dirPin = dirPin

	if err := b.driver.ConfigureOutput(stepPin); err != nil {
		return err
	}
	if err := b.driver.ConfigureOutput(dirPin); err != nil {
		return err
	}
	if err := b.driver.SetPin(stepPin, false); err != nil {
		return err
	}
	return b.driver.SetPin(dirPin, false)
}

func (b *GPIOStepperBackend) SetStep(high bool) {
	_ = b.driver.SetPin(b.stepPin, high)
}

func (b *GPIOStepperBackend) SetDirection(reverse bool) {
	_ = b.driver.SetPin(b.dirPin, reverse)
}

func (b *GPIOStepperBackend) Stop() {
	_ = b.driver.SetPin(b.stepPin, false)
}

func (b *GPIOStepperBackend) GetName() string {
	return "GPIO"
}
