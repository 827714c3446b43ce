package config

import (
	"fmt"

	"steppump/core"
	"steppump/protocol"
)

// MaxPin is the highest GPIO number accepted in a pin map
const MaxPin = 47

// axisRegisters is the telemetry register count per axis
const axisRegisters = 6

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *BoardConfig) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}

	// ------------------------------------------------------------
	// IDENTITY
	// ------------------------------------------------------------

	if len(cfg.DeviceID) >= protocol.DeviceIDLen {
		return fmt.Errorf("device_id must be shorter than %d bytes", protocol.DeviceIDLen)
	}
	for i := 0; i < len(cfg.DeviceID); i++ {
		if cfg.DeviceID[i] > 0x7F || cfg.DeviceID[i] == 0 {
			return fmt.Errorf("device_id %q must contain printable ASCII only", cfg.DeviceID)
		}
	}

	if !(cfg.StepsPerML > 0) {
		return fmt.Errorf("steps_per_ml must be positive, got %v", cfg.StepsPerML)
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	switch {
	case cfg.Listen == "" && cfg.Serial.Device == "":
		return fmt.Errorf("one of listen or serial.device is required")
	case cfg.Listen != "" && cfg.Serial.Device != "":
		return fmt.Errorf("listen %q and serial.device %q are mutually exclusive", cfg.Listen, cfg.Serial.Device)
	case cfg.Serial.Device != "" && cfg.Serial.Baud <= 0:
		return fmt.Errorf("serial.baud must be positive, got %d", cfg.Serial.Baud)
	}

	// ------------------------------------------------------------
	// PIN MAP
	// ------------------------------------------------------------

	if len(cfg.Pins.Step) != core.NumAxes {
		return fmt.Errorf("pins.step needs %d entries, got %d", core.NumAxes, len(cfg.Pins.Step))
	}
	if len(cfg.Pins.Dir) != core.NumAxes {
		return fmt.Errorf("pins.dir needs %d entries, got %d", core.NumAxes, len(cfg.Pins.Dir))
	}

	owner := make(map[int]string)
	claim := func(name string, pin int) error {
		if pin < 0 || pin > MaxPin {
			return fmt.Errorf("pins.%s: gpio %d out of range 0-%d", name, pin, MaxPin)
		}
		if prev, exists := owner[pin]; exists {
			return fmt.Errorf("pin collision: gpio %d used by pins.%s and pins.%s", pin, prev, name)
		}
		owner[pin] = name
		return nil
	}

	for i := 0; i < core.NumAxes; i++ {
		axis := core.AxisID(i).String()
		if err := claim("step["+axis+"]", cfg.Pins.Step[i]); err != nil {
			return err
		}
		if err := claim("dir["+axis+"]", cfg.Pins.Dir[i]); err != nil {
			return err
		}
	}
	if cfg.Pins.Enable != NoPin {
		if err := claim("enable", cfg.Pins.Enable); err != nil {
			return err
		}
	}
	for _, p := range []struct {
		name string
		pin  int
	}{
		{"led", cfg.Pins.LED},
		{"home", cfg.Pins.Home},
		{"port", cfg.Pins.Port},
	} {
		if err := claim(p.name, p.pin); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// TELEMETRY
	// ------------------------------------------------------------

	if t := cfg.Telemetry; t.Enabled() {
		if t.IntervalMs <= 0 {
			return fmt.Errorf("telemetry.interval_ms must be positive, got %d", t.IntervalMs)
		}
		if t.TimeoutMs <= 0 {
			return fmt.Errorf("telemetry.timeout_ms must be positive, got %d", t.TimeoutMs)
		}
		end := int(t.Address) + 1 + core.NumAxes*axisRegisters
		if end > 0x10000 {
			return fmt.Errorf("telemetry.address %d leaves no room for %d registers", t.Address, end-int(t.Address))
		}
	}

	// ------------------------------------------------------------
	// SIMULATION
	// ------------------------------------------------------------

	s := cfg.Simulation
	if _, ok := core.ParseAxis(int32(s.Axis)); !ok {
		return fmt.Errorf("simulation.axis %d is not a valid axis", s.Axis)
	}
	if s.Ports <= 0 {
		return fmt.Errorf("simulation.ports must be positive, got %d", s.Ports)
	}
	if s.StepsPerPort <= 0 {
		return fmt.Errorf("simulation.steps_per_port must be positive, got %d", s.StepsPerPort)
	}
	if s.PortWidth <= 0 || 2*s.PortWidth >= s.StepsPerPort {
		return fmt.Errorf(
			"simulation.port_width %d must be positive and under half of steps_per_port %d",
			s.PortWidth,
			s.StepsPerPort,
		)
	}

	return nil
}
