// Package config describes the pump board: wiring, calibration, the client
// link and the optional telemetry mirror.
package config

import (
	"time"

	"steppump/core"
)

// NoPin marks an optional pin as unused
const NoPin = -1

type BoardConfig struct {
	DeviceID         string           `yaml:"device_id"`
	Listen           string           `yaml:"listen"`
	Serial           SerialConfig     `yaml:"serial"`
	StepsPerML       float32          `yaml:"steps_per_ml"`
	Pins             PinConfig        `yaml:"pins"`
	LEDActiveLow     bool             `yaml:"led_active_low"`
	StopOnDisconnect bool             `yaml:"stop_on_disconnect"`
	Telemetry        TelemetryConfig  `yaml:"telemetry"`
	Simulation       SimulationConfig `yaml:"simulation"`
}

// ---- LINK ----

type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// ---- PINS ----

type PinConfig struct {
	Step   []int `yaml:"step"` // one per axis
	Dir    []int `yaml:"dir"`  // one per axis
	Enable int   `yaml:"enable"`
	LED    int   `yaml:"led"`
	Home   int   `yaml:"home"`
	Port   int   `yaml:"port"`
}

// ---- TELEMETRY ----

// TelemetryConfig selects a Modbus TCP endpoint mirroring the board status.
// An empty endpoint disables telemetry.
type TelemetryConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	Address    uint16 `yaml:"address"`
	IntervalMs int    `yaml:"interval_ms"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

func (t TelemetryConfig) Enabled() bool {
	return t.Endpoint != ""
}

func (t TelemetryConfig) Interval() time.Duration {
	return time.Duration(t.IntervalMs) * time.Millisecond
}

func (t TelemetryConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// ---- SIMULATION ----

// SimulationConfig shapes the carousel driven by the simulated board
type SimulationConfig struct {
	Axis         int `yaml:"axis"`
	StepsPerPort int `yaml:"steps_per_port"`
	PortWidth    int `yaml:"port_width"`
	Ports        int `yaml:"ports"`
}

// Defaults applied to values left at zero
const (
	DefaultListen        = ":7851"
	DefaultBaud          = 115200
	DefaultUnitID        = 1
	DefaultIntervalMs    = 1000
	DefaultTimeoutMs     = 1000
	DefaultStepsPerPort  = 200
	DefaultPortWidth     = 4
	DefaultCarouselPorts = 6
)

// Default returns the wiring of the reference board listening on TCP
func Default() *BoardConfig {
	cfg := base()
	applyDefaults(cfg)
	return cfg
}

// base carries the values a document overrides field by field. The link is
// left unset so a document selecting serial does not inherit a listen address.
func base() *BoardConfig {
	return &BoardConfig{
		DeviceID: "steppump",
		Pins: PinConfig{
			Step:   []int{0, 2, 4},
			Dir:    []int{1, 3, 5},
			Enable: 8,
			LED:    25,
			Home:   20,
			Port:   21,
		},
		LEDActiveLow: true,
	}
}

// applyDefaults fills in values left at zero
func applyDefaults(cfg *BoardConfig) {
	if cfg.StepsPerML == 0 {
		cfg.StepsPerML = core.DefaultStepsPerML
	}
	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = DefaultBaud
	}
	if cfg.Listen == "" && cfg.Serial.Device == "" {
		cfg.Listen = DefaultListen
	}

	if cfg.Telemetry.UnitID == 0 {
		cfg.Telemetry.UnitID = DefaultUnitID
	}
	if cfg.Telemetry.IntervalMs == 0 {
		cfg.Telemetry.IntervalMs = DefaultIntervalMs
	}
	if cfg.Telemetry.TimeoutMs == 0 {
		cfg.Telemetry.TimeoutMs = DefaultTimeoutMs
	}

	if cfg.Simulation.StepsPerPort == 0 {
		cfg.Simulation.StepsPerPort = DefaultStepsPerPort
	}
	if cfg.Simulation.PortWidth == 0 {
		cfg.Simulation.PortWidth = DefaultPortWidth
	}
	if cfg.Simulation.Ports == 0 {
		cfg.Simulation.Ports = DefaultCarouselPorts
	}
}

// Controller maps the board description onto a controller configuration.
// The caller fills in the driver, backends and network identity.
func (c *BoardConfig) Controller() core.ControllerConfig {
	cc := core.ControllerConfig{
		HomePin:          core.GPIOPin(c.Pins.Home),
		PortPin:          core.GPIOPin(c.Pins.Port),
		LEDPin:           core.GPIOPin(c.Pins.LED),
		LEDActiveLow:     c.LEDActiveLow,
		StepsPerML:       c.StepsPerML,
		DeviceID:         c.DeviceID,
		StopOnDisconnect: c.StopOnDisconnect,
	}
	for i := 0; i < core.NumAxes && i < len(c.Pins.Step) && i < len(c.Pins.Dir); i++ {
		cc.StepPins[i] = core.GPIOPin(c.Pins.Step[i])
		cc.DirPins[i] = core.GPIOPin(c.Pins.Dir[i])
	}
	if c.Pins.Enable != NoPin {
		cc.EnablePin = core.GPIOPin(c.Pins.Enable)
		cc.UseEnablePin = true
	}
	return cc
}
