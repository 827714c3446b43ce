package core

// Motion controller
// The controller owns the three axes, the sensors and the board state. All
// composite state transitions happen on the goroutine running Run; command
// frames, link changes and homing edges are handed to it over channels.

import (
	"context"
	"errors"
	"sync/atomic"

	"steppump/protocol"
)

// DefaultStepsPerML is the pump calibration used when none is configured
const DefaultStepsPerML = 200

// ErrControllerStopped is returned by calls made after Run has returned
var ErrControllerStopped = errors.New("core: controller stopped")

// NetworkInfo reports the network identity shown by GET_SYS_INFO
type NetworkInfo interface {
	IPAddress() string
	HardwareAddress() string
}

// ControllerConfig describes the board wiring and calibration
type ControllerConfig struct {
	// GPIO drives sensors, LED and enable; nil uses the registered driver
	GPIO GPIODriver

	// Scheduler runs step, poll and blink timers; nil uses DefaultScheduler
	Scheduler *Scheduler

	// Backends per axis; nil entries get a GPIOStepperBackend on GPIO
	Backends [NumAxes]StepperBackend

	StepPins     [NumAxes]GPIOPin
	DirPins      [NumAxes]GPIOPin
	EnablePin    GPIOPin // active-low driver enable
	UseEnablePin bool
	HomePin      GPIOPin
	PortPin      GPIOPin
	LEDPin       GPIOPin
	LEDActiveLow bool

	StepsPerML       float32
	DeviceID         string
	Network          NetworkInfo
	StopOnDisconnect bool

	PollInterval  uint32 // ticks, zero selects HomingPollInterval
	BlinkInterval uint32 // ticks, zero selects BlinkInterval
}

type requestKind uint8

const (
	reqFrame requestKind = iota
	reqConnected
	reqDisconnected
	reqWaiting
)

type request struct {
	kind  requestKind
	frame []byte
	reply chan response
}

type response struct {
	frame []byte
	err   error
}

// Controller is the multi-axis motion controller
type Controller struct {
	cfg ControllerConfig

	sched     *Scheduler
	axes      [NumAxes]*StepPulseGenerator
	sensors   *SensorEdgeDetector
	indicator *Indicator
	enable    *DigitalOut

	board atomic.Uint32 // BoardState

	// Owned by the Run goroutine
	homingSeq  uint32
	homingAxis AxisID
	out        protocol.ScratchOutput

	requests chan request
	done     chan struct{}
}

// NewController configures the pins and backends described by cfg. The
// controller starts in WAIT_FOR_CONNECTION with every axis idle and
// unconfigured.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.GPIO == nil {
		cfg.GPIO = MustGPIO()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = DefaultScheduler()
	}
	if !(cfg.StepsPerML > 0) {
		cfg.StepsPerML = DefaultStepsPerML
	}

	c := &Controller{
		cfg:      cfg,
		sched:    cfg.Scheduler,
		requests: make(chan request),
		done:     make(chan struct{}),
	}

	for i := range c.axes {
		backend := cfg.Backends[i]
		if backend == nil {
			backend = NewGPIOStepperBackend(cfg.GPIO)
		}
		if err := backend.Init(cfg.StepPins[i], cfg.DirPins[i]); err != nil {
			return nil, err
		}
		c.axes[i] = NewStepPulseGenerator(AxisID(i), c.sched, backend)
	}

	if cfg.UseEnablePin {
		enable, err := NewDigitalOut(cfg.GPIO, cfg.EnablePin, true)
		if err != nil {
			return nil, err
		}
		enable.Set(true)
		c.enable = enable
	}

	home, err := NewDigitalIn(cfg.GPIO, cfg.HomePin)
	if err != nil {
		return nil, err
	}
	port, err := NewDigitalIn(cfg.GPIO, cfg.PortPin)
	if err != nil {
		return nil, err
	}
	c.sensors = NewSensorEdgeDetector(c.sched, home, port, cfg.PollInterval, c.axisRunning)

	led, err := NewDigitalOut(cfg.GPIO, cfg.LEDPin, cfg.LEDActiveLow)
	if err != nil {
		return nil, err
	}
	c.indicator = NewIndicator(c.sched, led, cfg.BlinkInterval)

	c.setBoard(BoardWaitForConnection)
	return c, nil
}

// Run processes commands, link changes and homing edges until ctx is done.
// Every axis is stopped on return. Run must be called once.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.stopAll()
			c.indicator.Off()
			return ctx.Err()

		case req := <-c.requests:
			c.handle(req)

		case ev := <-c.sensors.Events():
			c.handleEdge(ev)
		}
	}
}

// Execute dispatches one request frame and returns the reply frame.
// Command failures are reported in the reply; an error means the frame
// could not be framed at all (the link should be dropped) or ctx ended.
func (c *Controller) Execute(ctx context.Context, frame []byte) ([]byte, error) {
	req := request{kind: reqFrame, frame: append([]byte(nil), frame...)}
	return c.call(ctx, req)
}

// ClientConnected tells the controller a client was accepted
func (c *Controller) ClientConnected(ctx context.Context) error {
	_, err := c.call(ctx, request{kind: reqConnected})
	return err
}

// ClientDisconnected tells the controller the client went away
func (c *Controller) ClientDisconnected(ctx context.Context) error {
	_, err := c.call(ctx, request{kind: reqDisconnected})
	return err
}

// WaitForConnection enters WAIT_FOR_CONNECTION before accepting
func (c *Controller) WaitForConnection(ctx context.Context) error {
	_, err := c.call(ctx, request{kind: reqWaiting})
	return err
}

func (c *Controller) call(ctx context.Context, req request) ([]byte, error) {
	req.reply = make(chan response, 1)

	select {
	case c.requests <- req:
	case <-c.done:
		return nil, ErrControllerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.frame, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) handle(req request) {
	var resp response

	switch req.kind {
	case reqFrame:
		resp.frame, resp.err = c.dispatch(req.frame)

	case reqConnected:
		if c.anyRunning() {
			c.setBoard(BoardPumpRunning)
		} else {
			c.setBoard(BoardIdle)
		}
		DebugAsync("client connected")

	case reqDisconnected:
		if c.cfg.StopOnDisconnect {
			c.stopAll()
		}
		c.setBoard(BoardWaitForConnection)
		DebugAsync("client disconnected")

	case reqWaiting:
		c.setBoard(BoardWaitForConnection)
	}

	req.reply <- resp
}

// handleEdge finishes a positioning run
func (c *Controller) handleEdge(ev EdgeEvent) {
	if ev.Seq != c.homingSeq {
		// Session was replaced or its axis stopped since the edge was posted
		return
	}
	c.homingSeq = 0

	g := c.axes[ev.Axis]
	g.Stop()
	g.SetDirection(false)
	c.settle()

	DebugAsync("edge " + ev.Mode.String() + " axis=" + ev.Axis.String() +
		" steps=" + utoa(g.StepsPerformed()))
}

// stopAll stops every axis and ends any positioning run
func (c *Controller) stopAll() {
	c.sensors.Disarm()
	c.homingSeq = 0
	for _, g := range c.axes {
		g.Stop()
		g.SetDirection(false)
	}
}

func (c *Controller) setBoard(s BoardState) {
	if BoardState(c.board.Swap(uint32(s))) != s {
		DebugAsync("board " + s.String())
	}
	c.indicator.Show(s)
}

// settle enters IDLE once the last axis stops, unless no client is attached
func (c *Controller) settle() {
	if !c.anyRunning() && c.Board() != BoardWaitForConnection {
		c.setBoard(BoardIdle)
	}
}

func (c *Controller) anyRunning() bool {
	for _, g := range c.axes {
		if g.State() == MotionRunning {
			return true
		}
	}
	return false
}

// axisRunning is called from timer context
func (c *Controller) axisRunning(axis AxisID) bool {
	return c.axes[axis].State() == MotionRunning
}

// Board returns the current board state
func (c *Controller) Board() BoardState {
	return BoardState(c.board.Load())
}

// Axis returns the generator for axis
func (c *Controller) Axis(axis AxisID) *StepPulseGenerator {
	return c.axes[axis]
}

// Sensors returns the homing sensor detector
func (c *Controller) Sensors() *SensorEdgeDetector {
	return c.sensors
}

// Indicator returns the status LED
func (c *Controller) Indicator() *Indicator {
	return c.indicator
}

// AxisSnapshot is a point-in-time view of one axis
type AxisSnapshot struct {
	State      MotionState
	Steps      uint32
	Period     float32
	Reverse    bool
	Configured bool
}

// Snapshot is a point-in-time view of the controller. Fields are read one
// at a time, so a snapshot taken while axes change state may mix instants.
type Snapshot struct {
	Board      BoardState
	StepsPerML float32
	Axes       [NumAxes]AxisSnapshot
}

// Snapshot reads the controller state. Safe to call from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Board:      c.Board(),
		StepsPerML: c.cfg.StepsPerML,
	}
	for i, g := range c.axes {
		snap.Axes[i] = AxisSnapshot{
			State:      g.State(),
			Steps:      g.StepsPerformed(),
			Period:     g.StepPeriod(),
			Reverse:    g.Reverse(),
			Configured: g.Configured(),
		}
	}
	return snap
}

// SuppliedVolume returns the millilitres moved by axis since its last run
func (s Snapshot) SuppliedVolume(axis AxisID) float32 {
	return float32(s.Axes[axis].Steps) / s.StepsPerML
}

// FlowRate returns the axis flow in ml/min, zero unless the pump is running
func (s Snapshot) FlowRate(axis AxisID) float32 {
	period := s.Axes[axis].Period
	if s.Board != BoardPumpRunning || !(period > 0) {
		return 0
	}
	return (60 / period) / s.StepsPerML
}
