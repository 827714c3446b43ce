// Package pump is a client for the pump board command link
package pump

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"steppump/core"
	"steppump/host/serial"
	"steppump/protocol"
)

// ErrUnexpectedReply is returned when a reply does not match its request
var ErrUnexpectedReply = errors.New("pump: unexpected reply")

// AxisStatus is the decoded GET_STATUS reply
type AxisStatus struct {
	State          core.MotionState
	Board          core.BoardState
	AtHome         bool
	AtPort         bool
	SuppliedVolume float32 // ml
	FlowRate       float32 // ml/min
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// Client sends one command at a time and waits for its reply. It is safe
// for concurrent use; requests are serialized.
type Client struct {
	mu   sync.Mutex
	conn io.ReadWriteCloser
	tr   *protocol.Transport

	// Timeout bounds each round trip on links that support deadlines
	Timeout time.Duration
}

// NewClient creates a client over an open link
func NewClient(conn io.ReadWriteCloser) *Client {
	return &Client{
		conn: conn,
		tr:   protocol.NewTransport(conn),
	}
}

// Dial connects to a board over TCP
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("pump: dial %s: %w", addr, err)
	}
	c := NewClient(conn)
	c.Timeout = timeout
	return c, nil
}

// OpenSerial connects to a board over a serial port
func OpenSerial(cfg *serial.Config) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("pump: %w", err)
	}
	// Drop bytes left over from an earlier session
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("pump: flush %s: %w", cfg.Device, err)
	}
	return NewClient(port), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// roundTrip sends cmd and returns the reply payload. A non-OK status comes
// back as a *protocol.StatusError together with the payload.
func (c *Client) roundTrip(cmd protocol.Command) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.conn.(deadliner); ok && c.Timeout > 0 {
		d.SetDeadline(time.Now().Add(c.Timeout))
		defer d.SetDeadline(time.Time{})
	}

	if err := c.tr.Send(protocol.EncodeCommand(cmd)); err != nil {
		return nil, fmt.Errorf("pump: send %v: %w", cmd.FID(), err)
	}

	frame, err := c.tr.Receive()
	if err != nil {
		return nil, fmt.Errorf("pump: receive %v: %w", cmd.FID(), err)
	}
	h, payload, err := protocol.SplitFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("pump: %v reply: %w", cmd.FID(), err)
	}
	if h.FID != cmd.FID() {
		return nil, fmt.Errorf("%w: sent %v, got %v", ErrUnexpectedReply, cmd.FID(), h.FID)
	}

	payload = append([]byte(nil), payload...)
	if h.Error != protocol.CodeOK {
		return payload, &protocol.StatusError{FID: h.FID, Code: h.Error}
	}
	return payload, nil
}

func (c *Client) simple(cmd protocol.Command) error {
	_, err := c.roundTrip(cmd)
	return err
}

// Status reads the state of axis and the shared sensors
func (c *Client) Status(axis int32) (AxisStatus, error) {
	payload, err := c.roundTrip(protocol.GetStatus{Axis: axis})
	if err != nil {
		return AxisStatus{}, err
	}
	st, err := protocol.DecodeStatus(payload)
	if err != nil {
		return AxisStatus{}, fmt.Errorf("pump: status reply: %w", err)
	}
	return AxisStatus{
		State:          core.MotionState(st.AxisState),
		Board:          core.BoardState(st.BoardState),
		AtHome:         st.Home == 0,
		AtPort:         st.Port == 0,
		SuppliedVolume: st.SuppliedVolume,
		FlowRate:       st.FlowRate,
	}, nil
}

// SetConfig sets the step period of axis in seconds
func (c *Client) SetConfig(axis int32, stepPeriod float32) error {
	return c.simple(protocol.SetConfig{Axis: axis, StepPeriod: stepPeriod})
}

// Run starts constant-rate pumping on axis
func (c *Client) Run(axis int32) error {
	return c.simple(protocol.RunStepper{Axis: axis})
}

// Stop stops axis and resets its step counter
func (c *Client) Stop(axis int32) error {
	return c.simple(protocol.StopStepper{Axis: axis})
}

// ReturnHome drives axis in reverse until the home sensor asserts
func (c *Client) ReturnHome(axis int32) error {
	return c.simple(protocol.ReturnHome{Axis: axis})
}

// RunToNext advances axis to the next port
func (c *Client) RunToNext(axis int32) error {
	return c.simple(protocol.RunToNext{Axis: axis})
}

// RunToPrevious moves axis back to the previous port
func (c *Client) RunToPrevious(axis int32) error {
	return c.simple(protocol.RunToPrevious{Axis: axis})
}

// SysInfo reads the firmware and network identity
func (c *Client) SysInfo() (protocol.SysInfo, error) {
	payload, err := c.roundTrip(protocol.GetSysInfo{})
	if err != nil {
		return protocol.SysInfo{}, err
	}
	info, err := protocol.DecodeSysInfo(payload)
	if err != nil {
		return protocol.SysInfo{}, fmt.Errorf("pump: sysinfo reply: %w", err)
	}
	return info, nil
}
