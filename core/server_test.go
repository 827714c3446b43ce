package core

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"steppump/protocol"
)

// pipeListener hands out the server ends of net.Pipe pairs
type pipeListener struct {
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func newPipeListener() *pipeListener {
	return &pipeListener{
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}
}

func (p *pipeListener) Accept() (io.ReadWriteCloser, error) {
	select {
	case c := <-p.conns:
		return c, nil
	case <-p.closed:
		return nil, net.ErrClosed
	}
}

func (p *pipeListener) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// dial blocks until Serve accepts the connection
func (p *pipeListener) dial(t *testing.T) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	select {
	case p.conns <- server:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for Accept")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func startServe(t *testing.T, r *testRig) (*pipeListener, context.CancelFunc, chan error) {
	t.Helper()
	ln := newPipeListener()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Serve(ctx, ln, r.c) }()
	t.Cleanup(cancel)
	return ln, cancel, errc
}

func roundTrip(t *testing.T, conn net.Conn, cmd protocol.Command) protocol.Header {
	t.Helper()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	if err := protocol.WriteFrame(conn, protocol.EncodeCommand(cmd)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	frame, err := protocol.ReadFrame(conn, make([]byte, protocol.MaxFrameSize))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	h, _, err := protocol.SplitFrame(frame)
	if err != nil {
		t.Fatalf("SplitFrame failed: %v", err)
	}
	return h
}

func TestServeCommandsOverLink(t *testing.T) {
	r := newTestRig(t, nil)
	ln, _, _ := startServe(t, r)

	conn := ln.dial(t)

	if h := roundTrip(t, conn, protocol.SetConfig{Axis: 0, StepPeriod: 0.01}); h.Error != protocol.CodeOK {
		t.Fatalf("SET_CONFIG: expected OK, got %v", h.Error)
	}
	if r.c.Board() != BoardIdle {
		t.Errorf("Expected IDLE after accept, got %v", r.c.Board())
	}

	if h := roundTrip(t, conn, protocol.RunStepper{Axis: 0}); h.Error != protocol.CodeOK {
		t.Fatalf("RUN_STEPPER: expected OK, got %v", h.Error)
	}
	if r.c.Board() != BoardPumpRunning {
		t.Errorf("Expected PUMP_RUNNING, got %v", r.c.Board())
	}

	// Unknown command keeps the link usable
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if err := protocol.WriteFrame(conn, []byte{4, 0, 99, 0}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	frame, err := protocol.ReadFrame(conn, make([]byte, protocol.MaxFrameSize))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if protocol.Code(frame[3]) != protocol.CodeNotSupported {
		t.Errorf("Expected NOT_SUPPORTED, got %v", protocol.Code(frame[3]))
	}

	if h := roundTrip(t, conn, protocol.StopStepper{Axis: 0}); h.Error != protocol.CodeOK {
		t.Errorf("STOP_STEPPER: expected OK, got %v", h.Error)
	}
}

func TestServeReconnectAfterDisconnect(t *testing.T) {
	r := newTestRig(t, nil)
	ln, _, _ := startServe(t, r)

	first := ln.dial(t)
	roundTrip(t, first, protocol.GetSysInfo{})
	first.Close()

	waitFor(t, "wait state", func() bool { return r.c.Board() == BoardWaitForConnection })

	second := ln.dial(t)
	if h := roundTrip(t, second, protocol.GetStatus{Axis: 1}); h.Error != protocol.CodeOK {
		t.Errorf("Expected OK on second client, got %v", h.Error)
	}
	if r.c.Board() != BoardIdle {
		t.Errorf("Expected IDLE on second client, got %v", r.c.Board())
	}
}

func TestServeDropsBadFrameLength(t *testing.T) {
	r := newTestRig(t, nil)
	ln, _, _ := startServe(t, r)

	conn := ln.dial(t)
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Write([]byte{0xFF, 0xFF, 0, 0}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected the link to be closed, got %v", err)
	}

	// Next client is served normally
	next := ln.dial(t)
	if h := roundTrip(t, next, protocol.GetSysInfo{}); h.Error != protocol.CodeOK {
		t.Errorf("Expected OK, got %v", h.Error)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	r := newTestRig(t, nil)
	ln, cancel, errc := startServe(t, r)

	conn := ln.dial(t)
	roundTrip(t, conn, protocol.GetSysInfo{})

	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for Serve to return")
	}

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err != io.EOF {
		t.Errorf("Expected the link closed on shutdown, got %v", err)
	}
}
