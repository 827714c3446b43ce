package core

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"steppump/protocol"
)

// Listener accepts one client link at a time. A TCP listener, a serial port
// reopened per session, or a test pipe all fit.
type Listener interface {
	Accept() (io.ReadWriteCloser, error)
	Close() error
}

type netListener struct {
	l net.Listener
}

// NetListener adapts a net.Listener
func NetListener(l net.Listener) Listener {
	return netListener{l: l}
}

func (n netListener) Accept() (io.ReadWriteCloser, error) {
	return n.l.Accept()
}

func (n netListener) Close() error {
	return n.l.Close()
}

// acceptRetryDelay spaces out retries after a transient Accept failure
const acceptRetryDelay = 100 * time.Millisecond

// Serve runs the connection loop: wait for a client, serve frames until the
// link fails, then wait again. Only one client is served at a time. Serve
// closes ln and returns when ctx is done or ln is closed.
func Serve(ctx context.Context, ln Listener, c *Controller) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	for {
		if err := c.WaitForConnection(ctx); err != nil {
			return err
		}

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			DebugPrintln("accept: " + err.Error())
			time.Sleep(acceptRetryDelay)
			continue
		}

		if err := c.ClientConnected(ctx); err != nil {
			conn.Close()
			return err
		}

		err = ServeConn(ctx, conn, c)
		DebugPrintln("link closed: " + err.Error())

		if err := c.ClientDisconnected(ctx); err != nil {
			return err
		}
	}
}

// ServeConn answers frames on conn until a read or write fails, a frame
// cannot be framed, or ctx is done. conn is closed on return. The returned
// error says why the link ended and is never nil.
func ServeConn(ctx context.Context, conn io.ReadWriteCloser, c *Controller) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	tr := protocol.NewTransport(conn)
	for {
		frame, err := tr.Receive()
		if err != nil {
			return err
		}

		reply, err := c.Execute(ctx, frame)
		if err != nil {
			return err
		}

		if err := tr.Send(reply); err != nil {
			return err
		}
	}
}
