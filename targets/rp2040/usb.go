//go:build rp2040

package main

import (
	"io"
	"machine"
	"net"
	"time"
)

// usbPollInterval is how long a reader waits between empty polls of the
// USB CDC buffer
const usbPollInterval = 100 * time.Microsecond

// InitUSB initializes USB serial communication
// TinyGo sets up USB CDC-ACM on RP2040; machine.Serial is that port
func InitUSB() {
	machine.Serial.Configure(machine.UARTConfig{})
}

// usbLink is the USB CDC port as a blocking stream
type usbLink struct{}

func (usbLink) Read(b []byte) (int, error) {
	for machine.Serial.Buffered() == 0 {
		time.Sleep(usbPollInterval)
	}
	n := 0
	for n < len(b) && machine.Serial.Buffered() > 0 {
		c, err := machine.Serial.ReadByte()
		if err != nil {
			return n, err
		}
		b[n] = c
		n++
	}
	return n, nil
}

func (usbLink) Write(b []byte) (int, error) {
	return machine.Serial.Write(b)
}

// Close ends the session; the port itself stays open for the next one
func (usbLink) Close() error {
	return nil
}

// usbListener hands out the USB CDC port as the single client link. A new
// session starts once the host sends the first byte after the previous
// session ended.
type usbListener struct {
	closed bool
}

func (l *usbListener) Accept() (io.ReadWriteCloser, error) {
	for machine.Serial.Buffered() == 0 {
		if l.closed {
			return nil, net.ErrClosed
		}
		time.Sleep(time.Millisecond)
	}
	return usbLink{}, nil
}

func (l *usbListener) Close() error {
	l.closed = true
	return nil
}
