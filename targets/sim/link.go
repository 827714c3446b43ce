//go:build !tinygo

package main

import (
	"io"
	"net"
	"strings"
	"sync"

	"steppump/core"
	"steppump/host/serial"
)

// serialListener hands out the serial port as one client link. The port is
// reopened for each session after the previous one ends.
type serialListener struct {
	cfg  *serial.Config
	open func(*serial.Config) (serial.Port, error)

	mu      sync.Mutex
	current io.Closer
	closed  bool
}

func newSerialListener(cfg *serial.Config) *serialListener {
	return &serialListener{cfg: cfg, open: serial.Open}
}

func (l *serialListener) Accept() (io.ReadWriteCloser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, net.ErrClosed
	}

	port, err := l.open(l.cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	l.current = port
	return port, nil
}

func (l *serialListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.current != nil {
		err := l.current.Close()
		l.current = nil
		return err
	}
	return nil
}

// simNetwork reports the listen address and the first hardware address
// found on the host
type simNetwork struct {
	ip  string
	mac string
}

func (n simNetwork) IPAddress() string       { return n.ip }
func (n simNetwork) HardwareAddress() string { return n.mac }

func newSimNetwork(addr net.Addr) simNetwork {
	var n simNetwork
	if addr != nil {
		host, _, err := net.SplitHostPort(addr.String())
		if err == nil {
			n.ip = host
		}
	}
	if n.ip == "" || n.ip == "::" || n.ip == "0.0.0.0" {
		n.ip = firstIPv4()
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return n
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback == 0 && len(iface.HardwareAddr) == 6 {
			n.mac = strings.ToUpper(iface.HardwareAddr.String())
			break
		}
	}
	return n
}

func firstIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() {
			if ip4 := ipn.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}

var _ core.Listener = (*serialListener)(nil)
