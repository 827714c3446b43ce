//go:build rp2040

package main

import (
	"net"
	"strings"
	"time"

	"tinygo.org/x/drivers/netdev"
	"tinygo.org/x/drivers/netlink"
	"tinygo.org/x/drivers/netlink/probe"

	"steppump/core"
)

// Set at build time:
//
//	tinygo flash -target nano-rp2040 -ldflags "-X main.ssid=lab -X main.pass=secret" ./targets/rp2040
var (
	ssid string
	pass string
)

// connectRetryDelay spaces out association attempts
const connectRetryDelay = 5 * time.Second

// boardNetwork reports the address assigned to the WiFi module
type boardNetwork struct {
	dev netdev.Netdever
	mac string
}

func (n *boardNetwork) IPAddress() string {
	if n.dev == nil {
		return ""
	}
	addr, err := n.dev.Addr()
	if err != nil || !addr.IsValid() {
		return ""
	}
	return addr.String()
}

func (n *boardNetwork) HardwareAddress() string {
	return n.mac
}

// bringUp joins the configured access point, retrying until it succeeds
func (n *boardNetwork) bringUp() {
	link, dev := probe.Probe()

	for {
		err := link.NetConnect(&netlink.ConnectParams{
			Ssid:       ssid,
			Passphrase: pass,
		})
		if err == nil {
			break
		}
		core.DebugPrintln("wifi connect failed: " + err.Error())
		time.Sleep(connectRetryDelay)
	}

	if hw, err := link.GetHardwareAddr(); err == nil {
		n.mac = strings.ToUpper(hw.String())
	}
	n.dev = dev
	core.DebugPrintln("wifi up: ip=" + n.IPAddress() + " mac=" + n.mac)
}

// listen opens the command port on the WiFi module
func listen(addr string) (core.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return core.NetListener(l), nil
}
