//go:build rp2040

package main

import (
	"context"
	"machine"
	"time"

	"steppump/config"
	"steppump/core"
)

func main() {
	// Disable watchdog on boot to clear any previous state
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	InitUSB()
	core.SetDebugWriter(func(msg string) { println(msg) })
	core.SetDebugEnabled(true)
	core.InitAsyncDebug()

	UpdateSystemTime()

	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		fatal("config: " + err.Error())
	}

	gpioDriver := NewRPGPIODriver()
	core.SetGPIODriver(gpioDriver)

	cc := cfg.Controller()
	cc.GPIO = gpioDriver
	for i := range cc.Backends {
		backend, err := allocatePIOBackend()
		if err != nil {
			fatal("axis " + core.AxisID(i).String() + ": " + err.Error())
		}
		cc.Backends[i] = backend
	}

	network := &boardNetwork{}
	if ssid != "" {
		cc.Network = network
	}

	controller, err := core.NewController(cc)
	if err != nil {
		fatal("controller: " + err.Error())
	}
	for i := 0; i < core.NumAxes; i++ {
		axis := core.AxisID(i)
		core.DebugPrintln("axis " + axis.String() + " on " + controller.Axis(axis).Backend().GetName())
	}

	// Timers and the controller run while the network comes up
	go timerLoop()
	ctx := context.Background()
	go controller.Run(ctx)

	var ln core.Listener
	if ssid != "" {
		network.bringUp()
		ln, err = listen(cfg.Listen)
		if err != nil {
			fatal("listen: " + err.Error())
		}
	} else {
		core.DebugPrintln("no wifi credentials, serving on USB")
		ln = &usbListener{}
	}

	err = core.Serve(ctx, ln, controller)
	fatal("serve: " + err.Error())
}

// timerLoop reads the hardware timer and dispatches due timers
func timerLoop() {
	for {
		UpdateSystemTime()
		core.ProcessTimers()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// fatal reports msg and leaves the board blinking fast so the failure is
// visible without a console
func fatal(msg string) {
	core.DebugPrintln("fatal: " + msg)
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
