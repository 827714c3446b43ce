//go:build !tinygo

// Command sim runs the pump firmware on a PC with simulated pins and a
// carousel plant on one axis.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"steppump/config"
	"steppump/core"
	"steppump/host/serial"
	"steppump/telemetry"
)

var (
	configPath = flag.String("config", "", "Board configuration (YAML); empty uses the reference board")
	debug      = flag.Bool("debug", false, "Enable debug output")
	dumpTiming = flag.Bool("timing", false, "Dump the timing ring on exit")
)

// shutdownGrace bounds how long a blocked link read may delay exit
const shutdownGrace = 2 * time.Second

func main() {
	flag.Parse()

	// --------------------
	// Load + validate config
	// --------------------

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	core.SetDebugWriter(func(msg string) { log.Print(msg) })
	core.SetDebugEnabled(*debug)
	core.InitAsyncDebug()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Client link
	// --------------------

	var (
		ln      core.Listener
		netAddr net.Addr
	)
	if cfg.Serial.Device != "" {
		ln = newSerialListener(&serial.Config{Device: cfg.Serial.Device, Baud: cfg.Serial.Baud})
		log.Printf("serving on serial %s at %d baud", cfg.Serial.Device, cfg.Serial.Baud)
	} else {
		l, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			log.Fatalf("listen %s: %v", cfg.Listen, err)
		}
		netAddr = l.Addr()
		ln = core.NetListener(l)
		log.Printf("serving on tcp %s", netAddr)
	}

	// --------------------
	// Board
	// --------------------

	gpio := core.NewMemGPIO()
	sched := core.DefaultScheduler()

	cc := cfg.Controller()
	cc.GPIO = gpio
	cc.Scheduler = sched
	cc.Network = newSimNetwork(netAddr)

	controller, err := core.NewController(cc)
	if err != nil {
		log.Fatalf("controller init failed: %v", err)
	}

	// Attached after the controller has configured the sensor inputs
	carousel := NewCarousel(gpio, cfg)
	log.Printf(
		"carousel on axis %v: %d ports, %d steps apart",
		core.AxisID(cfg.Simulation.Axis),
		cfg.Simulation.Ports,
		cfg.Simulation.StepsPerPort,
	)

	go runClock(ctx, sched)

	runDone := make(chan error, 1)
	go func() { runDone <- controller.Run(ctx) }()

	// --------------------
	// Telemetry (optional)
	// --------------------

	if cfg.Telemetry.Enabled() {
		w, err := telemetry.NewModbusWriter(telemetry.WriterConfig{
			Endpoint: cfg.Telemetry.Endpoint,
			UnitID:   cfg.Telemetry.UnitID,
			Timeout:  cfg.Telemetry.Timeout(),
		})
		if err != nil {
			log.Fatalf("telemetry init failed: %v", err)
		}
		defer w.Close()

		pub := &telemetry.Publisher{
			Source:   controller,
			Writer:   w,
			Address:  cfg.Telemetry.Address,
			Interval: cfg.Telemetry.Interval(),
		}
		go pub.Run(ctx)
		log.Printf("telemetry to %s unit %d at register %d", cfg.Telemetry.Endpoint, cfg.Telemetry.UnitID, cfg.Telemetry.Address)
	}

	// --------------------
	// Serve until signalled
	// --------------------

	serveDone := make(chan error, 1)
	go func() { serveDone <- core.Serve(ctx, ln, controller) }()

	select {
	case err := <-serveDone:
		if ctx.Err() == nil {
			log.Printf("link listener stopped: %v", err)
		}
	case <-ctx.Done():
		select {
		case <-serveDone:
		case <-time.After(shutdownGrace):
			log.Print("link did not close in time")
		}
	}
	stop()
	<-runDone

	log.Printf("carousel stopped at step %d (port %d)", carousel.Position(), carousel.Port())
	if *dumpTiming {
		core.SetDebugEnabled(true)
		core.DumpTimingRing()
	}
}
