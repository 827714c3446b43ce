package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"steppump/host/pump"
	"steppump/host/serial"
	"steppump/protocol"
)

var (
	addr    = flag.String("addr", "localhost:7851", "Board TCP address")
	device  = flag.String("serial", "", "Serial device path (overrides -addr)")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate (ignored for USB CDC)")
	timeout = flag.Duration("timeout", 2*time.Second, "Per-command timeout")
)

func main() {
	flag.Parse()

	fmt.Println("pumpctl - pump board command client")
	fmt.Println("===================================")

	client, err := connect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	fmt.Println("Connected successfully!")

	// One-shot mode: remaining arguments form a single command
	if flag.NArg() > 0 {
		if err := execute(client, os.Stdout, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		parts, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		}

		if err := execute(client, os.Stdout, parts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func connect() (*pump.Client, error) {
	if *device != "" {
		fmt.Printf("Connecting to board on %s...\n", *device)
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		c, err := pump.OpenSerial(cfg)
		if err != nil {
			return nil, err
		}
		c.Timeout = *timeout
		return c, nil
	}

	fmt.Printf("Connecting to board at %s...\n", *addr)
	return pump.Dial(*addr, *timeout)
}

func execute(c *pump.Client, w io.Writer, parts []string) error {
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "help", "?":
		printHelp(w)
		return nil

	case "info":
		info, err := c.SysInfo()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "firmware %s  device %s\n", info.FwVersion, info.DeviceID)
		fmt.Fprintf(w, "ip %s  mac %s\n", info.IPAddr, info.MACAddr)
		return nil

	case "config":
		if len(args) != 2 {
			return fmt.Errorf("usage: config <axis> <step period seconds>")
		}
		axis, err := parseAxis(args[0])
		if err != nil {
			return err
		}
		period, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("bad step period %q: %w", args[1], err)
		}
		return report(w, cmd, c.SetConfig(axis, float32(period)))

	case "status":
		axis, err := axisArg(args)
		if err != nil {
			return err
		}
		st, err := c.Status(axis)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "axis %d: %v  board %v\n", axis, st.State, st.Board)
		fmt.Fprintf(w, "  home %v  port %v\n", st.AtHome, st.AtPort)
		fmt.Fprintf(w, "  supplied %.3f ml  flow %.3f ml/min\n", st.SuppliedVolume, st.FlowRate)
		return nil
	}

	run, ok := axisCommands(c)[cmd]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
	axis, err := axisArg(args)
	if err != nil {
		return err
	}
	return report(w, cmd, run(axis))
}

func axisCommands(c *pump.Client) map[string]func(int32) error {
	return map[string]func(int32) error{
		"run":  c.Run,
		"stop": c.Stop,
		"home": c.ReturnHome,
		"next": c.RunToNext,
		"prev": c.RunToPrevious,
	}
}

// axisArg returns the optional leading axis argument, axis 0 when absent
func axisArg(args []string) (int32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	return parseAxis(args[0])
}

func parseAxis(s string) (int32, error) {
	switch strings.ToLower(s) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad axis %q", s)
	}
	return int32(v), nil
}

func report(w io.Writer, cmd string, err error) error {
	if se, ok := protocol.IsStatusError(err); ok {
		fmt.Fprintf(w, "%s: %v\n", cmd, se.Code)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: OK\n", cmd)
	return nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable commands:")
	fmt.Fprintln(w, "  help                   - Show this help message")
	fmt.Fprintln(w, "  status [axis]          - Axis and board state, sensors, volume and flow")
	fmt.Fprintln(w, "  config <axis> <period> - Set the step period in seconds")
	fmt.Fprintln(w, "  run <axis>             - Start pumping")
	fmt.Fprintln(w, "  stop <axis>            - Stop and reset the step counter")
	fmt.Fprintln(w, "  home <axis>            - Reverse until the home sensor asserts")
	fmt.Fprintln(w, "  next <axis>            - Advance to the next port")
	fmt.Fprintln(w, "  prev <axis>            - Move back to the previous port")
	fmt.Fprintln(w, "  info                   - Firmware and network identity")
	fmt.Fprintln(w, "  quit/exit/q            - Exit the program")
	fmt.Fprintln(w, "Axes may be given as 0-2 or x/y/z.")
	fmt.Fprintln(w)
}
