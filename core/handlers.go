package core

import (
	"errors"

	"steppump/protocol"
)

// dispatch decodes one frame and writes its reply. Framing errors are
// returned; every command-level failure becomes a reply status.
func (c *Controller) dispatch(frame []byte) ([]byte, error) {
	h, payload, err := protocol.SplitFrame(frame)
	if err != nil {
		return nil, err
	}

	c.out.Reset()
	code := c.dispatchCommand(h, payload)
	RecordTiming(EvtCommand, 0, c.sched.Now(), uint32(h.FID), uint32(code))

	if code != protocol.CodeOK {
		DebugAsync(h.FID.String() + ": " + code.String())
	}
	return c.out.Bytes(), nil
}

func (c *Controller) dispatchCommand(h protocol.Header, payload []byte) protocol.Code {
	cmd, err := protocol.DecodeCommand(h, payload)
	if err != nil {
		code := protocol.CodeInvalidParameter
		if errors.Is(err, protocol.ErrNotSupported) {
			code = protocol.CodeNotSupported
		}
		if h.FID == protocol.FIDGetStatus {
			protocol.EncodeStatusReply(&c.out, code, protocol.Status{})
			return code
		}
		return c.reply(h.FID, code)
	}

	switch cmd := cmd.(type) {
	case protocol.GetStatus:
		return c.getStatus(cmd)
	case protocol.SetConfig:
		return c.reply(cmd.FID(), c.setConfig(cmd))
	case protocol.RunStepper:
		return c.reply(cmd.FID(), c.runStepper(cmd))
	case protocol.StopStepper:
		return c.reply(cmd.FID(), c.stopStepper(cmd))
	case protocol.ReturnHome:
		return c.reply(cmd.FID(), c.returnHome(cmd))
	case protocol.RunToNext:
		return c.reply(cmd.FID(), c.runToNext(cmd))
	case protocol.RunToPrevious:
		return c.reply(cmd.FID(), c.runToPrevious(cmd))
	case protocol.GetSysInfo:
		return c.getSysInfo()
	default:
		return c.reply(h.FID, protocol.CodeNotSupported)
	}
}

func (c *Controller) reply(fid protocol.FID, code protocol.Code) protocol.Code {
	protocol.EncodeReply(&c.out, fid, code)
	return code
}

// axis validates a wire axis index before anything touches hardware
func (c *Controller) axis(v int32) (*StepPulseGenerator, protocol.Code) {
	id, ok := ParseAxis(v)
	if !ok {
		return nil, protocol.CodeInvalidAxis
	}
	return c.axes[id], protocol.CodeOK
}

func (c *Controller) getStatus(cmd protocol.GetStatus) protocol.Code {
	id, ok := ParseAxis(cmd.Axis)
	if !ok {
		protocol.EncodeStatusReply(&c.out, protocol.CodeInvalidAxis, protocol.Status{})
		return protocol.CodeInvalidAxis
	}

	snap := c.Snapshot()
	protocol.EncodeStatusReply(&c.out, protocol.CodeOK, protocol.Status{
		AxisState:      uint8(snap.Axes[id].State),
		BoardState:     uint8(snap.Board),
		Home:           levelByte(c.sensors.HomeLevel()),
		Port:           levelByte(c.sensors.PortLevel()),
		SuppliedVolume: snap.SuppliedVolume(id),
		FlowRate:       snap.FlowRate(id),
	})
	return protocol.CodeOK
}

// setConfig checks the period before the axis
func (c *Controller) setConfig(cmd protocol.SetConfig) protocol.Code {
	if !protocol.ValidStepPeriod(cmd.StepPeriod) {
		return protocol.CodeInvalidParameter
	}
	g, code := c.axis(cmd.Axis)
	if code != protocol.CodeOK {
		return code
	}

	g.Configure(cmd.StepPeriod)
	DebugAsync("config axis=" + g.Axis.String() + " period=" + ftoa(cmd.StepPeriod))
	return protocol.CodeOK
}

func (c *Controller) runStepper(cmd protocol.RunStepper) protocol.Code {
	g, code := c.axis(cmd.Axis)
	if code != protocol.CodeOK {
		return code
	}

	if !g.Run() {
		return protocol.CodeFlowNotConfigured
	}
	c.setBoard(BoardPumpRunning)
	return protocol.CodeOK
}

func (c *Controller) stopStepper(cmd protocol.StopStepper) protocol.Code {
	g, code := c.axis(cmd.Axis)
	if code != protocol.CodeOK {
		return code
	}

	if c.homingSeq != 0 && c.homingAxis == g.Axis {
		c.sensors.DisarmAxis(g.Axis)
		c.homingSeq = 0
	}

	g.Stop()
	g.SetDirection(false)
	g.ResetSteps()
	c.settle()
	return protocol.CodeOK
}

func (c *Controller) returnHome(cmd protocol.ReturnHome) protocol.Code {
	g, code := c.axis(cmd.Axis)
	if code != protocol.CodeOK {
		return code
	}

	if c.sensors.AtHome() {
		return protocol.CodeOK
	}
	return c.startPositioning(g, true, HomingHome)
}

func (c *Controller) runToNext(cmd protocol.RunToNext) protocol.Code {
	g, code := c.axis(cmd.Axis)
	if code != protocol.CodeOK {
		return code
	}
	return c.startPositioning(g, g.Reverse(), HomingPort)
}

func (c *Controller) runToPrevious(cmd protocol.RunToPrevious) protocol.Code {
	g, code := c.axis(cmd.Axis)
	if code != protocol.CodeOK {
		return code
	}
	return c.startPositioning(g, true, HomingPort)
}

// startPositioning runs g in the given direction and arms the poll. The
// previous direction is restored when the axis cannot run.
func (c *Controller) startPositioning(g *StepPulseGenerator, reverse bool, mode HomingMode) protocol.Code {
	previous := g.Reverse()
	if reverse != previous {
		g.SetDirection(reverse)
	}

	if !g.Run() {
		g.SetDirection(previous)
		return protocol.CodeFlowNotConfigured
	}

	c.homingSeq = c.sensors.Arm(g.Axis, mode)
	c.homingAxis = g.Axis
	c.setBoard(BoardPumpRunning)
	return protocol.CodeOK
}

func (c *Controller) getSysInfo() protocol.Code {
	info := protocol.SysInfo{
		FwVersion: protocol.Version,
		DeviceID:  c.cfg.DeviceID,
	}
	if c.cfg.Network != nil {
		info.IPAddr = c.cfg.Network.IPAddress()
		info.MACAddr = c.cfg.Network.HardwareAddress()
	}
	protocol.EncodeSysInfoReply(&c.out, info)
	return protocol.CodeOK
}
