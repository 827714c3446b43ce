package protocol

// Header is the fixed frame header
type Header struct {
	PacketLength uint16
	FID          FID
	Error        Code
}

// SplitFrame decodes the header of a complete frame and returns it with the
// payload that follows it.
func SplitFrame(frame []byte) (Header, []byte, error) {
	if len(frame) < HeaderSize {
		return Header{}, nil, ErrShortPayload
	}
	h := Header{
		PacketLength: uint16(frame[headerPosLength]) | uint16(frame[headerPosLength+1])<<8,
		FID:          FID(frame[headerPosFID]),
		Error:        Code(frame[headerPosError]),
	}
	if h.PacketLength < HeaderSize || int(h.PacketLength) > MaxFrameSize {
		return h, nil, ErrFrameLength
	}
	if int(h.PacketLength) > len(frame) {
		return h, nil, ErrShortPayload
	}
	return h, frame[HeaderSize:h.PacketLength], nil
}

// EncodeFrame writes a complete frame to out. The payload callback may be
// nil; packetLength is patched in once the payload is written.
func EncodeFrame(out OutputBuffer, fid FID, code Code, payload func(out OutputBuffer)) {
	cursor := out.CurPosition()

	// Length placeholder, fid, error
	out.Output([]byte{0, 0, byte(fid), byte(code)})

	if payload != nil {
		payload(out)
	}

	putU16At(out, cursor+headerPosLength, uint16(len(out.DataSince(cursor))))
}

// Command is one of the closed set of request variants. Each variant has
// exactly one handler on the firmware side.
type Command interface {
	FID() FID
	encode(out OutputBuffer)
}

// GetStatus requests the status of one axis
type GetStatus struct{ Axis int32 }

// RunStepper starts constant-rate pulsing on an axis
type RunStepper struct{ Axis int32 }

// StopStepper stops an axis
type StopStepper struct{ Axis int32 }

// ReturnHome drives an axis in reverse until the home position is sensed
type ReturnHome struct{ Axis int32 }

// RunToNext drives an axis in its current direction to the next port
type RunToNext struct{ Axis int32 }

// RunToPrevious drives an axis in reverse to the previous port
type RunToPrevious struct{ Axis int32 }

// GetSysInfo requests firmware and network identity
type GetSysInfo struct{}

// SetConfig sets the step period of an axis
type SetConfig struct {
	Axis       int32
	StepPeriod float32 // seconds
}

func (GetStatus) FID() FID     { return FIDGetStatus }
func (RunStepper) FID() FID    { return FIDRunStepper }
func (StopStepper) FID() FID   { return FIDStopStepper }
func (ReturnHome) FID() FID    { return FIDReturnHome }
func (RunToNext) FID() FID     { return FIDRunToNext }
func (RunToPrevious) FID() FID { return FIDRunToPrevious }
func (GetSysInfo) FID() FID    { return FIDGetSysInfo }
func (SetConfig) FID() FID     { return FIDSetConfig }

func (c GetStatus) encode(out OutputBuffer)     { putI32(out, c.Axis) }
func (c RunStepper) encode(out OutputBuffer)    { putI32(out, c.Axis) }
func (c StopStepper) encode(out OutputBuffer)   { putI32(out, c.Axis) }
func (c ReturnHome) encode(out OutputBuffer)    { putI32(out, c.Axis) }
func (c RunToNext) encode(out OutputBuffer)     { putI32(out, c.Axis) }
func (c RunToPrevious) encode(out OutputBuffer) { putI32(out, c.Axis) }
func (GetSysInfo) encode(out OutputBuffer)      {}

func (c SetConfig) encode(out OutputBuffer) {
	putI32(out, c.Axis)
	putF32(out, c.StepPeriod)
}

// EncodeCommand returns the request frame for cmd
func EncodeCommand(cmd Command) []byte {
	out := NewScratchOutput()
	EncodeFrame(out, cmd.FID(), CodeOK, cmd.encode)
	return out.Bytes()
}

// DecodeCommand selects the command variant for h.FID and decodes its
// payload. Unknown FIDs return ErrNotSupported; payloads shorter than the
// variant needs return ErrShortPayload. Trailing bytes are ignored.
func DecodeCommand(h Header, payload []byte) (Command, error) {
	in := NewSliceInputBuffer(payload)

	switch h.FID {
	case FIDGetSysInfo:
		return GetSysInfo{}, nil

	case FIDSetConfig:
		if in.Available() < MotorConfigSize {
			return nil, ErrShortPayload
		}
		axis, _ := getI32(in)
		period, _ := getF32(in)
		return SetConfig{Axis: axis, StepPeriod: period}, nil

	case FIDGetStatus, FIDRunStepper, FIDStopStepper, FIDReturnHome, FIDRunToNext, FIDRunToPrevious:
		axis, err := getI32(in)
		if err != nil {
			return nil, err
		}
		switch h.FID {
		case FIDGetStatus:
			return GetStatus{Axis: axis}, nil
		case FIDRunStepper:
			return RunStepper{Axis: axis}, nil
		case FIDStopStepper:
			return StopStepper{Axis: axis}, nil
		case FIDReturnHome:
			return ReturnHome{Axis: axis}, nil
		case FIDRunToNext:
			return RunToNext{Axis: axis}, nil
		default:
			return RunToPrevious{Axis: axis}, nil
		}

	default:
		return nil, ErrNotSupported
	}
}

// Status is the GET_STATUS reply payload
type Status struct {
	AxisState      uint8
	BoardState     uint8
	Home           uint8 // raw pin level, 0 = asserted
	Port           uint8 // raw pin level, 0 = asserted
	SuppliedVolume float32
	FlowRate       float32 // ml/min
}

// SysInfo is the GET_SYS_INFO reply payload
type SysInfo struct {
	FwVersion string
	DeviceID  string
	IPAddr    string
	MACAddr   string
}

// EncodeReply writes a header-only reply echoing fid
func EncodeReply(out OutputBuffer, fid FID, code Code) {
	EncodeFrame(out, fid, code, nil)
}

// EncodeStatusReply writes a full-size status frame. The payload is always
// present so the frame length does not depend on code.
func EncodeStatusReply(out OutputBuffer, code Code, st Status) {
	EncodeFrame(out, FIDGetStatus, code, func(out OutputBuffer) {
		putU8(out, st.AxisState)
		putU8(out, st.BoardState)
		putU8(out, st.Home)
		putU8(out, st.Port)
		putF32(out, st.SuppliedVolume)
		putF32(out, st.FlowRate)
	})
}

// EncodeSysInfoReply writes a system info frame
func EncodeSysInfoReply(out OutputBuffer, info SysInfo) {
	EncodeFrame(out, FIDGetSysInfo, CodeOK, func(out OutputBuffer) {
		putString(out, info.FwVersion, FwVersionLen)
		putString(out, info.DeviceID, DeviceIDLen)
		putString(out, info.IPAddr, IPAddrLen)
		putString(out, info.MACAddr, MACAddrLen)
	})
}

// DecodeStatus decodes a status reply payload
func DecodeStatus(payload []byte) (Status, error) {
	if len(payload) < StatusSize {
		return Status{}, ErrShortPayload
	}
	in := NewSliceInputBuffer(payload)
	var st Status
	st.AxisState, _ = getU8(in)
	st.BoardState, _ = getU8(in)
	st.Home, _ = getU8(in)
	st.Port, _ = getU8(in)
	st.SuppliedVolume, _ = getF32(in)
	st.FlowRate, _ = getF32(in)
	return st, nil
}

// DecodeSysInfo decodes a system info reply payload
func DecodeSysInfo(payload []byte) (SysInfo, error) {
	if len(payload) < SysInfoSize {
		return SysInfo{}, ErrShortPayload
	}
	in := NewSliceInputBuffer(payload)
	var info SysInfo
	info.FwVersion, _ = getString(in, FwVersionLen)
	info.DeviceID, _ = getString(in, DeviceIDLen)
	info.IPAddr, _ = getString(in, IPAddrLen)
	info.MACAddr, _ = getString(in, MACAddrLen)
	return info, nil
}
