// Package protocol implements the pump command link protocol
package protocol

// Version represents the pump firmware version
const Version = "1.0.0"

// Frame layout constants
//
// All multi-byte fields are little-endian. Every frame starts with a 4 byte
// header: packetLength (u16, whole frame including header), fid (u8) and
// error (u8, zero on requests).
const (
	HeaderSize   = 4
	MaxFrameSize = 256 // Receive buffer size on the firmware side

	headerPosLength = 0
	headerPosFID    = 2
	headerPosError  = 3
)

// Payload sizes
const (
	AxisSelectSize  = 4                 // axis i32
	MotorConfigSize = 8                 // axis i32, stepPeriod f32
	StatusSize      = 12                // 4 x u8, 2 x f32
	SysInfoSize     = 16 + 32 + 16 + 18 // fixed NUL-padded strings

	FwVersionLen = 16
	DeviceIDLen  = 32
	IPAddrLen    = 16
	MACAddrLen   = 18
)

// FID identifies the requested command. Values follow the firmware's
// dispatch table order and must stay stable.
type FID uint8

const (
	FIDGetStatus     FID = 0
	FIDRunStepper    FID = 1
	FIDStopStepper   FID = 2
	FIDReturnHome    FID = 3
	FIDRunToNext     FID = 4
	FIDRunToPrevious FID = 5
	FIDGetSysInfo    FID = 6
	FIDSetConfig     FID = 7
)

func (f FID) String() string {
	switch f {
	case FIDGetStatus:
		return "GET_STATUS"
	case FIDRunStepper:
		return "RUN_STEPPER"
	case FIDStopStepper:
		return "STOP_STEPPER"
	case FIDReturnHome:
		return "RETURN_HOME"
	case FIDRunToNext:
		return "RUN_TO_NEXT"
	case FIDRunToPrevious:
		return "RUN_TO_PREVIOUS"
	case FIDGetSysInfo:
		return "GET_SYS_INFO"
	case FIDSetConfig:
		return "SET_CONFIG"
	default:
		return "FID_" + utoa(uint32(f))
	}
}

// Code is the reply status carried in the header error field
type Code uint8

const (
	CodeOK                Code = 0
	CodeInvalidAxis       Code = 1
	CodeInvalidParameter  Code = 2
	CodeFlowNotConfigured Code = 3
	CodeNotSupported      Code = 4
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInvalidAxis:
		return "INVALID_AXIS"
	case CodeInvalidParameter:
		return "INVALID_PARAMETER"
	case CodeFlowNotConfigured:
		return "FLOW_NOT_CONFIGURED"
	case CodeNotSupported:
		return "NOT_SUPPORTED"
	default:
		return "CODE_" + utoa(uint32(c))
	}
}

// Step period bounds accepted by SET_CONFIG: MinStepPeriod < p <= MaxStepPeriod
const (
	MinStepPeriod float32 = 0.0027
	MaxStepPeriod float32 = 0.27
)

// ValidStepPeriod reports whether p is an accepted step period in seconds.
// NaN is rejected.
func ValidStepPeriod(p float32) bool {
	return p > MinStepPeriod && p <= MaxStepPeriod
}

// utoa converts without strconv so the package stays small on TinyGo
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
