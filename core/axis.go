package core

// AxisID selects one of the three motion channels
type AxisID uint8

const (
	AxisX AxisID = iota
	AxisY
	AxisZ

	NumAxes = 3
)

// ParseAxis validates a wire axis index
func ParseAxis(v int32) (AxisID, bool) {
	if v < 0 || v >= NumAxes {
		return 0, false
	}
	return AxisID(v), true
}

func (a AxisID) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return "axis" + itoa(int(a))
	}
}

// MotionState is the per-axis pulse state
type MotionState uint8

const (
	MotionIdle    MotionState = 0
	MotionRunning MotionState = 1
)

func (s MotionState) String() string {
	if s == MotionRunning {
		return "RUNNING"
	}
	return "IDLE"
}

// BoardState is the controller-wide operating state
type BoardState uint8

const (
	BoardWaitForConnection BoardState = 0
	BoardConnected         BoardState = 1 // defined, never entered by the handlers
	BoardIdle              BoardState = 2
	BoardPumpRunning       BoardState = 3
)

func (s BoardState) String() string {
	switch s {
	case BoardWaitForConnection:
		return "WAIT_FOR_CONNECTION"
	case BoardConnected:
		return "CONNECTED"
	case BoardIdle:
		return "IDLE"
	case BoardPumpRunning:
		return "PUMP_RUNNING"
	default:
		return "BOARD_" + itoa(int(s))
	}
}

// HomingMode selects which sensor condition ends a positioning run
type HomingMode uint8

const (
	// HomingHome ends when home and port sensors are both low at one poll
	HomingHome HomingMode = iota
	// HomingPort ends on a high to low transition of the port sensor
	HomingPort
)

func (m HomingMode) String() string {
	if m == HomingPort {
		return "PORT"
	}
	return "HOME"
}
