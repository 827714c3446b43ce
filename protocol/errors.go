package protocol

import "errors"

var (
	// ErrFrameLength is returned when a header carries a packetLength outside
	// [HeaderSize, MaxFrameSize]. The stream cannot be resynchronised after it.
	ErrFrameLength = errors.New("protocol: invalid packet length")

	// ErrShortPayload is returned when a payload is shorter than its FID requires
	ErrShortPayload = errors.New("protocol: payload too short")

	// ErrNotSupported is returned by DecodeCommand for FIDs with no command variant
	ErrNotSupported = errors.New("protocol: command not supported")
)

// StatusError represents a non-OK status code returned by the firmware
type StatusError struct {
	// FID is the command that failed
	FID FID

	// Code is the status from the reply header
	Code Code
}

func (e *StatusError) Error() string {
	return e.FID.String() + " failed: " + e.Code.String()
}

// IsStatusError returns true if err is or wraps a StatusError, and the
// StatusError itself.
func IsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
