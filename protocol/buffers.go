package protocol

import (
	"encoding/binary"
	"math"
)

// InputBuffer provides an abstraction for reading incoming protocol data
type InputBuffer interface {
	// Data returns the available data slice
	Data() []byte

	// Available returns the number of bytes available
	Available() int

	// Pop removes n bytes from the front of the buffer
	Pop(n int)
}

// OutputBuffer provides an abstraction for writing outgoing protocol data
type OutputBuffer interface {
	// Output writes data to the buffer
	Output(data []byte)

	// CurPosition returns the current write position
	CurPosition() int

	// Update modifies a byte at a specific position
	Update(pos int, val byte)

	// DataSince returns data from a specific position to current
	DataSince(pos int) []byte
}

// SliceInputBuffer implements InputBuffer using a byte slice
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer creates a new SliceInputBuffer
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte {
	return s.data
}

func (s *SliceInputBuffer) Available() int {
	return len(s.data)
}

func (s *SliceInputBuffer) Pop(n int) {
	if n > len(s.data) {
		n = len(s.data)
	}
	s.data = s.data[n:]
}

// ScratchOutput implements OutputBuffer using a fixed-size scratch buffer
// sized for the largest frame. Writes past the end are dropped.
type ScratchOutput struct {
	buf [MaxFrameSize]byte
	pos int
}

// NewScratchOutput creates a new ScratchOutput
func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{pos: 0}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns the accumulated output data
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

// Bytes returns a copy of the accumulated output data
func (s *ScratchOutput) Bytes() []byte {
	out := make([]byte, s.pos)
	copy(out, s.buf[:s.pos])
	return out
}

// Reset clears the buffer
func (s *ScratchOutput) Reset() {
	s.pos = 0
}

// Field encoders

func putU8(out OutputBuffer, v uint8) {
	out.Output([]byte{v})
}

func putI32(out OutputBuffer, v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	out.Output(b[:])
}

func putF32(out OutputBuffer, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	out.Output(b[:])
}

// putString writes s NUL-padded to exactly n bytes, truncating so that at
// least one NUL terminator remains.
func putString(out OutputBuffer, s string, n int) {
	b := make([]byte, n)
	copy(b[:n-1], s)
	out.Output(b)
}

// putU16At patches a little-endian u16 at pos
func putU16At(out OutputBuffer, pos int, v uint16) {
	out.Update(pos, byte(v))
	out.Update(pos+1, byte(v>>8))
}

// Field decoders. Each one fails with ErrShortPayload without consuming
// anything when the buffer is too short.

func getU8(in InputBuffer) (uint8, error) {
	if in.Available() < 1 {
		return 0, ErrShortPayload
	}
	v := in.Data()[0]
	in.Pop(1)
	return v, nil
}

func getI32(in InputBuffer) (int32, error) {
	if in.Available() < 4 {
		return 0, ErrShortPayload
	}
	v := int32(binary.LittleEndian.Uint32(in.Data()))
	in.Pop(4)
	return v, nil
}

func getF32(in InputBuffer) (float32, error) {
	if in.Available() < 4 {
		return 0, ErrShortPayload
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(in.Data()))
	in.Pop(4)
	return v, nil
}

func getString(in InputBuffer, n int) (string, error) {
	if in.Available() < n {
		return "", ErrShortPayload
	}
	b := in.Data()[:n]
	end := 0
	for end < n && b[end] != 0 {
		end++
	}
	s := string(b[:end])
	in.Pop(n)
	return s, nil
}
