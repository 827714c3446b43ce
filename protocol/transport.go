package protocol

import "io"

// Transport moves whole frames over a byte stream (TCP connection or serial
// port). It is not safe for concurrent use; one Transport serves one link.
type Transport struct {
	rw  io.ReadWriter
	buf [MaxFrameSize]byte
}

// NewTransport creates a Transport over rw
func NewTransport(rw io.ReadWriter) *Transport {
	return &Transport{rw: rw}
}

// Receive blocks until a complete frame has been read. The returned slice
// aliases the transport buffer and is only valid until the next Receive.
func (t *Transport) Receive() ([]byte, error) {
	return ReadFrame(t.rw, t.buf[:])
}

// Send writes one frame
func (t *Transport) Send(frame []byte) error {
	return WriteFrame(t.rw, frame)
}

// ReadFrame reads the fixed header, then the rest of the frame as announced
// by packetLength, into buf (which must hold MaxFrameSize bytes). Any short
// read is returned as an error; io.EOF means the peer closed cleanly between
// frames.
func ReadFrame(r io.Reader, buf []byte) ([]byte, error) {
	if len(buf) < MaxFrameSize {
		return nil, io.ErrShortBuffer
	}

	// Wait for a header
	if _, err := io.ReadFull(r, buf[:HeaderSize]); err != nil {
		return nil, err
	}

	length := int(buf[headerPosLength]) | int(buf[headerPosLength+1])<<8
	if length < HeaderSize || length > MaxFrameSize {
		return nil, ErrFrameLength
	}

	if length > HeaderSize {
		if _, err := io.ReadFull(r, buf[HeaderSize:length]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
	}

	return buf[:length], nil
}

// WriteFrame writes frame completely or returns an error
func WriteFrame(w io.Writer, frame []byte) error {
	written := 0
	for written < len(frame) {
		n, err := w.Write(frame[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			// No progress - treat as a broken link
			return io.ErrShortWrite
		}
		written += n
	}
	return nil
}
