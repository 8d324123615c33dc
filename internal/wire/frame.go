package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// prefixLength is the size of the big-endian frame length.
const prefixLength = 4

// DefaultMaxFrameBytes bounds a single frame body.
const DefaultMaxFrameBytes = 16 * 1024 * 1024

// ErrFraming marks a short read, an oversized length or an undecodable body.
// It is local to one connection.
var ErrFraming = errors.New("framing error")

// WriteFrame writes the length prefix and the encoded payload to w in a
// single write.
func WriteFrame(w io.Writer, p *Payload) error {
	body := Marshal(p)
	frame := make([]byte, prefixLength, prefixLength+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	frame = append(frame, body...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Reader decodes consecutive frames from a byte stream.
type Reader struct {
	r        *bufio.Reader
	maxFrame uint32
	buf      []byte
}

// NewReader creates a frame reader. A maxFrameBytes <= 0 selects
// DefaultMaxFrameBytes.
func NewReader(r io.Reader, maxFrameBytes int) *Reader {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}
	return &Reader{
		r:        bufio.NewReader(r),
		maxFrame: uint32(maxFrameBytes),
	}
}

// ReadFrame reads one length-prefixed payload. It returns io.EOF when the
// stream ends cleanly between frames; every other failure wraps ErrFraming.
func (r *Reader) ReadFrame() (*Payload, error) {
	var prefix [prefixLength]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: read length prefix: %w", ErrFraming, err)
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > r.maxFrame {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit of %d", ErrFraming, size, r.maxFrame)
	}

	if cap(r.buf) < int(size) {
		r.buf = make([]byte, size)
	}
	body := r.buf[:size]
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, fmt.Errorf("%w: read frame body of %d bytes: %w", ErrFraming, size, err)
	}

	return Unmarshal(body)
}
