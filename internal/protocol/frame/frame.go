package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/lifxctl/internal/protocol/header"
)

// A capture stream is LIFX messages back to back. Each message starts with
// its own little-endian size, so no extra framing is needed.

var (
	ErrShortHeader   = errors.New("frame: short size prefix")
	ErrSizeTooSmall  = errors.New("frame: size smaller than header")
	ErrFrameTooLarge = errors.New("frame: frame too large")
	ErrSizeMismatch  = errors.New("frame: size field disagrees with frame length")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxFrameBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 64 * 1024}
}

// ReadFrame reads one message from r. It returns io.EOF when r is exhausted
// cleanly between frames.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	size := int(binary.LittleEndian.Uint16(prefix[:]))
	if size < header.Size {
		return nil, fmt.Errorf("%w: %d", ErrSizeTooSmall, size)
	}
	if size > limits.MaxFrameBytes {
		return nil, fmt.Errorf("%w: %d", ErrFrameTooLarge, size)
	}
	buf := make([]byte, size)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r, buf[2:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("frame: read %d byte body: %w", size, err)
	}
	return buf, nil
}

// WriteFrame appends one serialized message to w after checking that its
// size field covers it exactly.
func WriteFrame(w io.Writer, raw []byte, limits Limits) error {
	if len(raw) < 2 {
		return ErrShortHeader
	}
	if len(raw) > limits.MaxFrameBytes {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(raw))
	}
	if size := int(binary.LittleEndian.Uint16(raw[:2])); size != len(raw) {
		return fmt.Errorf("%w: size=%d len=%d", ErrSizeMismatch, size, len(raw))
	}
	_, err := w.Write(raw)
	return err
}
