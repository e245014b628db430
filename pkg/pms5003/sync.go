package pms5003

import (
	"encoding/binary"
	"fmt"
	"time"
)

// FrameSyncTimeout bounds the search for a start of frame.
const FrameSyncTimeout = 5 * time.Second

// readFrame locates the next frame in the byte stream and decodes it as
// shape.
func (d *Dev) readFrame(shape *Shape) (*Frame, error) {
	start := d.clock.Now()
	buf := make([]byte, 1)
	for matched := 0; matched < len(StartOfFrame); {
		if d.clock.Now().Sub(start) > FrameSyncTimeout {
			return nil, fmt.Errorf("%w: could not find start of frame", ErrReadTimeout)
		}
		n, err := d.port.Read(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: failed to read start of frame byte", ErrSerialTimeout)
		}
		switch {
		case buf[0] == StartOfFrame[matched]:
			matched++
		case buf[0] == StartOfFrame[0]:
			matched = 1
		default:
			matched = 0
		}
	}

	lengthField := make([]byte, 2)
	if n, err := d.readFull(lengthField); err != nil {
		return nil, err
	} else if n != len(lengthField) {
		return nil, fmt.Errorf("%w: could not find length packet", ErrSerialTimeout)
	}
	frameLen := int(binary.BigEndian.Uint16(lengthField))
	if err := shape.CheckLength(frameLen, "Length field"); err != nil {
		return nil, err
	}

	payload := make([]byte, frameLen)
	n, err := d.readFull(payload)
	if err != nil {
		return nil, err
	}
	if n != frameLen {
		got := "TIMEOUT"
		if n > 0 {
			got = fmt.Sprint(n)
		}
		return nil, fmt.Errorf("%w: invalid frame length, got %s bytes, expected %d", ErrSerialTimeout, got, frameLen)
	}
	return Decode(shape, payload, lengthField)
}

// readFull reads until p is filled or a read times out.
func (d *Dev) readFull(p []byte) (int, error) {
	var n int
	for n < len(p) {
		m, err := d.port.Read(p[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			break
		}
	}
	return n, nil
}
