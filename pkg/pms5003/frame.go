package pms5003

import (
	"encoding/binary"
)

// StartOfFrame is the marker every frame begins with.
var StartOfFrame = [2]byte{0x42, 0x4d}

// Shape describes the fixed layout of one kind of frame.
type Shape struct {
	Name string
	// FrameLen is the total size on the wire, marker and length included.
	FrameLen int
	// Layout lists the big-endian field widths (1 or 2 bytes) of the payload.
	Layout []int
	// ChecksumIndex is the position of the checksum within the fields.
	ChecksumIndex int
}

var (
	// CommandShape is the acknowledgement sent back for a command.
	CommandShape = &Shape{
		Name:          "command",
		FrameLen:      8,
		Layout:        []int{1, 1, 2},
		ChecksumIndex: 2,
	}
	// DataShape is a measurement frame: 13 data fields and the checksum.
	DataShape = &Shape{
		Name:          "data",
		FrameLen:      32,
		Layout:        []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
		ChecksumIndex: 13,
	}
)

// DataLen is the payload length, checksum included, which is also the value
// carried in the length field.
func (s *Shape) DataLen() int {
	return s.FrameLen - 4
}

// CheckLength validates n against DataLen. desc prefixes the error message.
func (s *Shape) CheckLength(n int, desc string) error {
	if n != s.DataLen() {
		return &LengthError{Desc: desc, Got: n, Want: s.DataLen()}
	}
	return nil
}

// Frame is a decoded and validated frame.
type Frame struct {
	Shape    *Shape
	Raw      []byte
	Fields   []uint16
	Checksum uint16
}

// Decode unpacks payload according to shape and validates the checksum.
// lengthField is the pair of bytes the length was read from.
func Decode(shape *Shape, payload, lengthField []byte) (*Frame, error) {
	if err := shape.CheckLength(len(payload), "Data"); err != nil {
		return nil, err
	}
	f := &Frame{
		Shape:  shape,
		Raw:    append([]byte(nil), payload...),
		Fields: make([]uint16, 0, len(shape.Layout)),
	}
	off := 0
	for _, width := range shape.Layout {
		if width == 1 {
			f.Fields = append(f.Fields, uint16(payload[off]))
		} else {
			f.Fields = append(f.Fields, binary.BigEndian.Uint16(payload[off:]))
		}
		off += width
	}
	f.Checksum = f.Fields[shape.ChecksumIndex]

	// the checksum bytes themselves are excluded
	sum := checksum(StartOfFrame[:], payload[:len(payload)-2], lengthField)
	if sum != f.Checksum {
		return nil, &ChecksumError{Computed: sum, Embedded: f.Checksum}
	}
	return f, nil
}

func checksum(parts ...[]byte) (sum uint16) {
	for _, part := range parts {
		for _, b := range part {
			sum += uint16(b)
		}
	}
	return
}
