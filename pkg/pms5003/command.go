package pms5003

import (
	"encoding/binary"
	"fmt"
)

// Command is the 3-byte body of a command frame.
type Command [3]byte

// Commands understood by the sensor.
var (
	CmdModePassive = Command{0xe1, 0x00, 0x00}
	CmdModeActive  = Command{0xe1, 0x00, 0x01}
	CmdRead        = Command{0xe2, 0x00, 0x00}
	CmdSleep       = Command{0xe4, 0x00, 0x00}
	CmdWake        = Command{0xe4, 0x00, 0x01}
)

var commandNames = map[Command]string{
	CmdModePassive: "passive",
	CmdModeActive:  "active",
	CmdRead:        "read",
	CmdSleep:       "sleep",
	CmdWake:        "wake",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cmd(%02x %02x %02x)", c[0], c[1], c[2])
}

// Frame returns the encoded command frame.
func (c Command) Frame() []byte {
	frame, _ := BuildCommandFrame(c[:])
	return frame
}

// commandFrameLen is marker + command + checksum.
const commandFrameLen = 7

// BuildCommandFrame wraps 3 command bytes with the start marker and checksum.
func BuildCommandFrame(cmd []byte) ([]byte, error) {
	if len(cmd) != len(Command{}) {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrMalformedCommand, len(cmd), len(Command{}))
	}
	frame := make([]byte, 0, commandFrameLen)
	frame = append(frame, StartOfFrame[:]...)
	frame = append(frame, cmd...)
	return binary.BigEndian.AppendUint16(frame, checksum(frame)), nil
}

// DecodeCommandFrame validates a frame produced by BuildCommandFrame and
// recovers its command bytes.
func DecodeCommandFrame(frame []byte) (cmd Command, err error) {
	if len(frame) != commandFrameLen {
		return cmd, &LengthError{Desc: "Command frame", Got: len(frame), Want: commandFrameLen}
	}
	if frame[0] != StartOfFrame[0] || frame[1] != StartOfFrame[1] {
		return cmd, fmt.Errorf("%w: missing start of frame", ErrFrameLength)
	}
	sum := checksum(frame[:commandFrameLen-2])
	if embedded := binary.BigEndian.Uint16(frame[commandFrameLen-2:]); sum != embedded {
		return cmd, &ChecksumError{Computed: sum, Embedded: embedded}
	}
	copy(cmd[:], frame[2:5])
	return cmd, nil
}
