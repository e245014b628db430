package pms5003

import (
	"bytes"
	"encoding/binary"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.slept += d
}

type fakePort struct {
	clock     *fakeClock
	readDelay time.Duration
	in        bytes.Buffer
	written   []Command
	flushes   int
	closed    int

	// onWrite is called with the command just written.
	onWrite func(p *fakePort, cmd Command)
	// refill is called when a read finds the buffer empty.
	refill func(p *fakePort)
	// onInWaiting is called before the buffered length is reported.
	onInWaiting func(p *fakePort)
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.clock != nil && p.readDelay > 0 {
		p.clock.Sleep(p.readDelay)
	}
	if p.in.Len() == 0 && p.refill != nil {
		p.refill(p)
	}
	n, _ := p.in.Read(b)
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	cmd, err := DecodeCommandFrame(b)
	if err != nil {
		panic(err)
	}
	p.written = append(p.written, cmd)
	if p.onWrite != nil {
		p.onWrite(p, cmd)
	}
	return len(b), nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.flushes++
	p.in.Reset()
	return nil
}

func (p *fakePort) InWaiting() (int, error) {
	if p.onInWaiting != nil {
		p.onInWaiting(p)
	}
	return p.in.Len(), nil
}

func (p *fakePort) Close() error {
	p.closed++
	return nil
}

func (p *fakePort) feed(chunks ...[]byte) {
	for _, chunk := range chunks {
		p.in.Write(chunk)
	}
}

type recordingPin struct {
	gpiotest.Pin
	levels []gpio.Level
	halted int
}

func (p *recordingPin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return p.Pin.Out(l)
}

func (p *recordingPin) Halt() error {
	p.halted++
	return nil
}

var sampleFields = []uint16{10, 25, 40, 8, 20, 35, 100, 200, 300, 400, 50, 10, 2}

// encodeFrame builds a wire frame with the given fields and a checksum
// adjusted by delta.
func encodeFrame(shape *Shape, fields []uint16, delta int) []byte {
	frame := append([]byte(nil), StartOfFrame[:]...)
	frame = binary.BigEndian.AppendUint16(frame, uint16(shape.DataLen()))
	for n, value := range fields {
		if shape.Layout[n] == 1 {
			frame = append(frame, byte(value))
		} else {
			frame = binary.BigEndian.AppendUint16(frame, value)
		}
	}
	sum := checksum(frame) + uint16(delta)
	return binary.BigEndian.AppendUint16(frame, sum)
}

func dataFrame(delta int) []byte {
	return encodeFrame(DataShape, sampleFields, delta)
}

func ackFrame(cmd Command) []byte {
	return encodeFrame(CommandShape, []uint16{uint16(cmd[0]), uint16(cmd[2])}, 0)
}

// ackingPort replies to every command except read and wake with an
// acknowledgement, and to read with a data frame.
func ackingPort(clock *fakeClock) *fakePort {
	return &fakePort{
		clock: clock,
		onWrite: func(p *fakePort, cmd Command) {
			switch cmd {
			case CmdRead:
				p.feed(dataFrame(0))
			case CmdWake:
			default:
				p.feed(ackFrame(cmd))
			}
		},
	}
}
