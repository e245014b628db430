package pms5003

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestDev(port *fakePort, clock *fakeClock) *Dev {
	opts := DefaultOptions()
	opts.Clock = clock
	return New(port, opts)
}

func TestReadFrameSkipsGarbage(t *testing.T) {
	testCases := []struct {
		name    string
		garbage []byte
	}{
		{"no garbage", nil},
		{"single byte", []byte{0x00}},
		{"noise", []byte{0xff, 0x13, 0x00, 0x4d, 0x37}},
		{"partial marker", []byte{0x42, 0x00, 0x4d, 0x42, 0x11}},
		{"ends with marker byte", []byte{0x10, 0x42}},
		{"repeated start byte", []byte{0x42, 0x42, 0x42}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			port := &fakePort{clock: clock}
			dev := newTestDev(port, clock)
			port.feed(tc.garbage, dataFrame(0))
			frame, err := dev.readFrame(DataShape)
			require.NoError(t, err)
			require.Equal(t, sampleFields, frame.Fields[:13])
			require.Zero(t, port.in.Len())
		})
	}
}

func TestReadFrameTimeout(t *testing.T) {
	clock := newFakeClock()
	port := &fakePort{
		clock:     clock,
		readDelay: 10 * time.Millisecond,
		refill:    func(p *fakePort) { p.feed([]byte{0x00, 0x42, 0x00}) },
	}
	dev := newTestDev(port, clock)
	start := clock.Now()
	_, err := dev.readFrame(DataShape)
	require.True(t, errors.Is(err, ErrReadTimeout))
	require.True(t, clock.Now().Sub(start) > FrameSyncTimeout)
}

func TestReadFrameSerialTimeout(t *testing.T) {
	raw := dataFrame(0)
	testCases := []struct {
		name  string
		input []byte
		msg   string
	}{
		{"no bytes", nil, "failed to read start of frame byte"},
		{"no length", raw[:3], "could not find length packet"},
		{"no payload", raw[:4], "got TIMEOUT bytes, expected 28"},
		{"partial payload", raw[:20], "got 16 bytes, expected 28"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := newFakeClock()
			port := &fakePort{clock: clock}
			dev := newTestDev(port, clock)
			port.feed(tc.input)
			_, err := dev.readFrame(DataShape)
			require.True(t, errors.Is(err, ErrSerialTimeout))
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestReadFrameLengthField(t *testing.T) {
	clock := newFakeClock()
	port := &fakePort{clock: clock}
	dev := newTestDev(port, clock)

	port.feed(ackFrame(CmdModeActive))
	_, err := dev.readFrame(DataShape)
	require.True(t, errors.Is(err, ErrFrameLength))
	require.EqualError(t, err, "Length field too short 4 bytes")

	port.in.Reset()
	port.feed(dataFrame(0))
	_, err = dev.readFrame(CommandShape)
	require.EqualError(t, err, "Length field too long 28 bytes")
}
