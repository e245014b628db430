package pms5003

import (
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Port is the serial channel to the sensor.
//
// Read blocks up to the port's read timeout and returns 0 bytes with a nil
// error when nothing arrived in time.
type Port interface {
	io.ReadWriter
	// ResetInputBuffer discards received but unread bytes.
	ResetInputBuffer() error
	// InWaiting returns the number of bytes ready to be read.
	InWaiting() (int, error)
}

// Pin is a digital output line. gpio.PinIO satisfies it.
type Pin interface {
	Out(l gpio.Level) error
	Halt() error
}

// Clock provides monotonic time for all timeouts and command spacing.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
