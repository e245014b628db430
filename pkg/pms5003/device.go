package pms5003

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
)

const (
	// DefaultBaud is the sensor's fixed UART speed.
	DefaultBaud = 9600
	// DefaultRetries is the number of extra attempts Read makes.
	DefaultRetries = 5
	// MaxResetTime bounds the wait for the first frame after a reset.
	// 9.2 seconds have been seen on real hardware.
	MaxResetTime = 20 * time.Second

	resetPulse        = 100 * time.Millisecond
	resetPollInterval = 10 * time.Millisecond
)

// Observer is notified of every failed read attempt.
type Observer interface {
	AttemptFailed(attempt int, err error)
}

// AttemptFailedFunc is func type of Observer.
type AttemptFailedFunc func(attempt int, err error)

// AttemptFailed implements Observer.
func (f AttemptFailedFunc) AttemptFailed(attempt int, err error) {
	f(attempt, err)
}

// Options configures a Dev.
type Options struct {
	// Mode is the mode the sensor is put into after construction.
	Mode Mode
	// Retries is the number of extra attempts Read makes on failure.
	Retries int
	// Baud is the rate the port was opened with.
	Baud int
	// Reset and Enable are optional; a nil pin disables the feature.
	Reset  Pin
	Enable Pin
	// Clock defaults to SystemClock.
	Clock    Clock
	Observer Observer
}

// DefaultOptions returns the options matching the sensor's defaults.
func DefaultOptions() *Options {
	return &Options{
		Mode:    ModeActive,
		Retries: DefaultRetries,
		Baud:    DefaultBaud,
	}
}

// Dev is a handle to the sensor. It owns the port and both pins.
type Dev struct {
	port     Port
	reset    Pin
	enable   Pin
	clock    Clock
	observer Observer
	mode     Mode
	attempts int
	baud     int
	initErr  error
}

// New creates a Dev: it raises the enable and reset lines, resets the sensor
// and switches to opts.Mode. It never fails; an initialization error is
// logged and kept in InitErr.
func New(port Port, opts *Options) *Dev {
	if opts == nil {
		opts = DefaultOptions()
	}
	d := &Dev{
		port:     port,
		reset:    opts.Reset,
		enable:   opts.Enable,
		clock:    opts.Clock,
		observer: opts.Observer,
		mode:     ModeActive,
		attempts: 1,
		baud:     opts.Baud,
	}
	if d.clock == nil {
		d.clock = SystemClock
	}
	if opts.Retries > 0 {
		d.attempts += opts.Retries
	}
	if d.baud == 0 {
		d.baud = DefaultBaud
	}
	if err := d.setup(opts.Mode); err != nil {
		d.initErr = err
		glog.Warningf("pms5003: initialization incomplete: %v", err)
	}
	return d
}

func (d *Dev) setup(mode Mode) error {
	if d.enable != nil {
		if err := d.enable.Out(gpio.High); err != nil {
			return fmt.Errorf("enable pin: %w", err)
		}
	}
	if d.reset != nil {
		if err := d.reset.Out(gpio.High); err != nil {
			return fmt.Errorf("reset pin: %w", err)
		}
	}
	if _, err := d.Reset(); err != nil {
		return err
	}
	if mode == ModePassive {
		if _, err := d.EnterPassive(); err != nil {
			return err
		}
	}
	return nil
}

// InitErr returns the error swallowed during New, if any.
func (d *Dev) InitErr() error {
	return d.initErr
}

// Mode returns the mode the sensor is expected to be in.
func (d *Dev) Mode() Mode {
	return d.mode
}

// Attempts returns how many attempts Read makes.
func (d *Dev) Attempts() int {
	return d.attempts
}

// Baud returns the configured UART speed.
func (d *Dev) Baud() int {
	return d.baud
}

// Reset pulses the reset line and waits for the sensor to stream again.
// It returns false without a reset pin. The sensor always comes back in
// active mode, so passive mode is restored if it was selected.
func (d *Dev) Reset() (bool, error) {
	if d.reset == nil {
		return false, nil
	}
	d.clock.Sleep(resetPulse)
	if err := d.reset.Out(gpio.Low); err != nil {
		return false, err
	}
	if err := d.port.ResetInputBuffer(); err != nil {
		return false, err
	}
	d.clock.Sleep(resetPulse)
	if err := d.reset.Out(gpio.High); err != nil {
		return false, err
	}

	start := d.clock.Now()
	for {
		ok, err := d.DataAvailable()
		if err != nil {
			return false, err
		}
		if ok {
			break
		}
		if d.clock.Now().Sub(start) > MaxResetTime {
			return false, fmt.Errorf("%w: no response after reset", ErrReadTimeout)
		}
		d.clock.Sleep(resetPollInterval)
	}

	if d.mode == ModePassive {
		if _, err := d.readFrame(DataShape); err != nil {
			return false, fmt.Errorf("discard buffered frame: %w", err)
		}
		if _, err := d.EnterPassive(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// DataAvailable reports whether at least one full data frame is buffered.
// Only meaningful in active mode.
func (d *Dev) DataAvailable() (bool, error) {
	n, err := d.port.InWaiting()
	return n >= DataShape.FrameLen, err
}

// SetEnabled drives the enable line. A disabled sensor is asleep.
func (d *Dev) SetEnabled(on bool) error {
	if d.enable == nil {
		return fmt.Errorf("enable: %w", ErrNoPin)
	}
	return d.enable.Out(gpio.Level(on))
}

// Read returns one data frame, requesting it first in passive mode. Failed
// attempts are retried; if all fail the error of the first one is returned.
func (d *Dev) Read() (*DataFrame, error) {
	var first error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		frame, err := d.readOnce()
		if err == nil {
			return &DataFrame{Frame: *frame}, nil
		}
		if first == nil {
			first = err
		}
		if d.observer != nil {
			d.observer.AttemptFailed(attempt, err)
		}
	}
	return nil, first
}

func (d *Dev) readOnce() (*Frame, error) {
	if d.mode == ModePassive {
		if err := d.requestRead(); err != nil {
			return nil, err
		}
	}
	return d.readFrame(DataShape)
}

// Close releases the pins and the port. It is safe to call more than once.
func (d *Dev) Close() error {
	var errs []error
	if d.enable != nil {
		errs = append(errs, d.enable.Halt())
		d.enable = nil
	}
	if d.reset != nil {
		errs = append(errs, d.reset.Halt())
		d.reset = nil
	}
	if closer, ok := d.port.(io.Closer); ok {
		errs = append(errs, closer.Close())
		d.port = closedPort{}
	}
	return errors.Join(errs...)
}

type closedPort struct{}

func (closedPort) Read([]byte) (int, error)  { return 0, io.ErrClosedPipe }
func (closedPort) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (closedPort) ResetInputBuffer() error   { return io.ErrClosedPipe }
func (closedPort) InWaiting() (int, error)   { return 0, io.ErrClosedPipe }
