package pms5003

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Mode is the sensor's operating mode.
type Mode int

const (
	// ModeActive streams data frames unsolicited. The device powers up in
	// this mode.
	ModeActive Mode = iota
	// ModePassive sends a data frame only when requested.
	ModePassive
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModePassive:
		return "passive"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "active" or "passive".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return ModeActive, nil
	case "passive":
		return ModePassive, nil
	}
	return ModeActive, fmt.Errorf("invalid mode %q", s)
}

// MinCommandInterval is the minimum spacing between commands. Mode changes
// issued closer than 50ms apart break the sensor firmware.
const MinCommandInterval = 100 * time.Millisecond

// EnterPassive switches the sensor to passive mode and returns the
// acknowledgement.
func (d *Dev) EnterPassive() (*Frame, error) {
	d.mode = ModePassive
	return d.command(CmdModePassive)
}

// EnterActive switches the sensor to active mode and returns the
// acknowledgement.
func (d *Dev) EnterActive() (*Frame, error) {
	d.mode = ModeActive
	return d.command(CmdModeActive)
}

// Sleep puts the sensor to sleep, stopping the fan and laser.
func (d *Dev) Sleep() (*Frame, error) {
	return d.command(CmdSleep)
}

// Wake wakes the sensor up. It sends no acknowledgement; passive mode is
// re-applied if configured.
func (d *Dev) Wake() error {
	d.clock.Sleep(MinCommandInterval)
	err := d.send(CmdWake)
	d.clock.Sleep(MinCommandInterval)
	if err != nil || d.mode != ModePassive {
		return err
	}
	_, err = d.EnterPassive()
	return err
}

// command sends cmd and reads the acknowledgement, tolerating one stray data
// frame in between.
func (d *Dev) command(cmd Command) (*Frame, error) {
	d.clock.Sleep(MinCommandInterval)
	defer d.clock.Sleep(MinCommandInterval)
	if err := d.send(cmd); err != nil {
		return nil, err
	}
	ack, err := d.readFrame(CommandShape)
	if errors.Is(err, ErrFrameLength) {
		glog.V(2).Infof("pms5003: stray frame before %s ack: %v", cmd, err)
		ack, err = d.readFrame(CommandShape)
	}
	if err != nil {
		return nil, fmt.Errorf("%s command: %w", cmd, err)
	}
	return ack, nil
}

// requestRead asks for one data frame in passive mode.
func (d *Dev) requestRead() error {
	return d.send(CmdRead)
}

func (d *Dev) send(cmd Command) error {
	if err := d.port.ResetInputBuffer(); err != nil {
		return err
	}
	frame := cmd.Frame()
	n, err := d.port.Write(frame)
	if err == nil && n != len(frame) {
		err = fmt.Errorf("%w: wrote %d of %d command bytes", ErrSerialTimeout, n, len(frame))
	}
	return err
}
