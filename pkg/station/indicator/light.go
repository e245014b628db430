// Package indicator drives status LEDs from measurements.
package indicator

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Pin is the output line driving a LED.
type Pin interface {
	Out(gpio.Level) error
}

// Light is a LED lit while Low < value <= High for the value of Measure.
// A missing measurement turns it off.
type Light struct {
	Name    string
	Pin     Pin
	Measure string
	Low     float64
	High    float64

	on    bool
	known bool
	lock  sync.Mutex
}

// Update sets the LED from values.
func (l *Light) Update(values map[string]int) error {
	v, ok := values[l.Measure]
	return l.Set(ok && l.Low < float64(v) && float64(v) <= l.High)
}

// Set turns the LED on or off. The pin is only driven on changes.
func (l *Light) Set(on bool) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.known && l.on == on {
		return nil
	}
	if err := l.Pin.Out(gpio.Level(on)); err != nil {
		l.known = false
		return fmt.Errorf("light %s: %w", l.Name, err)
	}
	l.on, l.known = on, true
	return nil
}

// On reports whether the LED is lit.
func (l *Light) On() bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.on
}
