package hw

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// Init loads the periph.io host drivers. It is safe to call repeatedly.
func Init() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// Pin looks up a GPIO line by name, e.g. "GPIO22". An empty name returns
// nil, which disables the feature using the pin.
func Pin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, nil
	}
	if err := Init(); err != nil {
		return nil, fmt.Errorf("periph host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("unknown gpio pin %q", name)
	}
	return pin, nil
}

// OpenI2C opens an I²C bus by name, e.g. "1". An empty name opens the
// first bus found.
func OpenI2C(name string) (i2c.BusCloser, error) {
	if err := Init(); err != nil {
		return nil, fmt.Errorf("periph host: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2c bus %q: %w", name, err)
	}
	return bus, nil
}
