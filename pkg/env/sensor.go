package env

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/i2c"

	"github.com/robotalks/pms.go/pkg/hw"
	"github.com/robotalks/pms.go/pkg/pms5003"
	"github.com/robotalks/pms.go/pkg/station/climate"
	"github.com/robotalks/pms.go/pkg/station/indicator"
)

// Hardware lookups, replaced in tests.
var (
	lookupPin = hw.Pin
	openPort  = func(name string, baud int, readTimeout time.Duration) (pms5003.Port, error) {
		port, err := hw.OpenPort(name, baud, readTimeout)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
	openI2C = hw.OpenI2C
)

// OpenSensor opens the serial port and pins and creates the driver.
// observer may be nil. Pins already resolved are halted on failure.
func (c *Config) OpenSensor(observer pms5003.Observer) (*pms5003.Dev, error) {
	opts := c.SensorOptions()
	opts.Observer = observer
	var err error
	if opts.Reset, err = sensorPin(c.Sensor.ResetPin); err != nil {
		return nil, fmt.Errorf("reset pin: %w", err)
	}
	if opts.Enable, err = sensorPin(c.Sensor.EnablePin); err != nil {
		haltPins(opts.Reset)
		return nil, fmt.Errorf("enable pin: %w", err)
	}
	port, err := openPort(c.Sensor.Port, c.Sensor.Baud, c.Sensor.ReadTimeout)
	if err != nil {
		haltPins(opts.Reset, opts.Enable)
		return nil, err
	}
	return pms5003.New(port, opts), nil
}

// sensorPin keeps a missing pin a nil interface.
func sensorPin(name string) (pms5003.Pin, error) {
	pin, err := lookupPin(name)
	if pin == nil || err != nil {
		return nil, err
	}
	return pin, nil
}

func haltPins(pins ...pms5003.Pin) {
	for _, pin := range pins {
		if pin == nil {
			continue
		}
		if err := pin.Halt(); err != nil {
			glog.Warningf("halt pin: %v", err)
		}
	}
}

// OpenClimate opens the I²C bus of the AHT20. It returns nil values when
// the sensor is disabled. The caller closes the bus.
func (c *Config) OpenClimate() (*climate.Dev, i2c.BusCloser, error) {
	if !c.Climate.Enabled {
		return nil, nil, nil
	}
	bus, err := openI2C(c.Climate.Bus)
	if err != nil {
		return nil, nil, err
	}
	return climate.New(bus, nil), bus, nil
}

// OpenLights resolves the pins of the configured lights.
func (c *Config) OpenLights() ([]*indicator.Light, error) {
	lights := make([]*indicator.Light, 0, len(c.Lights))
	for _, l := range c.Lights {
		pin, err := lookupPin(l.Pin)
		if err != nil {
			return nil, fmt.Errorf("light %s: %w", l.Name, err)
		}
		if pin == nil {
			continue
		}
		lights = append(lights, &indicator.Light{
			Name:    l.Name,
			Pin:     pin,
			Measure: l.Measure,
			Low:     l.Low,
			High:    l.High,
		})
	}
	return lights, nil
}
