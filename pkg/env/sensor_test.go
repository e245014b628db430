package env

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/robotalks/pms.go/pkg/pms5003"
)

type haltPin struct {
	gpiotest.Pin
	halts int
}

func (p *haltPin) Halt() error {
	p.halts++
	return nil
}

// fakeHardware replaces the hardware lookups until the test ends.
func fakeHardware(t *testing.T, pins map[string]*haltPin, portErr error) {
	prevPin, prevPort, prevI2C := lookupPin, openPort, openI2C
	t.Cleanup(func() {
		lookupPin, openPort, openI2C = prevPin, prevPort, prevI2C
	})
	lookupPin = func(name string) (gpio.PinIO, error) {
		if name == "" {
			return nil, nil
		}
		if pin, ok := pins[name]; ok {
			return pin, nil
		}
		return nil, errors.New("unknown gpio pin " + name)
	}
	openPort = func(string, int, time.Duration) (pms5003.Port, error) {
		return nil, portErr
	}
	openI2C = func(name string) (i2c.BusCloser, error) {
		return &i2ctest.Playback{DontPanic: true}, nil
	}
}

func TestOpenSensorHaltsPins(t *testing.T) {
	errPort := errors.New("no such port")
	testCases := []struct {
		name   string
		reset  string
		enable string
		err    error
		halted []string
	}{
		{"port fails", "GPIO17", "GPIO27", errPort, []string{"GPIO17", "GPIO27"}},
		{"port fails reset only", "GPIO17", "", errPort, []string{"GPIO17"}},
		{"enable missing", "GPIO17", "GPIO99", nil, []string{"GPIO17"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pins := map[string]*haltPin{"GPIO17": {}, "GPIO27": {}}
			fakeHardware(t, pins, tc.err)
			conf := *Default()
			conf.Sensor.ResetPin = tc.reset
			conf.Sensor.EnablePin = tc.enable
			dev, err := conf.OpenSensor(nil)
			require.Error(t, err)
			require.Nil(t, dev)
			if tc.err != nil {
				require.True(t, errors.Is(err, tc.err))
			}
			for _, name := range tc.halted {
				require.Equal(t, 1, pins[name].halts, name)
			}
		})
	}
}

func TestOpenClimate(t *testing.T) {
	fakeHardware(t, nil, nil)
	conf := *Default()
	dev, bus, err := conf.OpenClimate()
	require.NoError(t, err)
	require.Nil(t, dev)
	require.Nil(t, bus)

	conf.Climate.Enabled = true
	dev, bus, err = conf.OpenClimate()
	require.NoError(t, err)
	require.NotNil(t, dev)
	require.NoError(t, bus.Close())
}
