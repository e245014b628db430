// Package climate reads temperature and relative humidity from an AHT20
// sensor on an I²C bus.
package climate

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// DefaultAddress of the AHT20.
const DefaultAddress i2c.Addr = 0x38

// Keys of the values merged into the station readings.
const (
	TemperatureKey = "temperature"
	HumidityKey    = "humidity"
)

const (
	cmdInit    byte = 0xbe
	cmdTrigger byte = 0xac
	cmdStatus  byte = 0x71

	statusBusy       byte = 0x80
	statusCalibrated byte = 0x08

	initDelay      = 10 * time.Millisecond
	measureDelay   = 80 * time.Millisecond
	pollInterval   = 15 * time.Millisecond
	collectTimeout = 250 * time.Millisecond

	frameLen  = 7
	fullScale = 1 << 20
)

var (
	// ErrBusy is returned when a measurement isn't ready in time.
	ErrBusy = errors.New("aht20: measurement not ready")
	// ErrChecksum is returned when the CRC of a measurement doesn't match.
	ErrChecksum = errors.New("aht20: crc mismatch")
)

// Reading is one measurement.
type Reading struct {
	Celsius  float64 `json:"celsius"`
	Humidity float64 `json:"humidity"`
}

// Values returns the reading rounded to hundredths, temperature in °F
// when fahrenheit is set.
func (r Reading) Values(fahrenheit bool) map[string]float64 {
	temp := r.Celsius
	if fahrenheit {
		temp = temp*9/5 + 32
	}
	return map[string]float64{
		TemperatureKey: round2(temp),
		HumidityKey:    round2(r.Humidity),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Options configures a Dev.
type Options struct {
	Addr i2c.Addr
	// Sleep waits for the sensor, time.Sleep when nil.
	Sleep func(time.Duration)
}

// Dev is an AHT20 on an I²C bus.
type Dev struct {
	d     *i2c.Dev
	sleep func(time.Duration)

	mu          sync.Mutex
	initialized bool
}

// New creates a Dev. The sensor isn't touched until the first read.
func New(bus i2c.Bus, opts *Options) *Dev {
	dev := &Dev{
		d:     &i2c.Dev{Bus: bus, Addr: uint16(DefaultAddress)},
		sleep: time.Sleep,
	}
	if opts != nil {
		if opts.Addr != 0 {
			dev.d.Addr = uint16(opts.Addr)
		}
		if opts.Sleep != nil {
			dev.sleep = opts.Sleep
		}
	}
	return dev
}

func (dev *Dev) String() string {
	return fmt.Sprintf("AHT20{%s}", dev.d)
}

// Halt implements conn.Resource. There is nothing to stop.
func (dev *Dev) Halt() error {
	return nil
}

// Precision implements physic.SenseEnv.
func (dev *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 100
	e.Humidity = physic.PercentRH / 100
	e.Pressure = 0
}

// Sense takes one measurement into e. Pressure isn't measured.
func (dev *Dev) Sense(e *physic.Env) error {
	r, err := dev.Read()
	if err != nil {
		return err
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(r.Celsius*float64(physic.Celsius))
	e.Humidity = physic.RelativeHumidity(r.Humidity * float64(physic.PercentRH))
	e.Pressure = 0
	return nil
}

// Read takes one measurement, calibrating the sensor first if it reports
// it isn't.
func (dev *Dev) Read() (Reading, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.initialized {
		if err := dev.init(); err != nil {
			return Reading{}, err
		}
		dev.initialized = true
	}
	if err := dev.d.Tx([]byte{cmdTrigger, 0x33, 0x00}, nil); err != nil {
		return Reading{}, fmt.Errorf("aht20: trigger: %w", err)
	}
	dev.sleep(measureDelay)
	frame := make([]byte, frameLen)
	for waited := measureDelay; ; waited += pollInterval {
		if err := dev.d.Tx(nil, frame); err != nil {
			return Reading{}, fmt.Errorf("aht20: read: %w", err)
		}
		if frame[0]&statusBusy == 0 {
			break
		}
		if waited >= collectTimeout {
			return Reading{}, ErrBusy
		}
		dev.sleep(pollInterval)
	}
	if crc8(frame[:6]) != frame[6] {
		// Recalibrate on the next read.
		dev.initialized = false
		return Reading{}, ErrChecksum
	}
	return parse(frame), nil
}

func (dev *Dev) init() error {
	status := make([]byte, 1)
	if err := dev.d.Tx([]byte{cmdStatus}, status); err != nil {
		return fmt.Errorf("aht20: status: %w", err)
	}
	if status[0]&statusCalibrated != 0 {
		return nil
	}
	if err := dev.d.Tx([]byte{cmdInit, 0x08, 0x00}, nil); err != nil {
		return fmt.Errorf("aht20: calibrate: %w", err)
	}
	dev.sleep(initDelay)
	return nil
}

func parse(frame []byte) Reading {
	hraw := uint32(frame[1])<<12 | uint32(frame[2])<<4 | uint32(frame[3])>>4
	traw := uint32(frame[3]&0x0f)<<16 | uint32(frame[4])<<8 | uint32(frame[5])
	return Reading{
		Celsius:  float64(traw)*200/fullScale - 50,
		Humidity: float64(hraw) * 100 / fullScale,
	}
}

// crc8 is the Sensirion style CRC: polynomial 0x31, initial value 0xff.
func crc8(data []byte) byte {
	crc := byte(0xff)
	for _, b := range data {
		crc ^= b
		for n := 0; n < 8; n++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
