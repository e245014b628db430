// Package station polls the particulate sensor on the control loop and
// keeps the latest readings for the outer surfaces.
package station

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/pms.go/pkg/framework"
	"github.com/robotalks/pms.go/pkg/metrics"
	"github.com/robotalks/pms.go/pkg/pms5003"
	"github.com/robotalks/pms.go/pkg/station/aqi"
	"github.com/robotalks/pms.go/pkg/station/climate"
	"github.com/robotalks/pms.go/pkg/station/indicator"
	"github.com/robotalks/pms.go/pkg/station/smoothing"
)

// Keys of the smoothed values the AQI is computed from.
const (
	PM25Key = "pm25 env"
	PM10Key = "pm100 env"
)

// Sensor is the driver surface used by the station. *pms5003.Dev
// implements it.
type Sensor interface {
	Read() (*pms5003.DataFrame, error)
	Mode() pms5003.Mode
	Reset() (bool, error)
	EnterPassive() (*pms5003.Frame, error)
	EnterActive() (*pms5003.Frame, error)
	Sleep() (*pms5003.Frame, error)
	Wake() error
}

// Climate reads temperature and humidity. *climate.Dev implements it.
type Climate interface {
	Read() (climate.Reading, error)
}

// Snapshot is the state after one successful read.
type Snapshot struct {
	Seq      uint64            `json:"seq"`
	Time     time.Time         `json:"time"`
	Raw      map[string]uint16 `json:"raw"`
	Smoothed map[string]int    `json:"smoothed"`
	AQI      aqi.Info          `json:"aqi"`
	AQIPM10  int               `json:"aqi_pm10"`
	// Climate holds temperature and humidity of this read, nil without
	// a climate sensor or when its read failed.
	Climate map[string]float64 `json:"climate,omitempty"`
}

// Health summarizes the sensor's recent behavior.
type Health struct {
	Mode      string    `json:"mode"`
	Asleep    bool      `json:"asleep"`
	Reads     uint64    `json:"reads"`
	Failures  uint64    `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
	LastRead  time.Time `json:"last_read"`
}

// Station reads the sensor once per loop iteration. Control must only be
// called from the loop; everything else is safe for concurrent use.
type Station struct {
	sensor     Sensor
	climate    Climate
	fahrenheit bool
	window     *smoothing.Window
	lights     []*indicator.Light
	metrics    *metrics.SensorMetrics

	lock     sync.RWMutex
	snapshot *Snapshot
	health   Health
	seq      uint64
	subs     map[chan *Snapshot]struct{}
}

// Options configures a Station.
type Options struct {
	// Smooth is the number of readings averaged.
	Smooth  int
	Lights  []*indicator.Light
	Metrics *metrics.SensorMetrics
	// Climate is optional. Its values are smoothed along with the
	// particulate readings.
	Climate    Climate
	Fahrenheit bool
}

// New creates a Station reading sensor.
func New(sensor Sensor, opts Options) *Station {
	s := &Station{
		sensor:     sensor,
		climate:    opts.Climate,
		fahrenheit: opts.Fahrenheit,
		window:     smoothing.NewWindow(opts.Smooth),
		lights:     opts.Lights,
		metrics:    opts.Metrics,
		subs:       make(map[chan *Snapshot]struct{}),
	}
	s.health.Mode = sensor.Mode().String()
	if s.metrics != nil {
		s.metrics.ObserveMode(sensor.Mode())
	}
	return s
}

// Name implements framework.Named.
func (s *Station) Name() string {
	return "station"
}

// AddToLoop implements framework.LoopAdder.
func (s *Station) AddToLoop(l *framework.Loop) {
	l.AddController(framework.StageSense, s)
}

// Control implements framework.Controller. A failed read skips the
// interval; the error is reported to the loop.
func (s *Station) Control(cc framework.ControlContext) error {
	s.lock.RLock()
	asleep := s.health.Asleep
	s.lock.RUnlock()
	if asleep {
		return nil
	}

	frame, err := s.sensor.Read()
	if s.metrics != nil {
		var values map[string]uint16
		if frame != nil {
			values = frame.Values()
		}
		s.metrics.ObserveRead(values, err)
	}
	if err != nil {
		s.lock.Lock()
		s.health.Failures++
		s.health.LastError = err.Error()
		s.lock.Unlock()
		return fmt.Errorf("read skipped: %w", err)
	}

	raw := frame.Values()
	samples := make(map[string]float64, len(raw))
	for key, value := range raw {
		samples[key] = float64(value)
	}
	th := s.readClimate()
	for key, value := range th {
		samples[key] = value
	}
	s.window.Add(samples)
	smoothed := s.window.Averages()

	for _, light := range s.lights {
		if err := light.Update(smoothed); err != nil {
			glog.Warningf("%v", err)
		}
	}

	info := aqi.Describe(aqi.FromPM25(float64(smoothed[PM25Key])))
	pm10 := aqi.FromPM10(float64(smoothed[PM10Key]))
	if s.metrics != nil {
		s.metrics.AQI.WithLabelValues("pm25").Set(float64(info.AQI))
		s.metrics.AQI.WithLabelValues("pm10").Set(float64(pm10))
	}

	s.lock.Lock()
	s.seq++
	snapshot := &Snapshot{
		Seq:      s.seq,
		Time:     cc.Time(),
		Raw:      raw,
		Smoothed: smoothed,
		AQI:      info,
		AQIPM10:  pm10,
		Climate:  th,
	}
	s.snapshot = snapshot
	s.health.Reads++
	s.health.LastRead = snapshot.Time
	for ch := range s.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
	s.lock.Unlock()
	glog.V(2).Infof("pms5003: %s=%d %s=%d aqi=%d", PM25Key, smoothed[PM25Key], PM10Key, smoothed[PM10Key], info.AQI)
	return nil
}

// readClimate returns nil when there is no climate sensor. A failed read
// only loses the climate values of this interval.
func (s *Station) readClimate() map[string]float64 {
	if s.climate == nil {
		return nil
	}
	reading, err := s.climate.Read()
	var values map[string]float64
	if err == nil {
		values = reading.Values(s.fahrenheit)
	}
	if s.metrics != nil {
		s.metrics.ObserveClimate(values, err)
	}
	if err != nil {
		glog.Warningf("climate read skipped: %v", err)
		return nil
	}
	return values
}

// Snapshot returns the latest snapshot, nil before the first good read.
func (s *Station) Snapshot() *Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshot
}

// Health returns the current health summary.
func (s *Station) Health() Health {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.health
}

// Subscribe returns a channel receiving every new snapshot. Slow receivers
// miss snapshots. The returned func unsubscribes.
func (s *Station) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	s.lock.Lock()
	s.subs[ch] = struct{}{}
	s.lock.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.lock.Lock()
			delete(s.subs, ch)
			s.lock.Unlock()
		})
	}
}

// SetLight sets a light by name, overriding it until the next reading.
func (s *Station) SetLight(name string, on bool) error {
	for _, light := range s.lights {
		if light.Name == name {
			return light.Set(on)
		}
	}
	return fmt.Errorf("%w light %q", ErrUnknown, name)
}

// Lights returns the state of every light.
func (s *Station) Lights() map[string]bool {
	states := make(map[string]bool, len(s.lights))
	for _, light := range s.lights {
		states[light.Name] = light.On()
	}
	return states
}
