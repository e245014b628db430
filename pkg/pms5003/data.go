package pms5003

import (
	"bytes"
	"fmt"
)

// Size is a particle diameter in micrometers.
type Size float64

// Particle sizes reported by the sensor.
const (
	Size0_3 Size = 0.3
	Size0_5 Size = 0.5
	Size1_0 Size = 1.0
	Size2_5 Size = 2.5
	Size5_0 Size = 5
	Size10  Size = 10
)

// Field positions within a data frame.
const (
	FieldPM1Std = iota
	FieldPM25Std
	FieldPM10Std
	FieldPM1Env
	FieldPM25Env
	FieldPM10Env
	FieldCount0_3
	FieldCount0_5
	FieldCount1_0
	FieldCount2_5
	FieldCount5_0
	FieldCount10
	FieldReserved
	FieldChecksum
)

// ValueKeys names the measurements returned by Values, in field order.
var ValueKeys = []string{
	"pm10 standard",
	"pm25 standard",
	"pm100 standard",
	"pm10 env",
	"pm25 env",
	"pm100 env",
	"particles 03um",
	"particles 05um",
	"particles 10um",
	"particles 25um",
	"particles 50um",
	"particles 100um",
}

// DataFrame is a measurement frame. It is immutable once decoded.
type DataFrame struct {
	Frame
}

// Data returns the 13 data fields followed by the checksum.
func (d *DataFrame) Data() []uint16 {
	return append([]uint16(nil), d.Fields...)
}

// MassConcentration returns the PM mass concentration in µg/m³ for particles
// up to size, using the standard particle (CF=1) or the atmospheric
// environment calibration.
func (d *DataFrame) MassConcentration(size Size, atmospheric bool) (uint16, error) {
	index := -1
	switch size {
	case Size1_0:
		index = FieldPM1Std
	case Size2_5:
		index = FieldPM25Std
	case Size10:
		index = FieldPM10Std
	}
	if index < 0 {
		return 0, unsupportedSize(size)
	}
	if atmospheric {
		index += FieldPM1Env
	}
	return d.Fields[index], nil
}

// ParticleCount returns the number of particles beyond size in 0.1L of air.
func (d *DataFrame) ParticleCount(size Size) (uint16, error) {
	switch size {
	case Size0_3:
		return d.Fields[FieldCount0_3], nil
	case Size0_5:
		return d.Fields[FieldCount0_5], nil
	case Size1_0:
		return d.Fields[FieldCount1_0], nil
	case Size2_5:
		return d.Fields[FieldCount2_5], nil
	case Size5_0:
		return d.Fields[FieldCount5_0], nil
	case Size10:
		return d.Fields[FieldCount10], nil
	}
	return 0, unsupportedSize(size)
}

// Values returns the measurements keyed by ValueKeys.
func (d *DataFrame) Values() map[string]uint16 {
	values := make(map[string]uint16, len(ValueKeys))
	for n, key := range ValueKeys {
		values[key] = d.Fields[n]
	}
	return values
}

var valueLabels = []string{
	"PM1.0 ug/m3 (ultrafine particles)",
	"PM2.5 ug/m3 (combustion particles, organic compounds, metals)",
	"PM10 ug/m3  (dust, pollen, mould spores)",
	"PM1.0 ug/m3 (atmos env)",
	"PM2.5 ug/m3 (atmos env)",
	"PM10 ug/m3 (atmos env)",
	">0.3um in 0.1L air",
	">0.5um in 0.1L air",
	">1.0um in 0.1L air",
	">2.5um in 0.1L air",
	">5.0um in 0.1L air",
	">10um in 0.1L air",
}

// String implements fmt.Stringer.
func (d *DataFrame) String() string {
	var w bytes.Buffer
	for n, label := range valueLabels {
		fmt.Fprintf(&w, "%-63s %d\n", label+":", d.Fields[n])
	}
	return w.String()
}

func unsupportedSize(size Size) error {
	return fmt.Errorf("%w: particle size %v measurement not available", ErrUnsupportedSize, float64(size))
}
