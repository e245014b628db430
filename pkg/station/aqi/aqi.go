// Package aqi computes the US EPA air quality index from particulate
// concentrations.
package aqi

import "math"

// Breakpoint is an inclusive concentration range and the index range it
// maps to.
type Breakpoint struct {
	Low, High           float64
	IndexLow, IndexHigh int
}

var (
	// PM25 are the breakpoints for PM2.5 in ug/m3.
	PM25 = []Breakpoint{
		{0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 350.4, 301, 400},
		{350.5, 500.4, 401, 500},
	}
	// PM10 are the breakpoints for PM10 in ug/m3.
	PM10 = []Breakpoint{
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 504, 301, 400},
		{505, 604, 401, 500},
	}
)

// Index interpolates c within the breakpoint containing it. Concentrations
// above the table extrapolate the last breakpoint; negative ones count as 0.
func Index(table []Breakpoint, c float64) int {
	if c < 0 {
		c = 0
	}
	bp := table[len(table)-1]
	for _, b := range table {
		if b.Low <= c && c <= b.High {
			bp = b
			break
		}
	}
	slope := float64(bp.IndexHigh-bp.IndexLow) / (bp.High - bp.Low)
	return int(math.RoundToEven(slope*(c-bp.Low) + float64(bp.IndexLow)))
}

// FromPM25 returns the index of a PM2.5 concentration truncated to 0.1.
func FromPM25(c float64) int {
	return Index(PM25, math.Trunc(c*10)/10)
}

// FromPM10 returns the index of a PM10 concentration truncated to an integer.
func FromPM10(c float64) int {
	return Index(PM10, math.Trunc(c))
}

// Info describes an index value.
type Info struct {
	AQI      int      `json:"aqi"`
	Category string   `json:"category"`
	Color    string   `json:"color"`
	RGB      [3]uint8 `json:"rgb"`
}

type category struct {
	upper int
	name  string
	color string
	rgb   [3]uint8
}

var categories = []category{
	{50, "Good", "Green", [3]uint8{0, 228, 0}},
	{100, "Moderate", "Yellow", [3]uint8{255, 255, 0}},
	{150, "Unhealthy for Sensitive Groups", "Orange", [3]uint8{255, 126, 0}},
	{200, "Unhealthy", "Red", [3]uint8{255, 0, 0}},
	{300, "Very Unhealthy", "Purple", [3]uint8{143, 63, 151}},
	{math.MaxInt, "Hazardous", "Maroon", [3]uint8{126, 0, 35}},
}

// Describe returns the category of an index value.
func Describe(aqi int) Info {
	c := categories[len(categories)-1]
	for _, cat := range categories {
		if aqi <= cat.upper {
			c = cat
			break
		}
	}
	return Info{AQI: aqi, Category: c.name, Color: c.color, RGB: c.rgb}
}
