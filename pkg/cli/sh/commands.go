package sh

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/pms.go/pkg/pms5003"
	"github.com/robotalks/pms.go/pkg/station/aqi"
)

var namedCommands = map[string]pms5003.Command{
	"passive": pms5003.CmdModePassive,
	"active":  pms5003.CmdModeActive,
	"read":    pms5003.CmdRead,
	"sleep":   pms5003.CmdSleep,
	"wake":    pms5003.CmdWake,
}

// ParseCommandBytes accepts a command name or hex bytes, e.g. "e1 00 00".
func ParseCommandBytes(args []string) ([]byte, error) {
	if len(args) == 1 {
		if cmd, ok := namedCommands[strings.ToLower(args[0])]; ok {
			return cmd[:], nil
		}
	}
	b, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return nil, fmt.Errorf("invalid command bytes: %w", err)
	}
	return b, nil
}

// FormatHex renders bytes as space separated hex.
func FormatHex(b []byte) string {
	parts := make([]string, len(b))
	for n, v := range b {
		parts[n] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, " ")
}

// AQIReport holds the indexes of one pair of concentrations.
type AQIReport struct {
	PM25 aqi.Info `json:"pm25"`
	PM10 aqi.Info `json:"pm10"`
}

// NewAQIReport computes the indexes of concentrations in ug/m3.
func NewAQIReport(pm25, pm10 float64) AQIReport {
	return AQIReport{
		PM25: aqi.Describe(aqi.FromPM25(pm25)),
		PM10: aqi.Describe(aqi.FromPM10(pm10)),
	}
}

// String implements fmt.Stringer.
func (r AQIReport) String() string {
	return fmt.Sprintf("PM2.5 AQI %d (%s)\nPM10  AQI %d (%s)",
		r.PM25.AQI, r.PM25.Category, r.PM10.AQI, r.PM10.Category)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("expect on or off, got %q", s)
}

var (
	// OpenCmd opens the sensor.
	OpenCmd = ishell.Cmd{
		Name: "open",
		Help: "[PORT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Sensor.Port = c.Args[0]
			}
			if err := s.Connect(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the sensor.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// ReadCmd reads data frames.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[COUNT]",
		Func: MustBeOpen(func(c *ishell.Context, dev *pms5003.Dev) {
			count := 1
			if len(c.Args) > 0 {
				n, err := strconv.Atoi(c.Args[0])
				if err != nil || n <= 0 {
					c.Err(fmt.Errorf("invalid count %q", c.Args[0]))
					return
				}
				count = n
			}
			s := ShellFrom(c)
			for i := 0; i < count; i++ {
				data, err := dev.Read()
				if err != nil {
					c.Err(err)
					return
				}
				s.Print(c, data.Values(), data.String())
			}
		}),
	}

	// ModeCmd shows or switches the mode.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "[active|passive]",
		Func: MustBeOpen(func(c *ishell.Context, dev *pms5003.Dev) {
			if len(c.Args) == 0 {
				c.Println(dev.Mode().String())
				return
			}
			mode, err := pms5003.ParseMode(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if mode == pms5003.ModePassive {
				_, err = dev.EnterPassive()
			} else {
				_, err = dev.EnterActive()
			}
			if err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// ResetCmd pulses the reset line.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, dev *pms5003.Dev) {
			ok, err := dev.Reset()
			switch {
			case err != nil:
				c.Err(err)
			case !ok:
				c.Println("no reset pin")
			default:
				c.Println("OK")
			}
		}),
	}

	// SleepCmd puts the sensor to sleep.
	SleepCmd = ishell.Cmd{
		Name: "sleep",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, dev *pms5003.Dev) {
			if _, err := dev.Sleep(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// WakeCmd wakes the sensor up.
	WakeCmd = ishell.Cmd{
		Name: "wake",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context, dev *pms5003.Dev) {
			if err := dev.Wake(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// EnableCmd drives the enable line.
	EnableCmd = ishell.Cmd{
		Name: "enable",
		Help: "on|off",
		Func: MustBeOpen(func(c *ishell.Context, dev *pms5003.Dev) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("expect on or off"))
				return
			}
			on, err := parseOnOff(c.Args[0])
			if err == nil {
				err = dev.SetEnabled(on)
			}
			if err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// AQICmd computes the index of given concentrations.
	AQICmd = ishell.Cmd{
		Name: "aqi",
		Help: "PM2.5 [PM10]",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("concentration expected"))
				return
			}
			var values [2]float64
			for n := 0; n < len(c.Args) && n < len(values); n++ {
				v, err := strconv.ParseFloat(c.Args[n], 64)
				if err != nil {
					c.Err(fmt.Errorf("invalid concentration %q", c.Args[n]))
					return
				}
				values[n] = v
			}
			report := NewAQIReport(values[0], values[1])
			ShellFrom(c).Print(c, report, report.String())
		},
	}

	// FrameCmd builds and decodes command frames.
	FrameCmd = ishell.Cmd{
		Name: "frame",
		Help: "build NAME|HEX... | decode HEX...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("usage: frame build NAME|HEX... | frame decode HEX..."))
				return
			}
			b, err := ParseCommandBytes(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			switch c.Args[0] {
			case "build":
				frame, err := pms5003.BuildCommandFrame(b)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(FormatHex(frame))
			case "decode":
				cmd, err := pms5003.DecodeCommandFrame(b)
				if err != nil {
					c.Err(err)
					return
				}
				c.Printf("%s (%s)\n", FormatHex(cmd[:]), cmd)
			default:
				c.Err(fmt.Errorf("unknown frame action %q", c.Args[0]))
			}
		},
	}
)
