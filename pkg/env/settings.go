package env

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
)

// settings are the keys of settings.toml. The MQTT, INTERVAL, SMOOTH and
// LED keys are the ones the station firmware has always used.
type settings struct {
	StationID string `toml:"STATION_ID"`

	SerialPort string `toml:"SERIAL_PORT"`
	Baud       int    `toml:"BAUD"`
	// ReadTimeout is in seconds.
	ReadTimeout float64 `toml:"READ_TIMEOUT"`
	Mode        string  `toml:"MODE"`
	Retries     int     `toml:"RETRIES"`
	ResetPin    string  `toml:"RESET_PIN"`
	EnablePin   string  `toml:"ENABLE_PIN"`

	Interval float64 `toml:"INTERVAL"`
	Smooth   int     `toml:"SMOOTH"`

	HTTPAddr string `toml:"HTTP_ADDR"`

	AHT20Enabled bool   `toml:"AHT20_ENABLED"`
	I2CBus       string `toml:"I2C_BUS"`
	// CToF is a bool or a string, a non-empty string other than "0",
	// "false" or "no" turns it on.
	CToF interface{} `toml:"C_TO_F"`

	MQTTEnabled  bool   `toml:"MQTT_ENABLED"`
	MQTTBroker   string `toml:"MQTT_BROKER"`
	MQTTPort     int    `toml:"MQTT_PORT"`
	MQTTIsTLS    bool   `toml:"MQTT_ISTLS"`
	MQTTUsername string `toml:"MQTT_USERNAME"`
	MQTTPassword string `toml:"MQTT_PASSWORD"`
	MQTTTopic    string `toml:"MQTT_TOPIC"`
	MQTTEncoding string `toml:"MQTT_ENCODING"`

	LEDRPin           string  `toml:"LED_R_PIN"`
	LEDRMeasure       string  `toml:"LED_R_MEASURE"`
	LEDRLowThreshold  float64 `toml:"LED_R_LOW_THRESHOLD"`
	LEDRHighThreshold float64 `toml:"LED_R_HIGH_THRESHOLD"`
	LEDGPin           string  `toml:"LED_G_PIN"`
	LEDGMeasure       string  `toml:"LED_G_MEASURE"`
	LEDGLowThreshold  float64 `toml:"LED_G_LOW_THRESHOLD"`
	LEDGHighThreshold float64 `toml:"LED_G_HIGH_THRESHOLD"`
}

// LoadSettings overrides c with the keys defined in a settings.toml file.
func (c *Config) LoadSettings(path string) error {
	var raw settings
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		glog.Warningf("settings %s: ignoring keys %v", path, undecoded)
	}

	if meta.IsDefined("STATION_ID") {
		c.StationID = strings.TrimSpace(raw.StationID)
	}
	if meta.IsDefined("SERIAL_PORT") {
		c.Sensor.Port = strings.TrimSpace(raw.SerialPort)
	}
	if meta.IsDefined("BAUD") {
		c.Sensor.Baud = raw.Baud
	}
	if meta.IsDefined("READ_TIMEOUT") {
		if raw.ReadTimeout <= 0 {
			return fmt.Errorf("load settings: READ_TIMEOUT must be positive")
		}
		c.Sensor.ReadTimeout = seconds(raw.ReadTimeout)
	}
	if meta.IsDefined("MODE") {
		c.Sensor.Mode = strings.TrimSpace(raw.Mode)
	}
	if meta.IsDefined("RETRIES") {
		c.Sensor.Retries = raw.Retries
	}
	if meta.IsDefined("RESET_PIN") {
		c.Sensor.ResetPin = strings.TrimSpace(raw.ResetPin)
	}
	if meta.IsDefined("ENABLE_PIN") {
		c.Sensor.EnablePin = strings.TrimSpace(raw.EnablePin)
	}
	if meta.IsDefined("INTERVAL") {
		if raw.Interval <= 0 {
			return fmt.Errorf("load settings: INTERVAL must be positive")
		}
		c.Interval = seconds(raw.Interval)
	}
	if meta.IsDefined("SMOOTH") {
		c.Smooth = raw.Smooth
	}
	if meta.IsDefined("HTTP_ADDR") {
		c.HTTP.Addr = strings.TrimSpace(raw.HTTPAddr)
	}

	if meta.IsDefined("AHT20_ENABLED") {
		c.Climate.Enabled = raw.AHT20Enabled
	}
	if meta.IsDefined("I2C_BUS") {
		c.Climate.Bus = strings.TrimSpace(raw.I2CBus)
	}
	if meta.IsDefined("C_TO_F") {
		on, err := truthy(raw.CToF)
		if err != nil {
			return fmt.Errorf("load settings: C_TO_F: %w", err)
		}
		c.Climate.Fahrenheit = on
	}

	if meta.IsDefined("MQTT_ENABLED") && !raw.MQTTEnabled {
		c.MQTT.BrokerURL = ""
	} else if meta.IsDefined("MQTT_BROKER") {
		c.MQTT.BrokerURL = raw.brokerURL()
	}
	if meta.IsDefined("MQTT_TOPIC") {
		c.MQTT.Topic = strings.TrimSpace(raw.MQTTTopic)
	}
	if meta.IsDefined("MQTT_ENCODING") {
		c.MQTT.Encoding = strings.TrimSpace(raw.MQTTEncoding)
	}

	if meta.IsDefined("LED_R_MEASURE") {
		c.setLight(LightConfig{
			Name:    "red",
			Pin:     raw.LEDRPin,
			Measure: raw.LEDRMeasure,
			Low:     raw.LEDRLowThreshold,
			High:    raw.LEDRHighThreshold,
		})
	}
	if meta.IsDefined("LED_G_MEASURE") {
		c.setLight(LightConfig{
			Name:    "green",
			Pin:     raw.LEDGPin,
			Measure: raw.LEDGMeasure,
			Low:     raw.LEDGLowThreshold,
			High:    raw.LEDGHighThreshold,
		})
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func truthy(v interface{}) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "0", "false", "no", "off":
			return false, nil
		}
		return true, nil
	case int64:
		return val != 0, nil
	}
	return false, fmt.Errorf("unsupported value %v", v)
}

func (s *settings) brokerURL() string {
	u := url.URL{Scheme: "mqtt", Host: strings.TrimSpace(s.MQTTBroker), Path: "/"}
	if s.MQTTIsTLS {
		u.Scheme = "mqtts"
	}
	if s.MQTTPort > 0 {
		u.Host = net.JoinHostPort(u.Host, strconv.Itoa(s.MQTTPort))
	}
	if s.MQTTUsername != "" {
		if s.MQTTPassword != "" {
			u.User = url.UserPassword(s.MQTTUsername, s.MQTTPassword)
		} else {
			u.User = url.User(s.MQTTUsername)
		}
	}
	return u.String()
}

func (c *Config) setLight(l LightConfig) {
	for n := range c.Lights {
		if c.Lights[n].Name == l.Name {
			c.Lights[n] = l
			return
		}
	}
	c.Lights = append(c.Lights, l)
}
