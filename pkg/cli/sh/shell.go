package sh

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/pms.go/pkg/env"
	"github.com/robotalks/pms.go/pkg/pms5003"
)

// Shell provides ishell backed interactive shell over one sensor.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Dev    *pms5003.Dev
	Open   Opener
}

// Opener opens the sensor described by conf.
type Opener func(conf *env.Config) (*pms5003.Dev, error)

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

// ErrNotOpen is reported by commands which need the sensor.
var ErrNotOpen = errors.New("sensor not open")

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&ReadCmd,
		&ModeCmd,
		&ResetCmd,
		&SleepCmd,
		&WakeCmd,
		&EnableCmd,
		&AQICmd,
		&FrameCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
		Open:   OpenDev,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// OpenDev opens the sensor described by conf.
func OpenDev(conf *env.Config) (*pms5003.Dev, error) {
	return conf.OpenSensor(nil)
}

// Connect opens the sensor, closing the previous one.
func (s *Shell) Connect() error {
	dev, err := s.Open(s.Config)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Dev = dev
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.Sensor.Port))
	if err := dev.InitErr(); err != nil {
		return fmt.Errorf("sensor opened with error: %w", err)
	}
	return nil
}

// Disconnect closes the sensor.
func (s *Shell) Disconnect() {
	if s.Dev != nil {
		s.Dev.Close()
		s.Dev = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Print prints v as JSON in JSON mode, or as text otherwise.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// MustBeOpen wraps command func requires the sensor.
func MustBeOpen(fn func(c *ishell.Context, dev *pms5003.Dev)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Dev == nil {
			c.Err(ErrNotOpen)
			return
		}
		fn(c, s.Dev)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer s.Disconnect()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := env.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	s := New(conf)
	if err := s.Connect(); err != nil {
		log.Println(err)
	}
	s.Run(flag.Args()...)
}
