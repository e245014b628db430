package station

import (
	"errors"
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/robotalks/pms.go/pkg/framework"
)

// ErrUnknown is returned for unknown commands and lights.
var ErrUnknown = errors.New("unknown")

// Command names accepted by Execute.
const (
	CmdReset   = "reset"
	CmdSleep   = "sleep"
	CmdWake    = "wake"
	CmdPassive = "passive"
	CmdActive  = "active"
)

var commands = map[string]func(s *Station) error{
	CmdReset: func(s *Station) error {
		ok, err := s.sensor.Reset()
		if err == nil && !ok {
			return errors.New("no reset pin")
		}
		s.window.Reset()
		return err
	},
	CmdSleep: func(s *Station) error {
		_, err := s.sensor.Sleep()
		if err == nil {
			s.setAsleep(true)
		}
		return err
	},
	CmdWake: func(s *Station) error {
		err := s.sensor.Wake()
		s.setAsleep(false)
		return err
	},
	CmdPassive: func(s *Station) error {
		_, err := s.sensor.EnterPassive()
		return err
	},
	CmdActive: func(s *Station) error {
		_, err := s.sensor.EnterActive()
		return err
	},
}

// Commands returns the names of the supported commands.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute schedules cmd to run on the loop right away, between reads, so
// it never races with Control. The read interval is unaffected.
func (s *Station) Execute(lc framework.LoopControl, cmd string) error {
	fn, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("%w command %q", ErrUnknown, cmd)
	}
	lc.Schedule(framework.StageSense, framework.ControlFunc(func(framework.ControlContext) error {
		err := fn(s)
		s.lock.Lock()
		s.health.Mode = s.sensor.Mode().String()
		s.lock.Unlock()
		if s.metrics != nil {
			s.metrics.ObserveMode(s.sensor.Mode())
		}
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		glog.Infof("pms5003: %s done", cmd)
		return nil
	}))
	lc.TriggerHooks()
	return nil
}

func (s *Station) setAsleep(asleep bool) {
	s.lock.Lock()
	s.health.Asleep = asleep
	s.lock.Unlock()
}
