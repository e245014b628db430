package framework

import (
	"context"
	"fmt"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Controller is invoked once per loop iteration at its stage.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// Stage orders the controllers within one iteration.
type Stage int

// Stages run in this order.
const (
	// StageSense reads the sensors.
	StageSense Stage = iota
	// StageControl derives state from fresh readings.
	StageControl
	// StagePublish pushes state out of the process.
	StagePublish

	// NumStages is the number of stages.
	NumStages int = iota
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageSense:
		return "sense"
	case StageControl:
		return "control"
	case StagePublish:
		return "publish"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// ControlContext provides the context of current control iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Iteration counts iterations from 1.
	Iteration() uint64
	// Stage is the stage being run.
	Stage() Stage

	LoopControl
}

// LoopControl exposes access to the controlling loop. It is safe for
// concurrent use.
type LoopControl interface {
	// Schedule injects one-shot controllers run before the regular
	// controllers of stage. If the stage already ran in the current
	// iteration they run in the next one.
	Schedule(stage Stage, ctls ...Controller)
	// TriggerNext starts the next iteration without waiting for the
	// interval to elapse.
	TriggerNext()
	// TriggerHooks runs the scheduled one-shot controllers as soon as
	// possible, leaving the regular controllers to the interval.
	TriggerHooks()
}
