package framework

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the loop interval when none is set.
const DefaultInterval = time.Second

// Loop runs controllers stage by stage at a fixed interval.
type Loop struct {
	Interval time.Duration

	stages  [NumStages]stageList
	runners []Runnable

	iteration uint64
	wakeUpCh  chan struct{}
	hooksCh   chan struct{}
	once      sync.Once
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type stageList struct {
	hooks       []Controller
	controllers []Controller
	lock        sync.Mutex
}

type loopIteration struct {
	*Loop
	ctx       context.Context
	time      time.Time
	iteration uint64
	stage     Stage
}

// NewLoop creates a Loop.
func NewLoop(interval time.Duration) *Loop {
	return &Loop{Interval: interval}
}

func (l *Loop) init() {
	l.once.Do(func() {
		l.wakeUpCh = make(chan struct{}, 1)
		l.hooksCh = make(chan struct{}, 1)
	})
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at stage. Controllers which are also
// Runnable are started with the loop.
func (l *Loop) AddController(stage Stage, ctls ...Controller) *Loop {
	lst := &l.stages[stage]
	lst.lock.Lock()
	lst.controllers = append(lst.controllers, ctls...)
	lst.lock.Unlock()
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. The first iteration starts immediately.
func (l *Loop) Run(ctx context.Context) error {
	l.init()
	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)
	defer runner.Wait()

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	l.RunIteration(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.RunIteration(ctx)
		case <-l.wakeUpCh:
			l.RunIteration(ctx)
		case <-l.hooksCh:
			l.RunHooks(ctx)
		}
	}
}

// Schedule implements LoopControl.
func (l *Loop) Schedule(stage Stage, ctls ...Controller) {
	lst := &l.stages[stage]
	lst.lock.Lock()
	lst.hooks = append(lst.hooks, ctls...)
	lst.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	l.init()
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// TriggerHooks implements LoopControl.
func (l *Loop) TriggerHooks() {
	l.init()
	select {
	case l.hooksCh <- struct{}{}:
	default:
	}
}

// RunIteration runs all stages once.
func (l *Loop) RunIteration(ctx context.Context) {
	iter := &loopIteration{
		Loop:      l,
		ctx:       ctx,
		time:      time.Now(),
		iteration: atomic.AddUint64(&l.iteration, 1),
	}
	for i := 0; i < NumStages; i++ {
		iter.stage = Stage(i)
		l.stages[i].run(iter)
	}
}

// RunHooks runs the scheduled hooks of all stages without the regular
// controllers. The iteration count doesn't advance.
func (l *Loop) RunHooks(ctx context.Context) {
	iter := &loopIteration{
		Loop:      l,
		ctx:       ctx,
		time:      time.Now(),
		iteration: atomic.LoadUint64(&l.iteration),
	}
	for i := 0; i < NumStages; i++ {
		iter.stage = Stage(i)
		l.stages[i].runHooks(iter)
	}
}

func (t *loopIteration) Context() context.Context { return t.ctx }
func (t *loopIteration) Time() time.Time          { return t.time }
func (t *loopIteration) Iteration() uint64        { return t.iteration }
func (t *loopIteration) Stage() Stage             { return t.stage }

func (c *stageList) run(iter *loopIteration) {
	c.lock.Lock()
	hooks := c.hooks
	c.hooks = nil
	ctls := c.controllers
	c.lock.Unlock()
	runControllers(iter, hooks)
	runControllers(iter, ctls)
}

func (c *stageList) runHooks(iter *loopIteration) {
	c.lock.Lock()
	hooks := c.hooks
	c.hooks = nil
	c.lock.Unlock()
	runControllers(iter, hooks)
}

func runControllers(iter *loopIteration, ctls []Controller) {
	for _, ctl := range ctls {
		if err := ctl.Control(iter); err != nil {
			if named, ok := ctl.(Named); ok {
				glog.Errorf("%s controller %s error: %v", iter.stage, named.Name(), err)
			} else {
				glog.Errorf("%s controller error: %v", iter.stage, err)
			}
		}
	}
}
