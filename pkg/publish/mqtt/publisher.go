package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"golang.org/x/time/rate"

	"github.com/robotalks/pms.go/pkg/framework"
	"github.com/robotalks/pms.go/pkg/metrics"
	"github.com/robotalks/pms.go/pkg/station"
)

const (
	// DefaultReconnectInterval is the minimum spacing of reconnect attempts.
	DefaultReconnectInterval = 10 * time.Second
	// PublishTimeout bounds the wait for a publish to be sent.
	PublishTimeout = 5 * time.Second
)

// ErrNotConnected is reported when a reading is dropped while offline.
var ErrNotConnected = errors.New("mqtt not connected")

// SnapshotSource provides the readings to publish.
type SnapshotSource interface {
	Snapshot() *station.Snapshot
}

// Publisher publishes every new snapshot once, on the publish stage.
type Publisher struct {
	Queue     *Queue
	Topic     string
	Encoding  Encoding
	StationID string
	Source    SnapshotSource
	Metrics   *metrics.SensorMetrics

	limiter *rate.Limiter
	lastSeq uint64
}

// NewPublisher creates a Publisher.
func NewPublisher(q *Queue, topic string, src SnapshotSource, reconnectInterval time.Duration) *Publisher {
	if reconnectInterval <= 0 {
		reconnectInterval = DefaultReconnectInterval
	}
	return &Publisher{
		Queue:    q,
		Topic:    topic,
		Encoding: EncodingJSON,
		Source:   src,
		limiter:  rate.NewLimiter(rate.Every(reconnectInterval), 1),
	}
}

// Name implements framework.Named.
func (p *Publisher) Name() string {
	return "mqtt-publisher"
}

// AddToLoop implements framework.LoopAdder.
func (p *Publisher) AddToLoop(l *framework.Loop) {
	l.AddController(framework.StagePublish, p)
}

// Control implements framework.Controller. While disconnected readings are
// dropped and a reconnect is attempted, at most once per reconnect interval.
func (p *Publisher) Control(framework.ControlContext) error {
	snap := p.Source.Snapshot()
	if snap == nil || snap.Seq == p.lastSeq {
		return nil
	}
	p.lastSeq = snap.Seq

	if !p.Queue.Client.IsConnected() {
		if p.limiter.Allow() {
			glog.Info("mqtt: reconnecting")
			p.Queue.Connect()
		}
		p.observe(ErrNotConnected)
		return nil
	}

	payload, err := NewMessage(p.StationID, snap).Encode(p.Encoding)
	if err != nil {
		return err
	}
	token := p.Queue.Pub(p.Topic, payload)
	if !token.WaitTimeout(PublishTimeout) {
		err = fmt.Errorf("publish %s: timeout", p.Topic)
	} else if err = token.Error(); err != nil {
		err = fmt.Errorf("publish %s: %w", p.Topic, err)
	}
	p.observe(err)
	return err
}

func (p *Publisher) observe(err error) {
	if p.Metrics != nil {
		p.Metrics.ObservePublish(err)
	}
}

// Executor runs a named command.
type Executor func(cmd string) error

// CommandListener subscribes Topic and executes every payload as a
// command.
type CommandListener struct {
	Queue   *Queue
	Topic   string
	Execute Executor
}

// Name implements framework.Named.
func (c *CommandListener) Name() string {
	return "mqtt-commands"
}

// Run implements framework.Runnable.
func (c *CommandListener) Run(ctx context.Context) error {
	sub := c.Queue.Sub(c.Topic, c.handle)
	<-ctx.Done()
	if err := sub.Close(); err != nil {
		glog.Warningf("mqtt: unsubscribe %s: %v", c.Topic, err)
	}
	return ctx.Err()
}

func (c *CommandListener) handle(topic string, payload []byte) {
	cmd := string(payload)
	if err := c.Execute(cmd); err != nil {
		glog.Warningf("mqtt: command %q from %s: %v", cmd, topic, err)
		return
	}
	glog.Infof("mqtt: command %q accepted", cmd)
}
