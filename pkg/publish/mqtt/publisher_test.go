package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/pms.go/pkg/metrics"
	"github.com/robotalks/pms.go/pkg/station"
	"github.com/robotalks/pms.go/pkg/station/aqi"
)

type snapshots struct {
	snap *station.Snapshot
}

func (s *snapshots) Snapshot() *station.Snapshot { return s.snap }

func testSnapshot(seq uint64) *station.Snapshot {
	return &station.Snapshot{
		Seq:      seq,
		Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Smoothed: map[string]int{"pm25 env": 20, "pm100 env": 35},
		AQI:      aqi.Describe(68),
	}
}

func TestMessageEncoding(t *testing.T) {
	for _, enc := range []Encoding{EncodingJSON, EncodingProto} {
		t.Run(string(enc), func(t *testing.T) {
			msg := NewMessage("station-1", testSnapshot(1))
			require.Len(t, msg.ID, 36)
			payload, err := msg.Encode(enc)
			require.NoError(t, err)
			decoded, err := DecodeMessage(enc, payload)
			require.NoError(t, err)
			require.Equal(t, msg.ID, decoded.ID)
			require.Equal(t, "station-1", decoded.Station)
			require.True(t, msg.Time.Equal(decoded.Time))
			require.Equal(t, msg.Values, decoded.Values)
			require.Equal(t, msg.AQI, decoded.AQI)
		})
	}
	require.NotEqual(t, NewMessage("s", testSnapshot(1)).ID, NewMessage("s", testSnapshot(1)).ID)

	payload, err := NewMessage("station-1", testSnapshot(1)).Encode(EncodingFlat)
	require.NoError(t, err)
	require.JSONEq(t, `{"pm25 env":20,"pm100 env":35}`, string(payload))
	decoded, err := DecodeMessage(EncodingFlat, payload)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"pm25 env": 20, "pm100 env": 35}, decoded.Values)
	require.Empty(t, decoded.ID)

	_, err = ParseEncoding("xml")
	require.Error(t, err)
	enc, err := ParseEncoding("")
	require.NoError(t, err)
	require.Equal(t, EncodingJSON, enc)
	enc, err = ParseEncoding("flat")
	require.NoError(t, err)
	require.Equal(t, EncodingFlat, enc)
}

func TestPublisherPublishesEachSnapshotOnce(t *testing.T) {
	client := newFakeClient()
	src := &snapshots{}
	reg := prometheus.NewRegistry()
	p := NewPublisher(&Queue{Client: client, TopicPrefix: "air/"}, "readings", src, time.Hour)
	p.StationID = "station-1"
	p.Metrics = metrics.NewSensorMetrics(reg)

	require.NoError(t, p.Control(nil))
	require.Empty(t, client.published)

	src.snap = testSnapshot(1)
	require.NoError(t, p.Control(nil))
	require.NoError(t, p.Control(nil))
	require.Len(t, client.published, 1)
	require.Equal(t, "air/readings", client.published[0].topic)
	msg, err := DecodeMessage(EncodingJSON, client.published[0].payload)
	require.NoError(t, err)
	require.Equal(t, 20, msg.Values["pm25 env"])
	require.Equal(t, "Moderate", msg.AQI.Category)
	require.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.PublishTotal.WithLabelValues("ok")))
}

func TestPublisherReconnectThrottled(t *testing.T) {
	client := newFakeClient()
	client.connected = false
	src := &snapshots{}
	reg := prometheus.NewRegistry()
	p := NewPublisher(&Queue{Client: client}, "readings", src, time.Hour)
	p.Metrics = metrics.NewSensorMetrics(reg)

	for seq := uint64(1); seq <= 3; seq++ {
		src.snap = testSnapshot(seq)
		require.NoError(t, p.Control(nil))
	}
	require.Equal(t, 1, client.connects)
	require.Empty(t, client.published)
	require.Equal(t, 3.0, testutil.ToFloat64(p.Metrics.PublishTotal.WithLabelValues("error")))

	client.connected = true
	src.snap = testSnapshot(4)
	require.NoError(t, p.Control(nil))
	require.Len(t, client.published, 1)
}

func TestCommandListener(t *testing.T) {
	client := newFakeClient()
	q := &Queue{Client: client, TopicPrefix: "air/"}
	var cmds []string
	l := &CommandListener{Queue: q, Topic: "cmd", Execute: func(cmd string) error {
		if cmd == "explode" {
			return errors.New("unknown command")
		}
		cmds = append(cmds, cmd)
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	require.Eventually(t, func() bool {
		client.lock.Lock()
		defer client.lock.Unlock()
		return client.subscribed["air/cmd"] != nil
	}, time.Second, time.Millisecond)

	client.deliver("air/cmd", []byte("explode"))
	client.deliver("air/cmd", []byte("reset"))
	require.Equal(t, []string{"reset"}, cmds)

	cancel()
	require.True(t, errors.Is(<-errCh, context.Canceled))
	require.Equal(t, []string{"air/cmd"}, client.unsubscribe)
}
