package metrics

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/pms.go/pkg/pms5003"
)

func TestSensorMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewSensorMetrics(reg)

	var observer pms5003.Observer = m
	observer.AttemptFailed(1, &pms5003.ChecksumError{Computed: 1, Embedded: 2})
	observer.AttemptFailed(2, fmt.Errorf("read: %w", pms5003.ErrSerialTimeout))
	observer.AttemptFailed(3, errors.New("port closed"))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AttemptFailures.WithLabelValues("checksum")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AttemptFailures.WithLabelValues("serial_timeout")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AttemptFailures.WithLabelValues("io")))

	m.ObserveRead(map[string]uint16{"pm25 standard": 12}, nil)
	m.ObserveRead(nil, pms5003.ErrReadTimeout)
	require.Equal(t, 1.0, testutil.ToFloat64(m.ReadTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ReadTotal.WithLabelValues("error")))
	require.Equal(t, 12.0, testutil.ToFloat64(m.Concentration.WithLabelValues("pm25 standard")))

	m.ObserveMode(pms5003.ModePassive)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Mode))
	m.ObserveMode(pms5003.ModeActive)
	require.Equal(t, 0.0, testutil.ToFloat64(m.Mode))

	m.ObservePublish(nil)
	require.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("ok")))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewSensorMetrics(reg)
	m.ObserveRead(map[string]uint16{"pm10 standard": 7}, nil)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `pms_measurement{measure="pm10 standard"} 7`))
	require.True(t, strings.Contains(body, `pms_read_total{result="ok"} 1`))
}
