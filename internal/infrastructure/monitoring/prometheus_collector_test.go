package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_UserLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.UserConnected(1)
	c.UserConnected(2)
	c.UserDisconnected(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.usersOnline))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.connectionsTotal))
}

func TestCollector_CallGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.CallRinging()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callsRinging))

	c.CallAnswered()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.callsRinging))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callsActive))

	c.CallTerminated("completed", true, 42*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.callsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callsTotal.WithLabelValues("completed")))
}

func TestCollector_UnansweredTerminationDecrementsRinging(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.CallRinging()
	c.CallTerminated("timeout", false, 30*time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.callsRinging))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.callsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callsTotal.WithLabelValues("timeout")))
}

func TestCollector_SignalCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.SignalRelayed("webrtc:offer")
	c.SignalRelayed("webrtc:offer")
	c.SignalDropped("webrtc:ice-candidate")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.signalsRelayed.WithLabelValues("webrtc:offer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.signalsDropped.WithLabelValues("webrtc:ice-candidate")))
}
