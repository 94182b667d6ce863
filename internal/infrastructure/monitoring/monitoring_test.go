package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"manualcall/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollectorCaptions(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.CaptionSent()
	c.CaptionSent()
	c.CaptionQueued()
	c.CaptionDropped()
	c.CaptionReceived()
	c.MalformedMessage()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.captionsTotal.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captionsTotal.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captionsTotal.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captionsTotal.WithLabelValues("received")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.malformedMessages))
}

func TestPrometheusCollectorCallState(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.ConnectionStateChanged(domain.ConnectionStateConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callActive))
	c.ConnectionStateChanged(domain.ConnectionStateFailed)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.callActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectionStates.WithLabelValues("failed")))

	c.DataChannelStateChanged(domain.DataChannelStateOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dataChannelOpen))
	c.DataChannelStateChanged(domain.DataChannelStateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.dataChannelOpen))

	c.NegotiationCompleted("offer", 300*time.Millisecond, true)
	c.NegotiationCompleted("answer", 100*time.Millisecond, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.gatherTimeouts))
}

func TestPrometheusCollectorMedia(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RemoteAudioPacket(120)
	c.RemoteAudioPacket(80)
	c.ReceptionReport(64, 480)
	c.NackReceived(3)
	c.RoundTrip(40 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.remoteAudioPackets))
	assert.Equal(t, 200.0, testutil.ToFloat64(c.remoteAudioBytes))
	assert.Equal(t, 0.25, testutil.ToFloat64(c.fractionLost))
	assert.Equal(t, 0.01, testutil.ToFloat64(c.jitter))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.nacks))
}

func TestPrometheusCollectorHTTPAndSpeech(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordHTTPRequest("POST", "/api/v1/captions", 201, time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/v1/offer", 409, time.Millisecond)
	c.RecordUtterance(nil)
	c.RecordUtterance(errors.New("espeak missing"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/api/v1/offer", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.utterances.WithLabelValues("error")))
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("ok", func(context.Context) error { return nil }, time.Second)
	assert.True(t, h.IsReady(context.Background()))

	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)
	h.AddCheck("broken", func(context.Context) error { return errors.New("microphone unavailable") }, 0)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["ok"])
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"])
	assert.Equal(t, "microphone unavailable", status.Checks["broken"])
}
