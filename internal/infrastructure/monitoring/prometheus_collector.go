package monitoring

import (
	"time"

	"manualcall/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements ports.CallMetrics and the media stats sink
// on top of a Prometheus registry.
type PrometheusCollector struct {
	// Captions
	captionsTotal     *prometheus.CounterVec
	malformedMessages prometheus.Counter

	// Negotiation and connection
	negotiationDuration *prometheus.HistogramVec
	gatherTimeouts      prometheus.Counter
	connectionStates    *prometheus.CounterVec
	callActive          prometheus.Gauge
	dataChannelOpen     prometheus.Gauge

	// Media plane
	remoteAudioPackets prometheus.Counter
	remoteAudioBytes   prometheus.Counter
	fractionLost       prometheus.Gauge
	jitter             prometheus.Gauge
	roundTrip          prometheus.Histogram
	nacks              prometheus.Counter

	// Speech
	utterances *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewPrometheusCollector creates and registers all call metrics on reg
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		captionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "manualcall_captions_total",
			Help: "Captions by outcome (sent, queued, dropped, received)",
		}, []string{"outcome"}),

		malformedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "manualcall_datachannel_malformed_messages_total",
			Help: "Data channel messages discarded as malformed",
		}),

		negotiationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "manualcall_negotiation_duration_seconds",
			Help:    "Time to produce a local description, ICE wait included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"operation"}),

		gatherTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "manualcall_ice_gather_timeouts_total",
			Help: "Descriptions exported before ICE gathering completed",
		}),

		connectionStates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "manualcall_connection_state_changes_total",
			Help: "Peer connection state transitions",
		}, []string{"state"}),

		callActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "manualcall_call_active",
			Help: "1 while the peer connection is connected",
		}),

		dataChannelOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "manualcall_datachannel_open",
			Help: "1 while the caption data channel is open",
		}),

		remoteAudioPackets: factory.NewCounter(prometheus.CounterOpts{
			Name: "manualcall_remote_audio_packets_total",
			Help: "RTP packets received on remote audio tracks",
		}),

		remoteAudioBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "manualcall_remote_audio_payload_bytes_total",
			Help: "RTP payload bytes received on remote audio tracks",
		}),

		fractionLost: factory.NewGauge(prometheus.GaugeOpts{
			Name: "manualcall_rtcp_fraction_lost",
			Help: "Last reported fraction of packets lost (0-1)",
		}),

		jitter: factory.NewGauge(prometheus.GaugeOpts{
			Name: "manualcall_rtcp_jitter_seconds",
			Help: "Last reported interarrival jitter",
		}),

		roundTrip: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "manualcall_round_trip_seconds",
			Help:    "Round trip time derived from RTCP reception reports",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1},
		}),

		nacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "manualcall_rtcp_nacks_total",
			Help: "Packets reported missing through RTCP NACK",
		}),

		utterances: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "manualcall_speech_utterances_total",
			Help: "Speech synthesis attempts by result",
		}, []string{"result"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "manualcall_http_requests_total",
			Help: "Control API requests",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "manualcall_http_request_duration_seconds",
			Help:    "Control API latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Caption counters, labelled by outcome
func (p *PrometheusCollector) CaptionSent()     { p.captionsTotal.WithLabelValues("sent").Inc() }
func (p *PrometheusCollector) CaptionQueued()   { p.captionsTotal.WithLabelValues("queued").Inc() }
func (p *PrometheusCollector) CaptionDropped()  { p.captionsTotal.WithLabelValues("dropped").Inc() }
func (p *PrometheusCollector) CaptionReceived() { p.captionsTotal.WithLabelValues("received").Inc() }

// MalformedMessage counts an inbound data channel message that could not be parsed
func (p *PrometheusCollector) MalformedMessage() {
	p.malformedMessages.Inc()
}

// NegotiationCompleted observes an offer or answer and whether ICE gathering timed out
func (p *PrometheusCollector) NegotiationCompleted(operation string, duration time.Duration, gatherTimedOut bool) {
	p.negotiationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if gatherTimedOut {
		p.gatherTimeouts.Inc()
	}
}

// ConnectionStateChanged counts transitions and tracks whether a call is active
func (p *PrometheusCollector) ConnectionStateChanged(state domain.ConnectionState) {
	p.connectionStates.WithLabelValues(string(state)).Inc()
	switch {
	case state == domain.ConnectionStateConnected:
		p.callActive.Set(1)
	case state.IsTerminal():
		p.callActive.Set(0)
	}
}

// DataChannelStateChanged tracks whether the caption channel is open
func (p *PrometheusCollector) DataChannelStateChanged(state domain.DataChannelState) {
	if state == domain.DataChannelStateOpen {
		p.dataChannelOpen.Set(1)
		return
	}
	p.dataChannelOpen.Set(0)
}

// RemoteAudioPacket counts one RTP packet read from the remote audio track
func (p *PrometheusCollector) RemoteAudioPacket(payloadBytes int) {
	p.remoteAudioPackets.Inc()
	p.remoteAudioBytes.Add(float64(payloadBytes))
}

// ReceptionReport records RTCP loss (8-bit fixed point) and jitter (in
// 48kHz Opus clock units).
func (p *PrometheusCollector) ReceptionReport(fractionLost uint8, jitter uint32) {
	p.fractionLost.Set(float64(fractionLost) / 256)
	p.jitter.Set(float64(jitter) / 48000)
}

// RoundTrip observes an RTT derived from a receiver report
func (p *PrometheusCollector) RoundTrip(rtt time.Duration) {
	p.roundTrip.Observe(rtt.Seconds())
}

// NackReceived counts NACKed packets reported by the remote peer
func (p *PrometheusCollector) NackReceived(count int) {
	p.nacks.Add(float64(count))
}

// RecordUtterance counts a finished speech utterance
func (p *PrometheusCollector) RecordUtterance(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.utterances.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a control API request
func (p *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
