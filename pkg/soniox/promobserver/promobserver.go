// Package promobserver exports streaming session metrics to Prometheus.
//
//	obs := promobserver.New(prometheus.DefaultRegisterer)
//	client := soniox.NewClient(key, soniox.WithObserver(obs))
package promobserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/haivivi/soniox-sdk/pkg/soniox"
)

const namespace = "soniox"

// Observer implements soniox.Observer with Prometheus collectors.
type Observer struct {
	SessionsOpened  prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsEnded   *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	AudioBytes      prometheus.Counter
	AudioChunks     prometheus.Counter
	Updates         *prometheus.CounterVec
	Tokens          *prometheus.CounterVec
}

var _ soniox.Observer = (*Observer)(nil)

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		SessionsOpened: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Total number of streaming sessions opened",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently running streaming sessions",
		}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of streaming sessions ended, by terminal state and error kind",
		}, []string{"state", "kind"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of streaming sessions in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		}),
		AudioBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_sent_total",
			Help:      "Total number of audio bytes sent",
		}),
		AudioChunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_sent_total",
			Help:      "Total number of audio chunks sent",
		}),
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total number of transcript updates produced",
		}, []string{"final"}),
		Tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total number of tokens received",
		}, []string{"final"}),
	}
}

func (o *Observer) SessionOpened(string) {
	o.SessionsOpened.Inc()
	o.SessionsActive.Inc()
}

func (o *Observer) AudioSent(_ string, bytes int) {
	o.AudioBytes.Add(float64(bytes))
	o.AudioChunks.Inc()
}

func (o *Observer) UpdateProduced(_ string, u *soniox.StreamUpdate) {
	o.Updates.WithLabelValues(boolLabel(u.IsFinal)).Inc()
	var final, pending int
	for _, t := range u.Tokens {
		if t.IsFinal {
			final++
		} else {
			pending++
		}
	}
	o.Tokens.WithLabelValues("true").Add(float64(final))
	o.Tokens.WithLabelValues("false").Add(float64(pending))
}

func (o *Observer) SessionEnded(_ string, state soniox.SessionState, err error, d time.Duration) {
	o.SessionsActive.Dec()
	kind := "none"
	if k := soniox.KindOf(err); k != 0 {
		kind = k.String()
	}
	o.SessionsEnded.WithLabelValues(state.String(), kind).Inc()
	o.SessionDuration.Observe(d.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
