package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "msauth"

// Recorder exports token refresh metrics. It implements the refresh
// observer hook of the token lifecycle.
type Recorder struct {
	refreshTotal *prometheus.CounterVec
	failures     prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

// NewRecorder registers the refresh metrics on reg. expiresIn feeds the
// remaining-lifetime gauge at scrape time.
func NewRecorder(reg prometheus.Registerer, expiresIn func() time.Duration) (*Recorder, error) {
	r := &Recorder{
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Token refresh attempts by result.",
		}, []string{"result"}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_refresh_failures_consecutive",
			Help:      "Failed refresh attempts since the last success.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_refresh_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh.",
		}),
	}

	collectors := []prometheus.Collector{r.refreshTotal, r.failures, r.lastSuccess}
	if expiresIn != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_expires_in_seconds",
			Help:      "Remaining lifetime of the current access token.",
		}, func() float64 {
			return expiresIn().Seconds()
		}))
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// Pre-create both series so they are exported as 0.
	r.refreshTotal.WithLabelValues("success")
	r.refreshTotal.WithLabelValues("failure")

	return r, nil
}

// ObserveRefresh records the outcome of one refresh attempt.
func (r *Recorder) ObserveRefresh(err error, _ time.Duration) {
	if err != nil {
		r.refreshTotal.WithLabelValues("failure").Inc()
		r.failures.Inc()
		return
	}
	r.refreshTotal.WithLabelValues("success").Inc()
	r.failures.Set(0)
	r.lastSuccess.SetToCurrentTime()
}
