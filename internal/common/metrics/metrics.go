// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Funnel counts visitors through submit, results, unlock and delivery.
// A nil *Funnel records nothing.
type Funnel struct {
	ScansSubmitted     prometheus.Counter
	ScansCompleted     *prometheus.CounterVec
	AnalysisDuration   prometheus.Histogram
	CandidatesReturned prometheus.Histogram
	Unlocks            prometheus.Counter
	Deliveries         *prometheus.CounterVec
}

// NewFunnel registers the funnel collectors with reg. A nil reg leaves them
// unregistered.
func NewFunnel(reg prometheus.Registerer) *Funnel {
	factory := promauto.With(reg)

	return &Funnel{
		ScansSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_scans_submitted_total",
			Help: "Total number of scans submitted for analysis",
		}),
		ScansCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadgate_scans_completed_total",
				Help: "Total number of scans finished, by outcome",
			},
			[]string{"outcome", "error_code"},
		),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_analysis_duration_seconds",
			Help:    "Duration of remote analysis calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		}),
		CandidatesReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadgate_candidates_returned",
			Help:    "Number of candidates returned per successful scan",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Unlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "leadgate_unlocks_total",
			Help: "Total number of result sets unlocked with an email",
		}),
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadgate_deliveries_total",
				Help: "Total number of report deliveries, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (f *Funnel) Submitted() {
	if f == nil {
		return
	}
	f.ScansSubmitted.Inc()
}

func (f *Funnel) Succeeded(d time.Duration, candidates int) {
	if f == nil {
		return
	}
	f.ScansCompleted.WithLabelValues("success", "").Inc()
	f.AnalysisDuration.Observe(d.Seconds())
	f.CandidatesReturned.Observe(float64(candidates))
}

func (f *Funnel) Failed(d time.Duration, errorCode string) {
	if f == nil {
		return
	}
	f.ScansCompleted.WithLabelValues("failure", errorCode).Inc()
	f.AnalysisDuration.Observe(d.Seconds())
}

func (f *Funnel) Unlocked() {
	if f == nil {
		return
	}
	f.Unlocks.Inc()
}

func (f *Funnel) Delivered(ok bool) {
	if f == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	f.Deliveries.WithLabelValues(outcome).Inc()
}
