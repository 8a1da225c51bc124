package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all engine metrics
type Metrics struct {
	// Sweep related metrics
	SweepRuns        *prometheus.CounterVec
	SweepErrors      *prometheus.CounterVec
	SweepTransitions *prometheus.CounterVec
	SweepDuration    *prometheus.HistogramVec

	// Dispatch related metrics
	DispatchAttempts  *prometheus.CounterVec
	DispatchDuration  prometheus.Histogram
	CampaignsSent     prometheus.Counter
	CampaignsFailed   prometheus.Counter
	CampaignsCanceled prometheus.Counter
}

// NewMetrics creates and registers all engine metrics on the default registry
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SweepRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "Total number of sweep runs",
		}, []string{"sweep"}),
		SweepErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
			Help:      "Total number of aborted sweep runs",
		}, []string{"sweep"}),
		SweepTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_transitions_total",
			Help:      "Total number of lifecycle transitions applied by sweeps",
		}, []string{"sweep", "transition"}),
		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of sweep runs",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"sweep"}),
		DispatchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
			Help:      "Total number of delivery attempts",
		}, []string{"channel", "status"}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one campaign",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CampaignsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_sent_total",
			Help:      "Total number of campaigns that completed their dispatch loop",
		}),
		CampaignsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_failed_total",
			Help:      "Total number of campaigns that aborted before completion",
		}),
		CampaignsCanceled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_cancelled_total",
			Help:      "Total number of campaigns cancelled while sending",
		}),
	}
}

// New creates unregistered metrics, for tests that build multiple instances
func New(namespace string) *Metrics {
	return &Metrics{
		SweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
		}, []string{"sweep"}),
		SweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_errors_total",
		}, []string{"sweep"}),
		SweepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_transitions_total",
		}, []string{"sweep", "transition"}),
		SweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
		}, []string{"sweep"}),
		DispatchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_attempts_total",
		}, []string{"channel", "status"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
		}),
		CampaignsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_sent_total",
		}),
		CampaignsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_failed_total",
		}),
		CampaignsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "campaigns_cancelled_total",
		}),
	}
}
