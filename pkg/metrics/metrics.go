package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SalesMetrics counts the outcomes of the sales transaction engine.
type SalesMetrics struct {
	SalesCommitted   prometheus.Counter
	SalesFailed      *prometheus.CounterVec
	SalesVoided      prometheus.Counter
	PaymentsCreated  prometheus.Counter
	PaymentsReversed prometheus.Counter
	CommitDurationMS prometheus.Histogram
}

func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	m := &SalesMetrics{
		SalesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "sales",
			Name:      "committed_total",
			Help:      "Sales committed successfully.",
		}),
		SalesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "sales",
			Name:      "failed_total",
			Help:      "Sale commits that failed, by reason.",
		}, []string{"reason"}),
		SalesVoided: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "sales",
			Name:      "voided_total",
			Help:      "Sales voided with stock restitution.",
		}),
		PaymentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "payments",
			Name:      "created_total",
			Help:      "Payments registered.",
		}),
		PaymentsReversed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gym",
			Subsystem: "payments",
			Name:      "reversed_total",
			Help:      "Payments reversed with a compensating entry.",
		}),
		CommitDurationMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gym",
			Subsystem: "sales",
			Name:      "commit_duration_ms",
			Help:      "Sale commit latency in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SalesCommitted, m.SalesFailed, m.SalesVoided,
			m.PaymentsCreated, m.PaymentsReversed, m.CommitDurationMS,
		)
	}
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
