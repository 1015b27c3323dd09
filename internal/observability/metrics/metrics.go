package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking workflow.
type BookingMetrics struct {
	slotFetchTotal   *prometheus.CounterVec
	staleDropsTotal  prometheus.Counter
	submissionsTotal *prometheus.CounterVec
	slotFetchLatency prometheus.Histogram
	sessionsActive   prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "slot_fetch_total",
			Help:      "Total slot availability fetches",
		}, []string{"status"}),
		staleDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "stale_responses_dropped_total",
			Help:      "Slot responses discarded because the selection changed mid-flight",
		}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Total booking submissions",
		}, []string{"status"}),
		slotFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "slot_fetch_latency_seconds",
			Help:      "Latency of slot availability fetches",
			Buckets:   prometheus.DefBuckets,
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "sessions_active",
			Help:      "Wizard sessions currently alive",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotFetchTotal, m.staleDropsTotal, m.submissionsTotal, m.slotFetchLatency, m.sessionsActive)
	return m
}

func (m *BookingMetrics) ObserveSlotFetch(status string, seconds float64) {
	if m == nil {
		return
	}
	m.slotFetchTotal.WithLabelValues(status).Inc()
	m.slotFetchLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveStaleDrop() {
	if m == nil {
		return
	}
	m.staleDropsTotal.Inc()
}

func (m *BookingMetrics) ObserveSubmission(status string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *BookingMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
