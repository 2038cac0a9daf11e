package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the WhatsApp conversation.
type ChatMetrics struct {
	inboundTotal    *prometheus.CounterVec
	resolutionTotal *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	sendLatency     *prometheus.HistogramVec
	bookingsTotal   *prometheus.CounterVec
	prunedTotal     prometheus.Counter
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "chat",
			Name:      "inbound_total",
			Help:      "Inbound WhatsApp webhook events",
		}, []string{"kind", "outcome"}),
		resolutionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "chat",
			Name:      "resolution_total",
			Help:      "Trigger resolutions by how they matched",
		}, []string{"source"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "chat",
			Name:      "outbound_total",
			Help:      "Outbound WhatsApp sends",
		}, []string{"kind", "status"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "chat",
			Name:      "send_latency_seconds",
			Help:      "Latency of WhatsApp Cloud API sends",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "bookings",
			Name:      "events_total",
			Help:      "Booking lifecycle events",
		}, []string{"event"}),
		prunedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "catalog",
			Name:      "pruned_total",
			Help:      "Expired personalized templates and triggers removed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.resolutionTotal, m.outboundTotal, m.sendLatency, m.bookingsTotal, m.prunedTotal)
	return m
}

func (m *ChatMetrics) ObserveInbound(kind, outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *ChatMetrics) ObserveResolution(source string) {
	if m == nil {
		return
	}
	m.resolutionTotal.WithLabelValues(source).Inc()
}

func (m *ChatMetrics) ObserveOutbound(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
	m.sendLatency.WithLabelValues(kind).Observe(seconds)
}

// ObserveBooking counts created, arrived and abandoned bookings.
func (m *ChatMetrics) ObserveBooking(event string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(event).Inc()
}

func (m *ChatMetrics) ObservePruned(n int) {
	if m == nil {
		return
	}
	m.prunedTotal.Add(float64(n))
}
