package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventroster/internal/domain"
)

const namespace = "eventroster"

// Metrics manages the roster, RSVP and notification metrics.
type Metrics struct {
	registry *prometheus.Registry

	syncRunSeconds        *prometheus.HistogramVec
	syncRecords           *prometheus.CounterVec
	attendanceTransitions *prometheus.CounterVec
	rsvpResponses         *prometheus.CounterVec
	rsvpRejections        *prometheus.CounterVec
	notifications         *prometheus.CounterVec
}

// NewMetrics creates the metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		syncRunSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "run_seconds",
			Help:      "Duration of roster sync runs.",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"event", "result"}),
		syncRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "The number of remote member records processed.",
		}, []string{"event", "result"}),
		attendanceTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "membership",
			Name:      "attendance_transitions_total",
			Help:      "The number of saved attendance changes.",
		}, []string{"from", "to"}),
		rsvpResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rsvp",
			Name:      "responses_total",
			Help:      "The number of accepted RSVP responses.",
		}, []string{"response"}),
		rsvpRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rsvp",
			Name:      "rejections_total",
			Help:      "The number of refused RSVP codes.",
		}, []string{"reason"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "The number of notice deliveries by mode and result.",
		}, []string{"mode", "result"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSyncRun records the duration of one sync run.
func (m *Metrics) ObserveSyncRun(eventCode, result string, duration time.Duration) {
	m.syncRunSeconds.With(prometheus.Labels{"event": eventCode, "result": result}).Observe(duration.Seconds())
}

// AddSyncRecords counts processed records.
func (m *Metrics) AddSyncRecords(eventCode, result string, n int) {
	if n <= 0 {
		return
	}
	m.syncRecords.With(prometheus.Labels{"event": eventCode, "result": result}).Add(float64(n))
}

func (m *Metrics) IncAttendanceTransition(from, to domain.Attendance) {
	if from == "" {
		from = "New"
	}
	m.attendanceTransitions.With(prometheus.Labels{"from": string(from), "to": string(to)}).Inc()
}

func (m *Metrics) IncRSVPResponse(response domain.RSVPResponse) {
	m.rsvpResponses.With(prometheus.Labels{"response": string(response)}).Inc()
}

func (m *Metrics) IncRSVPRejection(reason domain.RSVPReason) {
	m.rsvpRejections.With(prometheus.Labels{"reason": string(reason)}).Inc()
}

// IncNotification counts one notice delivery outcome.
func (m *Metrics) IncNotification(mode, result string) {
	m.notifications.With(prometheus.Labels{"mode": mode, "result": result}).Inc()
}
