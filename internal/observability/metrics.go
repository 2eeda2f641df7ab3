package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Messages            *prometheus.CounterVec
	ConversationEvents  *prometheus.CounterVec
	ActiveConversations prometheus.Gauge
	RemindersSent       *prometheus.CounterVec
	SchedulerCycles     *prometheus.CounterVec
	TasksIngested       prometheus.Counter
	ExtractionErrors    *prometheus.CounterVec
	ExtractionLatency   prometheus.Histogram
	WSMessages          *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Messages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Inbound chat messages by dispatch kind.",
		}, []string{"kind"}),
		ConversationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_events_total",
			Help:      "Conversation flow events by flow and event.",
		}, []string{"flow", "event"}),
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of actors with a pending delete or edit flow.",
		}),
		RemindersSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Deadline reminders delivered by threshold.",
		}, []string{"threshold"}),
		SchedulerCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_cycles_total",
			Help:      "Reminder scheduler cycles by result.",
		}, []string{"result"}),
		TasksIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_ingested_total",
			Help:      "Tasks created from free-text announcements.",
		}),
		ExtractionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_errors_total",
			Help:      "Extraction collaborator failures by code.",
		}, []string{"code"}),
		ExtractionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_latency_ms",
			Help:      "Extraction collaborator round trip in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func (m *Metrics) ObserveExtractionLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveMessage(kind string) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveConversation(flow, event string) {
	if m == nil {
		return
	}
	m.ConversationEvents.WithLabelValues(flow, event).Inc()
}

func (m *Metrics) ObserveReminder(threshold string) {
	if m == nil {
		return
	}
	m.RemindersSent.WithLabelValues(threshold).Inc()
}

func (m *Metrics) ObserveCycle(result string) {
	if m == nil {
		return
	}
	m.SchedulerCycles.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveExtractionError(code string) {
	if m == nil {
		return
	}
	m.ExtractionErrors.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TasksIngested.Add(float64(n))
}

func (m *Metrics) SetActiveConversations(n int) {
	if m == nil {
		return
	}
	m.ActiveConversations.Set(float64(n))
}

func (m *Metrics) ObserveWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
