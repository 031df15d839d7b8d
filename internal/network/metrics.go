package network

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// Metrics Prometheus-метрики сетевой подсистемы. Нулевой указатель
// допустим: все методы тогда ничего не делают.
type Metrics struct {
	activeConnections prometheus.Gauge
	accepted          prometheus.Counter
	disconnects       *prometheus.CounterVec
	messagesSent      prometheus.Counter
	messagesReceived  prometheus.Counter
	bytesSent         prometheus.Counter
	bytesReceived     prometheus.Counter
	bodyBytes         prometheus.Histogram
	eventsPerMessage  prometheus.Histogram
	eventsReceived    *prometheus.CounterVec
	protocolErrors    *prometheus.CounterVec
}

// NewMetrics создаёт метрики с пространством имён namespace и регистрирует их в reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "net_active_connections",
			Help:      "Текущее количество подключённых каналов.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_connections_total",
			Help:      "Всего установленных соединений.",
		}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_disconnects_total",
			Help:      "Отключения по причинам.",
		}, []string{"reason"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_messages_sent_total",
			Help:      "Отправлено сообщений.",
		}),
		messagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_messages_received_total",
			Help:      "Принято сообщений.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_bytes_sent_total",
			Help:      "Отправлено байт (после сжатия, с заголовком).",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_bytes_received_total",
			Help:      "Принято байт (после сжатия, с заголовком).",
		}),
		bodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "net_message_body_bytes",
			Help:      "Размер несжатого тела сообщения.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 7),
		}),
		eventsPerMessage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "net_events_per_message",
			Help:      "Количество событий в одном сообщении.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250},
		}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_events_received_total",
			Help:      "Принято событий по видам.",
		}, []string{"kind"}),
		protocolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "net_protocol_errors_total",
			Help:      "Ошибки разбора протокола.",
		}, []string{"type"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.activeConnections, m.accepted, m.disconnects,
			m.messagesSent, m.messagesReceived, m.bytesSent, m.bytesReceived,
			m.bodyBytes, m.eventsPerMessage, m.eventsReceived, m.protocolErrors,
		)
	}
	return m
}

// Connected учитывает новое соединение
func (m *Metrics) Connected() {
	if m == nil {
		return
	}
	m.accepted.Inc()
	m.activeConnections.Inc()
}

// Disconnected учитывает отключение с причиной
func (m *Metrics) Disconnected(reason string) {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
	m.disconnects.WithLabelValues(reason).Inc()
}

// MessageSent учитывает упакованное сообщение
func (m *Metrics) MessageSent(bodyLen, wireLen, eventCount int) {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
	m.bytesSent.Add(float64(wireLen))
	m.bodyBytes.Observe(float64(bodyLen))
	m.eventsPerMessage.Observe(float64(eventCount))
}

// MessageReceived учитывает принятое сообщение
func (m *Metrics) MessageReceived(wireLen int) {
	if m == nil {
		return
	}
	m.messagesReceived.Inc()
	m.bytesReceived.Add(float64(wireLen))
}

// EventReceived учитывает разобранное событие
func (m *Metrics) EventReceived(kind events.Kind) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(kind.String()).Inc()
}

// ProtocolError учитывает ошибку разбора
func (m *Metrics) ProtocolError(errType string) {
	if m == nil {
		return
	}
	m.protocolErrors.WithLabelValues(errType).Inc()
}
