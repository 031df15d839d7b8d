package game

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics Prometheus-метрики игрового цикла. Нулевой указатель допустим.
type Metrics struct {
	ticks         prometheus.Counter
	tickDuration  prometheus.Histogram
	actors        prometheus.Gauge
	heroes        prometheus.Gauge
	clients       prometheus.Gauge
	deltaActors   prometheus.Counter
	spawnRequests *prometheus.CounterVec
	panics        prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (reg может быть nil)
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_ticks_total",
			Help:      "Выполнено тиков игрового цикла.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_tick_duration_seconds",
			Help:      "Время выполнения одного тика.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		actors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "game_actors",
			Help:      "Живых актёров в мире.",
		}),
		heroes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "game_heroes",
			Help:      "Живых героев в мире.",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "game_clients",
			Help:      "Подключённых клиентов.",
		}),
		deltaActors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_delta_actors_total",
			Help:      "Снимков актёров, разосланных в DeltaState.",
		}),
		spawnRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_spawn_requests_total",
			Help:      "Запросы клиентов на появление актёров.",
		}, []string{"result"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "game_loop_panics_total",
			Help:      "Паники, перехваченные игровым циклом.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ticks, m.tickDuration, m.actors, m.heroes, m.clients,
			m.deltaActors, m.spawnRequests, m.panics)
	}
	return m
}

func (m *Metrics) observeTick(d time.Duration, actors, heroes, clients int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.actors.Set(float64(actors))
	m.heroes.Set(float64(heroes))
	m.clients.Set(float64(clients))
}

func (m *Metrics) deltaSent(n int) {
	if m == nil {
		return
	}
	m.deltaActors.Add(float64(n))
}

func (m *Metrics) spawnRequest(result string) {
	if m == nil {
		return
	}
	m.spawnRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) panicked() {
	if m == nil {
		return
	}
	m.panics.Inc()
}
