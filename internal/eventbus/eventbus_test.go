package eventbus

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

func TestDistributor_PostIsDeferred(t *testing.T) {
	d := NewDistributor()
	var got []events.Event
	d.AddHandler(func(ev events.Event) { got = append(got, ev) })

	d.Post(events.Heal{ActorID: 1, Amount: 2})
	assert.Empty(t, got, "Post не должен вызывать обработчики синхронно")
	assert.Equal(t, 1, d.Pending())

	assert.Equal(t, 1, d.Update())
	assert.Equal(t, []events.Event{events.Heal{ActorID: 1, Amount: 2}}, got)
	assert.Equal(t, 0, d.Pending())
}

func TestDistributor_FIFOAndKindFilter(t *testing.T) {
	d := NewDistributor()
	var order []string
	d.AddHandler(func(ev events.Event) { order = append(order, "all:"+ev.Kind().String()) })
	d.AddHandler(func(ev events.Event) { order = append(order, "attack:"+ev.Kind().String()) }, events.KindAttack)

	d.Post(events.Heal{ActorID: 1})
	d.Post(events.Attack{AttackerID: 1, VictimID: 2})
	d.Post(events.Loot{ActorID: 1})
	d.Update()

	assert.Equal(t, []string{
		"all:heal",
		"all:attack",
		"attack:attack",
		"all:loot",
	}, order)
}

func TestDistributor_HandlerIDsStartAfterReserved(t *testing.T) {
	d := NewDistributor()
	first := d.AddHandler(func(events.Event) {})
	second := d.AddHandler(func(events.Event) {})
	assert.Greater(t, int(first), 100)
	assert.Equal(t, first+1, second)

	assert.True(t, d.RemoveHandler(first))
	assert.False(t, d.RemoveHandler(first), "повторная отписка")
	assert.Equal(t, 1, d.HandlerCount())
}

func TestDistributor_PostDuringDispatchWaitsForNextUpdate(t *testing.T) {
	d := NewDistributor()
	var heals int
	d.AddHandler(func(ev events.Event) {
		d.Post(events.Heal{ActorID: 7})
	}, events.KindAttack)
	d.AddHandler(func(ev events.Event) { heals++ }, events.KindHeal)

	d.Post(events.Attack{AttackerID: 1, VictimID: 7})
	d.Update()
	assert.Equal(t, 0, heals, "событие из обработчика доставляется только на следующем Update")
	assert.Equal(t, 1, d.Pending())

	d.Update()
	assert.Equal(t, 1, heals)
}

func TestDistributor_HandlerSetSnapshotPerFlush(t *testing.T) {
	d := NewDistributor()
	var late int
	d.AddHandler(func(ev events.Event) {
		d.AddHandler(func(events.Event) { late++ })
	}, events.KindClientConnected)

	d.Post(events.ClientConnected{ClientID: 1})
	d.Post(events.Heal{ActorID: 1})
	d.Update()
	assert.Equal(t, 0, late, "обработчик, добавленный во время рассылки, ждёт следующего Update")

	d.Post(events.Heal{ActorID: 1})
	d.Update()
	assert.Equal(t, 1, late)
}

func TestDistributor_RemovedHandlerStopsReceiving(t *testing.T) {
	d := NewDistributor()
	var calls int
	id := d.AddHandler(func(events.Event) { calls++ })

	d.Post(events.Heal{})
	d.Update()
	d.RemoveHandler(id)
	d.Post(events.Heal{})
	d.Update()

	assert.Equal(t, 1, calls)
}

func TestDistributor_Stats(t *testing.T) {
	d := NewDistributor()
	d.AddHandler(func(events.Event) {}, events.KindAttack)
	d.AddHandler(func(events.Event) {}, events.KindAttack)

	d.Post(events.Attack{})
	d.Post(events.Heal{})
	s := d.Metrics()
	assert.Equal(t, uint64(2), s.Published)
	assert.Equal(t, 2, s.InFlight)

	d.Update()
	s = d.Metrics()
	assert.Equal(t, uint64(2), s.Consumed)
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, 0, s.InFlight)
}

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("метрика %s не найдена", name)
	return 0
}

func TestMetricsExporter_ObserveAddsDeltas(t *testing.T) {
	reg := prometheus.NewRegistry()
	d := NewDistributor()
	d.AddHandler(func(events.Event) {})
	exp := NewMetricsExporter(d, reg)

	d.Post(events.Heal{})
	d.Post(events.Heal{})
	d.Update()
	exp.Observe()
	exp.Observe()

	assert.Equal(t, 2.0, gatherValue(t, reg, "eventbus_messages_published_total"))
	assert.Equal(t, 2.0, gatherValue(t, reg, "eventbus_messages_consumed_total"))
	assert.Equal(t, 0.0, gatherValue(t, reg, "eventbus_messages_dropped_total"))

	d.Post(events.Heal{})
	exp.Observe()
	assert.Equal(t, 3.0, gatherValue(t, reg, "eventbus_messages_published_total"))
	assert.Equal(t, 1.0, gatherValue(t, reg, "eventbus_messages_inflight"))
}

func TestLoggingListener_LogsEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewConsoleLogger("eventbus", &buf, logging.DEBUG)
	d := NewDistributor()
	StartLoggingListener(d, logger)

	d.Post(events.Attack{AttackerID: 101, VictimID: 102, Damage: 3})
	d.Post(events.DeltaState{})
	d.Update()

	out := buf.String()
	require.Contains(t, out, "[EventBus] attack")
	assert.NotContains(t, out, "delta_state", "DeltaState печатается только на TRACE")
}

func TestSubject_RoundTrip(t *testing.T) {
	for _, k := range events.AllKinds() {
		subj := Subject("mmo.events", k)
		got, ok := KindFromSubject("mmo.events", subj)
		require.True(t, ok, subj)
		assert.Equal(t, k, got)
	}
	_, ok := KindFromSubject("mmo.events", "other.attack")
	assert.False(t, ok)
	_, ok = KindFromSubject("mmo.events", "mmo.events.unknown")
	assert.False(t, ok)
}
