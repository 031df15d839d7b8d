package network

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

func newTestChannel(t *testing.T, cfg ChannelConfig) *Channel {
	t.Helper()
	ch, err := NewChannel("test", nil, cfg, nil, NewMetrics("test", prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })
	return ch
}

func sampleEvents() []events.Event {
	return []events.Event{
		events.ActorSpawned{Actor: events.ActorState{ActorID: 101, ActorType: "hero", IsHero: true, Health: 40, MaxHealth: 40, X: 300, Y: 200}},
		events.SetTarget{ActorID: 101, TargetID: 102},
		events.Attack{AttackerID: 101, VictimID: 102, Damage: 4},
		events.Heal{ActorID: 102, Amount: 1},
		events.ActorDied{ActorID: 102},
		events.Loot{ActorID: 101, Amount: 11},
	}
}

// sendAll упаковывает события и возвращает байты провода
func sendAll(t *testing.T, ch *Channel, evs []events.Event) []byte {
	t.Helper()
	for _, ev := range evs {
		require.NoError(t, ch.QueueEvent(ev))
	}
	require.NoError(t, ch.Flush())
	return ch.TakeOutbound()
}

func TestChannel_ChunkSizeIndependence(t *testing.T) {
	sender := newTestChannel(t, ChannelConfig{MaxMessageSize: 256})
	var evs []events.Event
	for i := 0; i < 5; i++ {
		evs = append(evs, sampleEvents()...)
	}
	data := sendAll(t, sender, evs)
	require.Greater(t, sender.SendMessageID(), int32(2), "события должны разойтись по нескольким сообщениям")

	whole := newTestChannel(t, DefaultChannelConfig())
	require.NoError(t, whole.Feed(data))
	assert.Equal(t, evs, whole.ReceiveEvents())

	for _, size := range []int{1, 2, 3, 7, 64} {
		chunked := newTestChannel(t, DefaultChannelConfig())
		for off := 0; off < len(data); off += size {
			end := off + size
			if end > len(data) {
				end = len(data)
			}
			require.NoError(t, chunked.Feed(data[off:end]), "кусок %d", size)
		}
		assert.Equal(t, evs, chunked.ReceiveEvents(), "кусок %d", size)
		id, ok := chunked.RecvMessageID()
		assert.True(t, ok)
		assert.Equal(t, sender.SendMessageID()-1, id)
	}
}

func TestChannel_MessageIDsStartAtOne(t *testing.T) {
	sender := newTestChannel(t, DefaultChannelConfig())
	assert.Equal(t, int32(1), sender.SendMessageID())

	data := sendAll(t, sender, sampleEvents()[:1])
	r := NewReadBuffer(data)
	id, ok := r.ReadInt32()
	require.True(t, ok)
	assert.Equal(t, int32(1), id)
	assert.Equal(t, int32(2), sender.SendMessageID())

	require.NoError(t, sender.Flush())
	assert.Equal(t, int32(2), sender.SendMessageID(), "пустое тело не порождает сообщения")
}

func TestChannel_RejectsGapInMessageIDs(t *testing.T) {
	sender := newTestChannel(t, DefaultChannelConfig())
	first := sendAll(t, sender, sampleEvents()[:1])
	_ = sendAll(t, sender, sampleEvents()[1:2]) // #2 теряется
	third := sendAll(t, sender, sampleEvents()[2:3])

	receiver := newTestChannel(t, DefaultChannelConfig())
	require.NoError(t, receiver.Feed(first))
	assert.Len(t, receiver.ReceiveEvents(), 1)

	err := receiver.Feed(third)
	require.ErrorIs(t, err, ErrOutOfSync)
	assert.Empty(t, receiver.ReceiveEvents())

	assert.ErrorIs(t, receiver.Feed(nil), ErrOutOfSync, "рассинхронизация необратима")
}

func TestChannel_FirstReceivedIDIsAccepted(t *testing.T) {
	sender := newTestChannel(t, DefaultChannelConfig())
	_ = sendAll(t, sender, sampleEvents()[:1])
	second := sendAll(t, sender, sampleEvents()[1:2])

	receiver := newTestChannel(t, DefaultChannelConfig())
	require.NoError(t, receiver.Feed(second))
	id, ok := receiver.RecvMessageID()
	require.True(t, ok)
	assert.Equal(t, int32(2), id)
	assert.Equal(t, sampleEvents()[1:2], receiver.ReceiveEvents())
}

func TestChannel_EventTooLarge(t *testing.T) {
	ch := newTestChannel(t, ChannelConfig{MaxMessageSize: 128})

	var actors []events.ActorState
	for i := 0; i < 10; i++ {
		actors = append(actors, events.ActorState{ActorID: uint64(100 + i), ActorType: "creep"})
	}
	err := ch.QueueEvent(events.EnterGame{Width: 800, Height: 600, Actors: actors})
	require.ErrorIs(t, err, ErrEventTooLarge)
	assert.Equal(t, 0, ch.PendingOutbound(), "ничего не должно попасть в очередь")

	require.NoError(t, ch.QueueEvent(events.Heal{ActorID: 1, Amount: 1}), "канал остаётся рабочим")
}

func TestChannel_TrailingBytesAreLoggedNotFatal(t *testing.T) {
	var logBuf bytes.Buffer
	logger := logging.NewConsoleLogger("net", &logBuf, logging.DEBUG)
	receiver, err := NewChannel("peer", nil, DefaultChannelConfig(), logger, nil)
	require.NoError(t, err)
	defer receiver.Close()

	payload, err := events.Encode(events.Heal{ActorID: 5, Amount: 2})
	require.NoError(t, err)
	body := NewWriteBuffer(0)
	require.True(t, body.WriteBlob(payload))
	require.True(t, body.Write([]byte{0x01}))

	codec, err := NewCodec(0, DefaultMaxMessageSize)
	require.NoError(t, err)
	defer codec.Close()

	frame := NewWriteBuffer(0)
	frame.WriteInt32(1)
	frame.WriteBlob(codec.Compress(body.Bytes()))

	require.NoError(t, receiver.Feed(frame.Bytes()))
	assert.Equal(t, []events.Event{events.Heal{ActorID: 5, Amount: 2}}, receiver.ReceiveEvents())
	assert.Contains(t, logBuf.String(), "trailing bytes")
}

func TestChannel_CorruptBodyIsFatal(t *testing.T) {
	frame := NewWriteBuffer(0)
	frame.WriteInt32(1)
	frame.WriteBlob([]byte("not zstd at all"))

	receiver := newTestChannel(t, DefaultChannelConfig())
	assert.Error(t, receiver.Feed(frame.Bytes()))
}

func TestChannel_ClosedChannelRejectsWork(t *testing.T) {
	ch := newTestChannel(t, DefaultChannelConfig())
	require.NoError(t, ch.Close())
	assert.ErrorIs(t, ch.QueueEvent(events.Heal{}), ErrChannelClosed)
	assert.ErrorIs(t, ch.SendData(), ErrChannelClosed)
	assert.ErrorIs(t, ch.ReceiveData(), ErrChannelClosed)
	assert.NoError(t, ch.Close(), "повторное закрытие безопасно")
}

// closingPump читатель, который отдаёт последний кусок и падает сразу
// после того, как канал увидел пустую очередь
type closingPump struct {
	queued [][]byte
	last   []byte
	failed bool
}

func (p *closingPump) TryReceive() ([]byte, bool) {
	if len(p.queued) > 0 {
		chunk := p.queued[0]
		p.queued = p.queued[1:]
		return chunk, true
	}
	if !p.failed {
		p.queued = append(p.queued, p.last)
		p.failed = true
	}
	return nil, false
}

func (p *closingPump) Err() error {
	if p.failed {
		return ErrDisconnected
	}
	return nil
}

func (p *closingPump) TrySend([]byte) bool { return true }
func (p *closingPump) Close() error        { return nil }

func TestChannel_LastBytesBeforeCloseAreDelivered(t *testing.T) {
	sender := newTestChannel(t, DefaultChannelConfig())
	data := sendAll(t, sender, sampleEvents())

	receiver := newTestChannel(t, DefaultChannelConfig())
	receiver.pump = &closingPump{last: data}

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = receiver.ReceiveData()
	}
	require.ErrorIs(t, err, ErrDisconnected)
	assert.Equal(t, sampleEvents(), receiver.ReceiveEvents(), "события, пришедшие до закрытия, не теряются")
}
