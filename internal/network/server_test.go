package network

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// recorder собирает опубликованные события; вызывается только из теста
type recorder struct {
	events []events.Event
}

func (r *recorder) Post(ev events.Event) { r.events = append(r.events, ev) }

func (r *recorder) find(kind events.Kind) (events.Event, bool) {
	for _, ev := range r.events {
		if ev.Kind() == kind {
			return ev, true
		}
	}
	return nil, false
}

const (
	waitFor = 3 * time.Second
	tick    = 5 * time.Millisecond
)

func startLoopbackServer(t *testing.T) (*Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, rec, nil, NewMetrics("srv", prometheus.NewRegistry()))
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return srv, rec
}

func connectClient(t *testing.T, srv *Server) (*Client, *recorder, uint64) {
	t.Helper()
	rec := &recorder{}
	cli := NewClient(ClientConfig{}, rec, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, cli.Connect(ctx, srv.Addr().String()))
	t.Cleanup(func() { cli.Close() })

	var id uint64
	require.Eventually(t, func() bool {
		id = srv.AcceptPendingClients()
		return id != 0
	}, waitFor, tick)
	return cli, rec, id
}

func TestServerClient_Loopback(t *testing.T) {
	srv, srvRec := startLoopbackServer(t)
	cli, cliRec, id := connectClient(t, srv)

	assert.Equal(t, uint64(1), id, "идентификаторы клиентов начинаются с 1")
	assert.Equal(t, []uint64{1}, srv.ClientIDs())
	assert.Equal(t, []events.Event{events.ClientConnected{ClientID: 1}}, srvRec.events)
	assert.Equal(t, []events.Event{events.ClientConnected{ClientID: events.ServerClientID}}, cliRec.events)

	enter := events.EnterGame{Width: 800, Height: 600, Actors: []events.ActorState{{ActorID: 101, ActorType: "creep", Health: 5}}}
	require.NoError(t, srv.SendEvent(id, enter))
	require.NoError(t, srv.BroadcastEvent(events.Heal{ActorID: 101, Amount: 1}))
	srv.WriteToClients()

	require.Eventually(t, func() bool {
		cli.ReadFromServer()
		return len(cliRec.events) >= 3
	}, waitFor, tick)
	assert.Equal(t, enter, cliRec.events[1])
	assert.Equal(t, events.Heal{ActorID: 101, Amount: 1}, cliRec.events[2])

	spawn := events.PlayerActionSpawn{ActorType: "creep", X: 10, Y: 20}
	require.NoError(t, cli.SendEvent(spawn))
	cli.WriteToServer()

	require.Eventually(t, func() bool {
		srv.ReadFromClients()
		_, ok := srvRec.find(events.KindClientEvent)
		return ok
	}, waitFor, tick)
	ev, _ := srvRec.find(events.KindClientEvent)
	assert.Equal(t, events.ClientEvent{ClientID: id, Event: spawn}, ev)
}

func TestServer_ClientDisconnectIsReported(t *testing.T) {
	srv, srvRec := startLoopbackServer(t)
	cli, _, id := connectClient(t, srv)

	require.NoError(t, cli.Close())
	require.Eventually(t, func() bool {
		srv.ReadFromClients()
		_, ok := srvRec.find(events.KindClientDisconnected)
		return ok
	}, waitFor, tick)

	ev, _ := srvRec.find(events.KindClientDisconnected)
	assert.Equal(t, events.ClientDisconnected{ClientID: id}, ev)
	assert.Equal(t, 0, srv.ClientCount())
	assert.ErrorIs(t, srv.SendEvent(id, events.Heal{}), ErrUnknownClient)
}

func TestClient_ServerShutdownIsReported(t *testing.T) {
	srv, _ := startLoopbackServer(t)
	cli, cliRec, _ := connectClient(t, srv)

	srv.Stop()
	require.Eventually(t, func() bool {
		cli.ReadFromServer()
		_, ok := cliRec.find(events.KindClientDisconnected)
		return ok
	}, waitFor, tick)

	ev, _ := cliRec.find(events.KindClientDisconnected)
	assert.Equal(t, events.ClientDisconnected{ClientID: events.ServerClientID}, ev)
	assert.False(t, cli.Connected())
	assert.ErrorIs(t, cli.SendEvent(events.Heal{}), ErrNotConnected)
}

func TestServer_AcceptsAtMostOnePerPoll(t *testing.T) {
	srv, _ := startLoopbackServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	for i := 0; i < 2; i++ {
		cli := NewClient(ClientConfig{}, &recorder{}, nil, nil)
		require.NoError(t, cli.Connect(ctx, srv.Addr().String()))
		t.Cleanup(func() { cli.Close() })
	}

	// ждём, пока оба соединения окажутся в очереди приёма
	require.Eventually(t, func() bool { return len(srv.accepted) == 2 }, waitFor, tick)
	assert.Equal(t, uint64(1), srv.AcceptPendingClients())
	assert.Equal(t, 1, srv.ClientCount())
	assert.Equal(t, uint64(2), srv.AcceptPendingClients())
	assert.Equal(t, uint64(0), srv.AcceptPendingClients())
}

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("")
	require.NoError(t, err)
	assert.Equal(t, TransportTCP, tr)

	tr, err = ParseTransport("kcp")
	require.NoError(t, err)
	assert.Equal(t, TransportKCP, tr)

	_, err = ParseTransport("quic")
	assert.Error(t, err)
}
