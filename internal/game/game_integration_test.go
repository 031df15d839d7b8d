package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/network"
	"github.com/annel0/mmo-manager/internal/scheduling"
	"github.com/annel0/mmo-manager/internal/world"
)

// stepUntil крутит оба цикла, пока cond не станет истинным
func stepUntil(t *testing.T, server *ServerGame, client *ClientGame, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		server.Step(context.Background(), 0.02)
		client.Step(0.02)
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("условие не выполнилось за отведённое время")
}

func TestGame_ClientMirrorsServerOverLoopback(t *testing.T) {
	serverBus := eventbus.NewDistributor()
	w := world.NewWorld(world.Config{Width: 900, Height: 600}, testStore(), serverBus, rand.New(rand.NewSource(11)), nil)

	srv := network.NewServer(network.ServerConfig{Addr: "127.0.0.1:0"}, serverBus, nil, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	server := NewServerGame(ServerConfig{InitialCreeps: 5, CreepType: "creep"}, w, serverBus, srv, scheduling.NewScheduler(), nil, nil, nil)
	require.NoError(t, server.Populate())

	clientBus := eventbus.NewDistributor()
	cli := network.NewClient(network.ClientConfig{}, clientBus, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, cli.Connect(ctx, srv.Addr().String()))
	t.Cleanup(func() { cli.Close() })

	client := NewClientGame(ClientConfig{}, cli, clientBus, scheduling.NewScheduler(), testStore(), rand.New(rand.NewSource(5)), nil)
	mirror := client.Mirror()

	stepUntil(t, server, client, func() bool {
		return mirror.Entered() && mirror.Len() == w.Len()
	})
	assert.Equal(t, 900.0, mirror.Width())

	require.NoError(t, client.RequestSpawn(450, 300))
	stepUntil(t, server, client, func() bool {
		return w.Len() == 6 && mirror.Len() == 6
	})

	for _, a := range w.Actors() {
		s, ok := mirror.Actor(a.ID())
		require.True(t, ok, "актёр %d должен быть в зеркале", a.ID())
		assert.Equal(t, a.Type(), s.ActorType)
	}
}

func TestGame_SmallMessageSizeStillDeliversWholeWorld(t *testing.T) {
	channel := network.ChannelConfig{MaxMessageSize: 4096}
	serverBus := eventbus.NewDistributor()
	w := world.NewWorld(world.Config{Width: 900, Height: 600}, testStore(), serverBus, rand.New(rand.NewSource(13)), nil)

	srv := network.NewServer(network.ServerConfig{Addr: "127.0.0.1:0", Channel: channel}, serverBus, nil, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	server := NewServerGame(ServerConfig{InitialCreeps: 80, CreepType: "creep"}, w, serverBus, srv, scheduling.NewScheduler(), nil, nil, nil)
	require.NoError(t, server.Populate())

	clientBus := eventbus.NewDistributor()
	cli := network.NewClient(network.ClientConfig{Channel: channel}, clientBus, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, cli.Connect(ctx, srv.Addr().String()))
	t.Cleanup(func() { cli.Close() })

	client := NewClientGame(ClientConfig{}, cli, clientBus, scheduling.NewScheduler(), testStore(), rand.New(rand.NewSource(5)), nil)
	mirror := client.Mirror()

	stepUntil(t, server, client, func() bool {
		return mirror.Entered() && mirror.Len() == 80
	})
	assert.Equal(t, 1, srv.ClientCount(), "клиент не отключён из-за размера событий")
	for _, a := range w.Actors() {
		_, ok := mirror.Actor(a.ID())
		assert.True(t, ok, "актёр %d должен быть в зеркале", a.ID())
	}
}
