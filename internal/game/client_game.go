package game

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
	"github.com/annel0/mmo-manager/internal/scheduling"
	"github.com/annel0/mmo-manager/internal/world"
)

// ErrServerGone соединение с сервером потеряно
var ErrServerGone = errors.New("disconnected from server")

// ServerLink соединение клиента с сервером. Реализуется network.Client.
type ServerLink interface {
	ReadFromServer()
	WriteToServer()
	SendEvent(ev events.Event) error
	Connected() bool
}

// ClientConfig параметры клиентского цикла
type ClientConfig struct {
	TickInterval time.Duration
	SpawnPeriod  float64 // секунды между запросами на появление; 0 отключает
}

// ClientGame цикл клиента: чтение, планировщик, шина, запись.
type ClientGame struct {
	cfg       ClientConfig
	link      ServerLink
	bus       *eventbus.Distributor
	scheduler *scheduling.Scheduler
	mirror    *ClientWorld
	user      *User
	rng       *rand.Rand
	logger    *logging.Logger

	disconnected bool
}

// NewClientGame создаёт зеркало мира и счёт игрока
func NewClientGame(cfg ClientConfig, link ServerLink, bus *eventbus.Distributor, scheduler *scheduling.Scheduler,
	store *world.ActorStore, rng *rand.Rand, logger *logging.Logger) *ClientGame {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second / 30
	}
	mirror := NewClientWorld(bus, scheduler, logger)
	g := &ClientGame{
		cfg:       cfg,
		link:      link,
		bus:       bus,
		scheduler: scheduler,
		mirror:    mirror,
		user:      NewUser(bus, mirror, store),
		rng:       rng,
		logger:    logger,
	}
	bus.AddHandler(g.onDisconnected, events.KindClientDisconnected)

	if cfg.SpawnPeriod > 0 {
		scheduler.Periodic(g.requestSpawn, cfg.SpawnPeriod)
	}
	return g
}

func (g *ClientGame) Mirror() *ClientWorld { return g.mirror }
func (g *ClientGame) User() *User          { return g.user }
func (g *ClientGame) Disconnected() bool   { return g.disconnected }

// Step один кадр клиента
func (g *ClientGame) Step(dt float64) {
	g.link.ReadFromServer()
	g.scheduler.Update(dt)
	g.bus.Update()
	if g.link.Connected() {
		g.link.WriteToServer()
	}
}

// Run крутит цикл до отмены ctx или потери сервера
func (g *ClientGame) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case tickTime := <-ticker.C:
			dt := tickTime.Sub(lastTick).Seconds()
			lastTick = tickTime
			g.Step(dt)
			if g.disconnected {
				return ErrServerGone
			}
		}
	}
}

// RequestSpawn просит сервер создать актёра выбранного типа в точке (x, y)
func (g *ClientGame) RequestSpawn(x, y float64) error {
	req := events.PlayerActionSpawn{ActorType: g.user.SelectedType(), X: x, Y: y}
	g.logger.Info("🐣 Запрос на появление %s в (%.0f, %.0f)", req.ActorType, x, y)
	return g.link.SendEvent(req)
}

// requestSpawn случайная точка в центральной трети мира
func (g *ClientGame) requestSpawn() {
	if !g.mirror.Entered() || g.user.SelectedType() == "" || !g.link.Connected() {
		return
	}
	w, h := g.mirror.Width(), g.mirror.Height()
	x := w/3 + g.rng.Float64()*w/3
	y := h/3 + g.rng.Float64()*h/3
	if err := g.RequestSpawn(x, y); err != nil {
		g.logger.Warn("⚠️ Запрос на появление не отправлен: %v", err)
	}
}

func (g *ClientGame) onDisconnected(ev events.Event) {
	if ev.(events.ClientDisconnected).ClientID != events.ServerClientID {
		return
	}
	g.disconnected = true
	g.logger.Info("🔌 Отключены от сервера, счёт: %d", g.user.Score())
}
