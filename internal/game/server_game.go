// Package game связывает мир, шину событий и сеть в игровой цикл сервера
// и содержит зеркало мира для клиента.
package game

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/network"
	"github.com/annel0/mmo-manager/internal/protocol/events"
	"github.com/annel0/mmo-manager/internal/scheduling"
	gsync "github.com/annel0/mmo-manager/internal/sync"
	"github.com/annel0/mmo-manager/internal/vec"
	"github.com/annel0/mmo-manager/internal/world"
)

// maxStatesPerEvent верхняя граница снимков в одном событии. Если событие
// не помещается в сообщение канала, пачка делится пополам, а граница
// запоминается для следующих тиков.
const maxStatesPerEvent = 200

// Transport сетевая сторона сервера, которой пользуется игровой цикл.
// Реализуется network.Server.
type Transport interface {
	AcceptPendingClients() uint64
	ReadFromClients()
	WriteToClients()
	SendEvent(clientID uint64, ev events.Event) error
	BroadcastEvent(ev events.Event) error
	ClientCount() int
}

// ServerConfig параметры игрового цикла
type ServerConfig struct {
	TickInterval    time.Duration
	InitialCreeps   int
	CreepType       string
	HeroSpawnPeriod float64 // секунды; <= 0 отключает появление героев
	MaxHeroes       int
	DeltaStrategy   gsync.Strategy
}

// ServerGame авторитетный игровой цикл: сеть, планировщик, мир, шина, дельты.
// Все поля трогаются только из горутины цикла.
type ServerGame struct {
	cfg       ServerConfig
	world     *world.World
	bus       *eventbus.Distributor
	transport Transport
	scheduler *scheduling.Scheduler
	tracker   gsync.DeltaTracker
	logger    *logging.Logger
	metrics   *Metrics
	status    *StatusBoard
	tracer    trace.Tracer

	pendingSpawns  []events.PlayerActionSpawn
	statesPerEvent int
	tick           uint64
	startedAt      time.Time
}

// NewServerGame подписывает обработчики сервера на шину
func NewServerGame(cfg ServerConfig, w *world.World, bus *eventbus.Distributor, transport Transport,
	scheduler *scheduling.Scheduler, logger *logging.Logger, metrics *Metrics, status *StatusBoard) *ServerGame {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if status == nil {
		status = NewStatusBoard()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second / 30
	}

	g := &ServerGame{
		cfg:       cfg,
		world:     w,
		bus:       bus,
		transport: transport,
		scheduler: scheduler,
		tracker:   gsync.NewTracker(cfg.DeltaStrategy),
		logger:    logger,
		metrics:   metrics,
		status:    status,
		tracer:    otel.Tracer("github.com/annel0/mmo-manager/internal/game"),
		startedAt: time.Now(),

		statesPerEvent: maxStatesPerEvent,
	}

	bus.AddHandler(g.onClientConnected, events.KindClientConnected)
	bus.AddHandler(g.onClientDisconnected, events.KindClientDisconnected)
	bus.AddHandler(g.onClientEvent, events.KindClientEvent)
	bus.AddHandler(g.broadcast, events.SimulationKinds()...)
	return g
}

// Status доска со снимками состояния
func (g *ServerGame) Status() *StatusBoard { return g.status }

// Tick номер последнего выполненного тика
func (g *ServerGame) Tick() uint64 { return g.tick }

// Populate создаёт стартовую популяцию и задачу периодического появления героев
func (g *ServerGame) Populate() error {
	for i := 0; i < g.cfg.InitialCreeps; i++ {
		if _, err := g.world.SpawnInArea(g.cfg.CreepType); err != nil {
			return fmt.Errorf("failed to spawn initial %s: %w", g.cfg.CreepType, err)
		}
	}
	g.logger.Info("🌱 Стартовая популяция: %d x %s", g.cfg.InitialCreeps, g.cfg.CreepType)

	if g.cfg.HeroSpawnPeriod > 0 && g.cfg.MaxHeroes > 0 {
		g.scheduler.Periodic(g.spawnHeroIfNeeded, g.cfg.HeroSpawnPeriod)
		g.logger.Info("🦸 Герои появляются каждые %.1fs, не больше %d", g.cfg.HeroSpawnPeriod, g.cfg.MaxHeroes)
	}
	return nil
}

func (g *ServerGame) spawnHeroIfNeeded() {
	if g.world.CountHeroes() >= g.cfg.MaxHeroes {
		return
	}
	if _, err := g.world.SpawnHero(); err != nil {
		g.logger.Error("❌ Не удалось создать героя: %v", err)
	}
}

// Step выполняет один тик: приём, чтение, планировщик, мир, шина,
// рассылка дельты, запись.
func (g *ServerGame) Step(ctx context.Context, dt float64) {
	started := time.Now()
	g.tick++
	_, span := g.tracer.Start(ctx, "game.tick", trace.WithAttributes(attribute.Int64("tick", int64(g.tick))))
	defer span.End()

	g.transport.AcceptPendingClients()
	g.transport.ReadFromClients()

	g.scheduler.Update(dt)
	g.applySpawnRequests()
	g.world.Update(dt)

	dispatched := g.bus.Update()
	sent := g.broadcastDelta()

	g.transport.WriteToClients()

	actors, heroes, clients := g.world.Len(), g.world.CountHeroes(), g.transport.ClientCount()
	span.SetAttributes(
		attribute.Int("actors", actors),
		attribute.Int("events", dispatched),
		attribute.Int("delta", sent),
	)
	g.metrics.observeTick(time.Since(started), actors, heroes, clients)
	g.publishStatus(actors, heroes, clients)
}

// Run крутит цикл до отмены ctx. Паника внутри тика перехватывается,
// логируется и возвращается как ошибка.
func (g *ServerGame) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.metrics.panicked()
			g.logger.Error("💥 Паника в игровом цикле: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("game loop panic: %v", r)
		}
	}()

	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	g.logger.Info("🎮 Игровой цикл запущен (тик %v)", g.cfg.TickInterval)
	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("🛑 Игровой цикл остановлен на тике %d", g.tick)
			return nil
		case tickTime := <-ticker.C:
			dt := tickTime.Sub(lastTick).Seconds()
			lastTick = tickTime
			g.Step(ctx, dt)
		}
	}
}

func (g *ServerGame) onClientConnected(ev events.Event) {
	e := ev.(events.ClientConnected)
	states := g.world.States()
	head := min(len(states), g.statesPerEvent)

	for {
		enter := events.EnterGame{Width: g.world.Width(), Height: g.world.Height(), Actors: states[:head]}
		err := g.transport.SendEvent(e.ClientID, enter)
		if err == nil {
			break
		}
		if !errors.Is(err, network.ErrEventTooLarge) || head == 0 {
			g.logger.Warn("⚠️ Не удалось отправить EnterGame клиенту %d: %v", e.ClientID, err)
			return
		}
		head /= 2
		g.statesPerEvent = max(1, head)
	}

	// остаток мира досылается отдельными ActorSpawned
	for _, st := range states[head:] {
		if err := g.transport.SendEvent(e.ClientID, events.ActorSpawned{Actor: st}); err != nil {
			g.logger.Warn("⚠️ Клиент %d: обрыв при досылке мира: %v", e.ClientID, err)
			return
		}
	}
	g.logger.Info("🚪 Клиент %d вошёл в игру, актёров: %d (в EnterGame %d)", e.ClientID, len(states), head)
}

func (g *ServerGame) onClientDisconnected(ev events.Event) {
	e := ev.(events.ClientDisconnected)
	g.logger.Info("👋 Клиент %d покинул игру", e.ClientID)
}

func (g *ServerGame) onClientEvent(ev events.Event) {
	e := ev.(events.ClientEvent)
	switch inner := e.Event.(type) {
	case events.PlayerActionSpawn:
		if !g.validSpawnRequest(e.ClientID, inner) {
			g.metrics.spawnRequest("rejected")
			return
		}
		// применяется в следующем тике до обновления мира, чтобы
		// ActorSpawned ушёл клиентам раньше дельты с этим актёром
		g.pendingSpawns = append(g.pendingSpawns, inner)
	default:
		g.logger.Warn("⚠️ Клиент %d прислал неожиданное событие %s", e.ClientID, e.Event.Kind())
	}
}

func (g *ServerGame) validSpawnRequest(clientID uint64, req events.PlayerActionSpawn) bool {
	if !g.world.Store().Has(req.ActorType) {
		g.logger.Warn("⚠️ Клиент %d запросил неизвестный тип актёра %q", clientID, req.ActorType)
		return false
	}
	if req.ActorType == world.HeroType {
		g.logger.Warn("⚠️ Клиент %d пытался создать героя", clientID)
		return false
	}
	if !g.world.IsValidPosition(vec.V(req.X, req.Y)) {
		g.logger.Warn("⚠️ Клиент %d запросил точку вне мира (%.1f, %.1f)", clientID, req.X, req.Y)
		return false
	}
	return true
}

func (g *ServerGame) applySpawnRequests() {
	for _, req := range g.pendingSpawns {
		if _, err := g.world.Spawn(req.ActorType, vec.V(req.X, req.Y)); err != nil {
			g.logger.Error("❌ Не удалось создать %s: %v", req.ActorType, err)
			g.metrics.spawnRequest("failed")
			continue
		}
		g.metrics.spawnRequest("spawned")
	}
	g.pendingSpawns = g.pendingSpawns[:0]
}

// broadcast рассылает события симуляции всем клиентам
func (g *ServerGame) broadcast(ev events.Event) {
	if err := g.transport.BroadcastEvent(ev); err != nil {
		g.logger.Error("❌ Не удалось разослать %s: %v", ev.Kind(), err)
	}
}

// broadcastDelta рассылает изменившиеся снимки. Базовая линия
// обновляется каждый тик, даже без клиентов.
func (g *ServerGame) broadcastDelta() int {
	delta := g.tracker.Diff(g.world.States())
	if len(delta) == 0 || g.transport.ClientCount() == 0 {
		return 0
	}
	sent := 0
	for start := 0; start < len(delta); {
		end := min(start+g.statesPerEvent, len(delta))
		sent += g.broadcastStates(delta[start:end])
		start = end
	}
	g.metrics.deltaSent(sent)
	return sent
}

// broadcastStates рассылает пачку одним DeltaState, а если она не
// помещается в сообщение, делит её пополам с сохранением порядка
func (g *ServerGame) broadcastStates(states []events.ActorState) int {
	err := g.transport.BroadcastEvent(events.DeltaState{Actors: states})
	if err == nil {
		return len(states)
	}
	if errors.Is(err, network.ErrEventTooLarge) && len(states) > 1 {
		mid := len(states) / 2
		g.statesPerEvent = min(g.statesPerEvent, mid)
		return g.broadcastStates(states[:mid]) + g.broadcastStates(states[mid:])
	}
	g.logger.Error("❌ Не удалось разослать DeltaState (%d актёров): %v", len(states), err)
	return 0
}

func (g *ServerGame) publishStatus(actors, heroes, clients int) {
	g.status.Publish(&Status{
		Tick:      g.tick,
		Width:     g.world.Width(),
		Height:    g.world.Height(),
		Actors:    actors,
		Heroes:    heroes,
		Clients:   clients,
		Bus:       g.bus.Metrics(),
		StartedAt: g.startedAt,
		UpdatedAt: time.Now(),
		States:    g.world.States(),
	})
}
