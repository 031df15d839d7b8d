package game

import (
	"sort"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
	"github.com/annel0/mmo-manager/internal/scheduling"
)

// CorpseLifetime сколько секунд клиент держит тело погибшего актёра
const CorpseLifetime = 30.0

// CombatStats счётчики боевых событий, увиденных клиентом
type CombatStats struct {
	Attacks int
	Misses  int
	Damage  int
	Heals   int
	Loot    int
	Deaths  int
}

// ClientWorld зеркало мира на клиенте. Применяет события сервера и
// никогда не симулирует сам.
type ClientWorld struct {
	scheduler *scheduling.Scheduler
	logger    *logging.Logger

	entered bool
	width   float64
	height  float64
	actors  map[uint64]events.ActorState
	corpses map[uint64]events.ActorState
	stats   CombatStats
}

// NewClientWorld подписывает зеркало на события сервера
func NewClientWorld(bus *eventbus.Distributor, scheduler *scheduling.Scheduler, logger *logging.Logger) *ClientWorld {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	cw := &ClientWorld{
		scheduler: scheduler,
		logger:    logger,
		actors:    make(map[uint64]events.ActorState),
		corpses:   make(map[uint64]events.ActorState),
	}
	bus.AddHandler(cw.onEnterGame, events.KindEnterGame)
	bus.AddHandler(cw.onDeltaState, events.KindDeltaState)
	bus.AddHandler(cw.onActorSpawned, events.KindActorSpawned)
	bus.AddHandler(cw.onActorDied, events.KindActorDied)
	bus.AddHandler(cw.onAttack, events.KindAttack)
	bus.AddHandler(cw.onHeal, events.KindHeal)
	bus.AddHandler(cw.onLoot, events.KindLoot)
	bus.AddHandler(cw.onSetTarget, events.KindSetTarget)
	return cw
}

func (cw *ClientWorld) Entered() bool      { return cw.entered }
func (cw *ClientWorld) Width() float64     { return cw.width }
func (cw *ClientWorld) Height() float64    { return cw.height }
func (cw *ClientWorld) Len() int           { return len(cw.actors) }
func (cw *ClientWorld) CorpseCount() int   { return len(cw.corpses) }
func (cw *ClientWorld) Stats() CombatStats { return cw.stats }

// Actor живой актёр по идентификатору
func (cw *ClientWorld) Actor(id uint64) (events.ActorState, bool) {
	s, ok := cw.actors[id]
	return s, ok
}

// Find ищет среди живых и среди тел
func (cw *ClientWorld) Find(id uint64) (events.ActorState, bool) {
	if s, ok := cw.actors[id]; ok {
		return s, true
	}
	s, ok := cw.corpses[id]
	return s, ok
}

// Actors живые актёры по возрастанию идентификатора
func (cw *ClientWorld) Actors() []events.ActorState {
	out := make([]events.ActorState, 0, len(cw.actors))
	for _, s := range cw.actors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}

func (cw *ClientWorld) onEnterGame(ev events.Event) {
	e := ev.(events.EnterGame)
	cw.logger.Info("🌍 Вход в игру %.0f x %.0f, актёров: %d", e.Width, e.Height, len(e.Actors))

	cw.entered = true
	cw.width, cw.height = e.Width, e.Height
	cw.actors = make(map[uint64]events.ActorState, len(e.Actors))
	cw.corpses = make(map[uint64]events.ActorState)
	for _, s := range e.Actors {
		cw.actors[s.ActorID] = s
	}
}

func (cw *ClientWorld) onDeltaState(ev events.Event) {
	e := ev.(events.DeltaState)
	for _, s := range e.Actors {
		if _, ok := cw.actors[s.ActorID]; !ok {
			cw.logger.Warn("⚠️ Состояние неизвестного актёра %d", s.ActorID)
			continue
		}
		cw.actors[s.ActorID] = s
	}
}

func (cw *ClientWorld) onActorSpawned(ev events.Event) {
	e := ev.(events.ActorSpawned)
	if _, ok := cw.actors[e.Actor.ActorID]; ok {
		// актёр уже пришёл в EnterGame того же тика
		cw.logger.Debug("Актёр %d уже известен, обновляю состояние", e.Actor.ActorID)
	}
	cw.actors[e.Actor.ActorID] = e.Actor
}

func (cw *ClientWorld) onActorDied(ev events.Event) {
	e := ev.(events.ActorDied)
	cw.stats.Deaths++

	s, ok := cw.actors[e.ActorID]
	if !ok {
		cw.logger.Warn("⚠️ Не найден погибший актёр %d", e.ActorID)
		return
	}
	delete(cw.actors, e.ActorID)
	s.Health = 0
	s.TargetID = events.NoActor
	cw.corpses[e.ActorID] = s
	cw.logger.Info("💀 %s #%d погиб", s.ActorType, e.ActorID)

	cw.scheduler.Post(func() { delete(cw.corpses, e.ActorID) }, CorpseLifetime)
}

// known проверяет, что актёр есть среди живых или тел, иначе пишет
// предупреждение. Жертва к моменту Attack уже может лежать в телах.
func (cw *ClientWorld) known(id uint64, kind events.Kind) bool {
	if _, ok := cw.Find(id); ok {
		return true
	}
	cw.logger.Warn("⚠️ %s: неизвестный актёр %d", kind, id)
	return false
}

func (cw *ClientWorld) onAttack(ev events.Event) {
	e := ev.(events.Attack)
	if !cw.known(e.AttackerID, e.Kind()) || !cw.known(e.VictimID, e.Kind()) {
		return
	}
	cw.stats.Attacks++
	if e.Damage == 0 {
		cw.stats.Misses++
		cw.logger.Debug("Актёр %d промахнулся по %d", e.AttackerID, e.VictimID)
		return
	}
	cw.stats.Damage += e.Damage
	cw.logger.Debug("Актёр %d ударил %d на %d", e.AttackerID, e.VictimID, e.Damage)
}

func (cw *ClientWorld) onHeal(ev events.Event) {
	e := ev.(events.Heal)
	if !cw.known(e.ActorID, e.Kind()) {
		return
	}
	cw.stats.Heals += e.Amount
	if s, ok := cw.actors[e.ActorID]; ok && s.IsHero {
		cw.logger.Debug("Герой %d +%d hp", e.ActorID, e.Amount)
	}
}

func (cw *ClientWorld) onLoot(ev events.Event) {
	e := ev.(events.Loot)
	if !cw.known(e.ActorID, e.Kind()) {
		return
	}
	cw.stats.Loot += e.Amount
	cw.logger.Info("💰 Актёр %d получил добычу +%d", e.ActorID, e.Amount)
}

func (cw *ClientWorld) onSetTarget(ev events.Event) {
	e := ev.(events.SetTarget)
	s, ok := cw.actors[e.ActorID]
	if !ok {
		cw.logger.Warn("⚠️ Цель для неизвестного актёра %d", e.ActorID)
		return
	}
	s.TargetID = e.TargetID
	cw.actors[e.ActorID] = s
}
