// Package world содержит авторитетную симуляцию: мир, актёров, их
// характеристики из таблицы параметров и боевую логику.
package world

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/annel0/mmo-manager/internal/logging"
	"github.com/annel0/mmo-manager/internal/protocol/events"
	"github.com/annel0/mmo-manager/internal/scheduling"
	"github.com/annel0/mmo-manager/internal/vec"
)

// HeroType тип актёра, который считается героем
const HeroType = "hero"

const (
	// firstActorID зарезервированные идентификаторы; первый актёр получит 101
	firstActorID uint64 = 100
	// borderPad ширина полос за краем мира, где появляются герои
	borderPad = 64.0
)

// Poster принимает события симуляции
type Poster interface {
	Post(ev events.Event)
}

// Config размеры мира
type Config struct {
	Width  float64
	Height float64
}

// World владеет всеми актёрами. Не потокобезопасен: используется
// только из игрового цикла.
type World struct {
	width     float64
	height    float64
	bounds    vec.Rect
	spawnArea vec.Rect

	store  *ActorStore
	poster Poster
	rng    *rand.Rand
	logger *logging.Logger

	actors      []*Actor
	byID        map[uint64]*Actor
	nextActorID uint64
}

// NewWorld создаёт пустой мир
func NewWorld(cfg Config, store *ActorStore, poster Poster, rng *rand.Rand, logger *logging.Logger) *World {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	bounds := vec.Rect{W: cfg.Width, H: cfg.Height}
	return &World{
		width:       cfg.Width,
		height:      cfg.Height,
		bounds:      bounds,
		spawnArea:   bounds.Inflate(-cfg.Width/3, -cfg.Height/3),
		store:       store,
		poster:      poster,
		rng:         rng,
		logger:      logger,
		byID:        make(map[uint64]*Actor),
		nextActorID: firstActorID,
	}
}

func (w *World) Width() float64      { return w.width }
func (w *World) Height() float64     { return w.height }
func (w *World) Bounds() vec.Rect    { return w.bounds }
func (w *World) SpawnArea() vec.Rect { return w.spawnArea }
func (w *World) Store() *ActorStore  { return w.store }

// Len количество живых актёров
func (w *World) Len() int { return len(w.actors) }

// Actor ищет актёра по идентификатору
func (w *World) Actor(id uint64) (*Actor, bool) {
	a, ok := w.byID[id]
	return a, ok
}

// Actors актёры в порядке появления (копия среза)
func (w *World) Actors() []*Actor {
	out := make([]*Actor, len(w.actors))
	copy(out, w.actors)
	return out
}

// States снимки всех актёров в порядке появления
func (w *World) States() []events.ActorState {
	out := make([]events.ActorState, 0, len(w.actors))
	for _, a := range w.actors {
		out = append(out, a.State())
	}
	return out
}

// CountHeroes количество живых героев
func (w *World) CountHeroes() int {
	n := 0
	for _, a := range w.actors {
		if a.isHero {
			n++
		}
	}
	return n
}

// Spawn создаёт актёра типа actorType в точке pos
func (w *World) Spawn(actorType string, pos vec.Vec2Float) (*Actor, error) {
	params, ok := w.store.Params(actorType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActorType, actorType)
	}

	isHero := actorType == HeroType
	s := rollStats(params, isHero, w.rng)

	w.nextActorID++
	a := &Actor{
		id:          w.nextActorID,
		actorType:   actorType,
		isHero:      isHero,
		speed:       s.speed,
		radius:      s.radius,
		attackRange: s.attackRange,
		threatRange: s.threatRange,
		minDamage:   s.minDamage,
		maxDamage:   s.maxDamage,
		maxHealth:   s.maxHealth,
		health:      s.maxHealth,
		healthRegen: s.healthRegen,
		missRate:    s.missRate,
		lootValue:   s.lootValue,
		pos:         pos,
		wanderTimer: scheduling.NewRangeTimer(wanderTimeMin, wanderTimeMax, w.rng),
		attackTimer: scheduling.NewRangeTimer(s.attackTime.Min, s.attackTime.Max, w.rng),
		regenTimer:  scheduling.NewRangeTimer(s.regenTime.Min, s.regenTime.Max, w.rng),
	}
	// таймеры стартуют истёкшими: первое действие доступно сразу
	a.wanderTimer.FastForward()
	a.attackTimer.FastForward()
	a.regenTimer.FastForward()
	a.moveDest = pos.Add(w.randomOffset())

	w.actors = append(w.actors, a)
	w.byID[a.id] = a
	w.logger.Debug("Появился %s #%d в (%.1f, %.1f), hp=%d", actorType, a.id, pos.X, pos.Y, a.health)
	w.post(events.ActorSpawned{Actor: a.State()})
	return a, nil
}

// SpawnInArea создаёт актёра в случайной точке зоны появления
func (w *World) SpawnInArea(actorType string) (*Actor, error) {
	return w.Spawn(actorType, w.RandomPointIn(w.spawnArea))
}

// SpawnHero создаёт героя за краем мира
func (w *World) SpawnHero() (*Actor, error) {
	return w.Spawn(HeroType, w.BorderSpawnPoint())
}

// BorderSpawnPoint случайная точка в одной из четырёх полос вокруг мира.
// Полоса выбирается с вероятностью, пропорциональной её площади.
func (w *World) BorderSpawnPoint() vec.Vec2Float {
	rects := [4]vec.Rect{
		{X: -borderPad, Y: -borderPad, W: w.width + borderPad, H: borderPad}, // верх
		{X: w.width, Y: -borderPad, W: borderPad, H: w.height + borderPad},   // право
		{X: 0, Y: w.height, W: w.width + borderPad, H: borderPad},            // низ
		{X: -borderPad, Y: 0, W: borderPad, H: w.height + borderPad},         // лево
	}

	total := 0.0
	for _, r := range rects {
		total += r.Area()
	}
	roll := w.rng.Float64() * total
	chosen := rects[len(rects)-1]
	for _, r := range rects {
		if roll < r.Area() {
			chosen = r
			break
		}
		roll -= r.Area()
	}
	return w.RandomPointIn(chosen)
}

// RandomPointIn равномерная точка внутри прямоугольника
func (w *World) RandomPointIn(r vec.Rect) vec.Vec2Float {
	return vec.V(uniform(w.rng, r.Left(), r.Right()), uniform(w.rng, r.Top(), r.Bottom()))
}

// Update продвигает всех живых актёров на dt секунд. Актёры, погибшие
// во время обхода, пропускаются.
func (w *World) Update(dt float64) {
	for _, a := range w.Actors() {
		if a.IsAlive() {
			a.Think(w, dt)
		}
	}
}

// NearbyActors живые актёры, край которых ближе radius к pos
func (w *World) NearbyActors(pos vec.Vec2Float, radius float64) []*Actor {
	var out []*Actor
	for _, a := range w.actors {
		if a.IsAlive() && pos.DistanceTo(a.pos)-a.radius < radius {
			out = append(out, a)
		}
	}
	return out
}

// IsValidPosition лежит ли точка внутри мира
func (w *World) IsValidPosition(p vec.Vec2Float) bool {
	return w.bounds.Contains(p)
}

// DamageActor наносит урон по идентификаторам. attackerID может быть
// NoActor. Возвращает false, если жертвы нет в мире.
func (w *World) DamageActor(victimID uint64, damage int, attackerID uint64) bool {
	victim, ok := w.Actor(victimID)
	if !ok {
		return false
	}
	attacker, _ := w.Actor(attackerID)
	w.applyDamage(attacker, victim, damage)
	return true
}

func (w *World) nearbyEnemies(a *Actor) []*Actor {
	var out []*Actor
	for _, other := range w.NearbyActors(a.pos, a.threatRange) {
		if other.isHero != a.isHero {
			out = append(out, other)
		}
	}
	return out
}

// wanderDestination случайная точка на расстоянии wanderRadius от from,
// лежащая внутри мира. После wanderAttempts неудач точка прижимается к границе.
func (w *World) wanderDestination(from vec.Vec2Float) vec.Vec2Float {
	var dest vec.Vec2Float
	for i := 0; i < wanderAttempts; i++ {
		dest = from.Add(w.randomOffset())
		if w.IsValidPosition(dest) {
			return dest
		}
	}
	return w.bounds.Clamp(dest)
}

func (w *World) randomOffset() vec.Vec2Float {
	return vec.FromAngle(w.rng.Float64()*2*math.Pi, wanderRadius)
}

// setTarget меняет цель и публикует SetTarget, если цель изменилась
func (w *World) setTarget(a *Actor, targetID uint64) {
	if a.targetID == targetID {
		return
	}
	a.targetID = targetID
	w.post(events.SetTarget{ActorID: a.id, TargetID: targetID})
}

func (w *World) removeActor(a *Actor) {
	delete(w.byID, a.id)
	for i, other := range w.actors {
		if other == a {
			w.actors = append(w.actors[:i], w.actors[i+1:]...)
			return
		}
	}
}

func (w *World) post(ev events.Event) {
	w.poster.Post(ev)
}
