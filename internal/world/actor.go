package world

import (
	"math"

	"github.com/annel0/mmo-manager/internal/protocol/events"
	"github.com/annel0/mmo-manager/internal/scheduling"
	"github.com/annel0/mmo-manager/internal/vec"
)

const (
	wanderRadius   = 100.0
	wanderTimeMin  = 1.0
	wanderTimeMax  = 4.0
	wanderAttempts = 32
)

// Actor участник симуляции. Принадлежит World, другие актёры
// ссылаются на него только по идентификатору.
type Actor struct {
	id        uint64
	actorType string
	isHero    bool

	speed       float64
	radius      float64
	attackRange float64
	threatRange float64
	minDamage   int
	maxDamage   int
	maxHealth   int
	health      int
	healthRegen int
	missRate    float64
	lootValue   int

	pos      vec.Vec2Float
	moveDest vec.Vec2Float
	targetID uint64

	wanderTimer *scheduling.Timer
	attackTimer *scheduling.Timer
	regenTimer  *scheduling.Timer
}

func (a *Actor) ID() uint64              { return a.id }
func (a *Actor) Type() string            { return a.actorType }
func (a *Actor) IsHero() bool            { return a.isHero }
func (a *Actor) Pos() vec.Vec2Float      { return a.pos }
func (a *Actor) MoveDest() vec.Vec2Float { return a.moveDest }
func (a *Actor) Radius() float64         { return a.radius }
func (a *Actor) AttackRange() float64    { return a.attackRange }
func (a *Actor) ThreatRange() float64    { return a.threatRange }
func (a *Actor) Health() int             { return a.health }
func (a *Actor) MaxHealth() int          { return a.maxHealth }
func (a *Actor) LootValue() int          { return a.lootValue }
func (a *Actor) TargetID() uint64        { return a.targetID }
func (a *Actor) IsAlive() bool           { return a.health > 0 }
func (a *Actor) IsDead() bool            { return a.health <= 0 }

// State полный снимок атрибутов для сети
func (a *Actor) State() events.ActorState {
	return events.ActorState{
		ActorID:     a.id,
		ActorType:   a.actorType,
		IsHero:      a.isHero,
		Speed:       a.speed,
		Radius:      a.radius,
		AttackRange: a.attackRange,
		ThreatRange: a.threatRange,
		MinDamage:   a.minDamage,
		MaxDamage:   a.maxDamage,
		MaxHealth:   a.maxHealth,
		Health:      a.health,
		HealthRegen: a.healthRegen,
		MissRate:    a.missRate,
		LootValue:   a.lootValue,
		X:           a.pos.X,
		Y:           a.pos.Y,
		TargetID:    a.targetID,
		MoveDestX:   a.moveDest.X,
		MoveDestY:   a.moveDest.Y,
	}
}

// inRange расстояние до края other меньше maxRange
func (a *Actor) inRange(other *Actor, maxRange float64) bool {
	return a.pos.DistanceTo(other.pos)-other.radius < maxRange
}

// Think продвигает актёра на dt секунд: цель, атака, блуждание,
// регенерация и движение
func (a *Actor) Think(w *World, dt float64) {
	a.wanderTimer.Update(dt)
	a.attackTimer.Update(dt)
	a.regenTimer.Update(dt)

	if a.targetID != events.NoActor {
		target, ok := w.Actor(a.targetID)
		switch {
		case !ok || target.IsDead():
			w.setTarget(a, events.NoActor)
			a.moveDest = w.wanderDestination(a.pos)
		case a.inRange(target, a.attackRange):
			a.moveDest = a.pos
			a.shootAtTarget(w, target)
		default:
			a.moveDest = target.pos
		}
	} else {
		a.attackOrWander(w)
	}

	// регенерация только вне боя
	if a.regenTimer.IsExpiredThenReset() && a.targetID == events.NoActor && a.health < a.maxHealth {
		heal := min(a.healthRegen, a.maxHealth-a.health)
		if heal > 0 {
			a.health += heal
			w.post(events.Heal{ActorID: a.id, Amount: heal})
		}
	}

	a.move(dt)
}

// attackOrWander при здоровье выше половины ищет врага, иначе блуждает
func (a *Actor) attackOrWander(w *World) {
	if float64(a.health) > float64(a.maxHealth)/2 {
		enemies := w.nearbyEnemies(a)
		if len(enemies) > 0 {
			w.setTarget(a, enemies[w.rng.Intn(len(enemies))].id)
			return
		}
	}
	a.wander(w)
}

func (a *Actor) wander(w *World) {
	if a.wanderTimer.Expired() || a.pos.DistanceTo(a.moveDest) < a.radius {
		a.wanderTimer.Reset()
		a.moveDest = w.wanderDestination(a.pos)
	}
}

func (a *Actor) shootAtTarget(w *World, target *Actor) {
	if !a.attackTimer.IsExpiredThenReset() {
		return
	}

	damage := 0
	if w.rng.Float64() >= a.missRate {
		damage = a.minDamage + w.rng.Intn(a.maxDamage-a.minDamage+1)
		w.applyDamage(a, target, damage)
	}
	w.post(events.Attack{AttackerID: a.id, VictimID: target.id, Damage: damage})
}

// move двигает актёра к moveDest не дальше speed*dt и без перелёта
func (a *Actor) move(dt float64) {
	delta := a.moveDest.Sub(a.pos)
	dir, dist := delta.NormalizedWithLength()
	if dist == 0 || math.IsNaN(dist) {
		return
	}
	step := min(a.speed*dt, dist)
	if step >= dist {
		a.pos = a.moveDest
		return
	}
	a.pos = a.pos.Add(dir.Mul(step))
}
