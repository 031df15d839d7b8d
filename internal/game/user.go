package game

import (
	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/protocol/events"
	"github.com/annel0/mmo-manager/internal/world"
)

// heroDeathPenalty очки, которые игрок теряет за каждого погибшего героя
const heroDeathPenalty = 10

// User счёт игрока и выбранный для появления тип актёра
type User struct {
	mirror *ClientWorld

	score          int
	maxHeroes      int
	availableTypes []string
	selectedType   string
}

// NewUser подписывает счёт на события. Доступны все типы, кроме героя.
// Обработчики User регистрируются после ClientWorld, поэтому погибший
// актёр к моменту обработки уже лежит в телах зеркала.
func NewUser(bus *eventbus.Distributor, mirror *ClientWorld, store *world.ActorStore) *User {
	u := &User{mirror: mirror}
	for _, name := range store.Names() {
		if name != world.HeroType {
			u.availableTypes = append(u.availableTypes, name)
		}
	}
	if len(u.availableTypes) > 0 {
		u.selectedType = u.availableTypes[0]
	}

	bus.AddHandler(u.onLoot, events.KindLoot)
	bus.AddHandler(u.trackHeroes, events.KindEnterGame, events.KindActorSpawned)
	bus.AddHandler(u.onActorDied, events.KindActorDied)
	return u
}

func (u *User) Score() int                 { return u.score }
func (u *User) MaxSimultaneousHeroes() int { return u.maxHeroes }
func (u *User) AvailableTypes() []string   { return u.availableTypes }
func (u *User) SelectedType() string       { return u.selectedType }

// SelectType выбирает тип, если он доступен
func (u *User) SelectType(actorType string) bool {
	for _, name := range u.availableTypes {
		if name == actorType {
			u.selectedType = actorType
			return true
		}
	}
	return false
}

func (u *User) onLoot(ev events.Event) {
	e := ev.(events.Loot)
	if s, ok := u.mirror.Find(e.ActorID); ok && s.IsHero {
		u.score += e.Amount / 10
	}
}

// HeroCount живые герои в зеркале
func (u *User) HeroCount() int {
	n := 0
	for _, s := range u.mirror.Actors() {
		if s.IsHero {
			n++
		}
	}
	return n
}

func (u *User) trackHeroes(events.Event) {
	u.maxHeroes = max(u.maxHeroes, u.HeroCount())
}

func (u *User) onActorDied(ev events.Event) {
	e := ev.(events.ActorDied)
	s, ok := u.mirror.Find(e.ActorID)
	if !ok || !s.IsHero {
		return
	}
	u.score -= heroDeathPenalty
}
