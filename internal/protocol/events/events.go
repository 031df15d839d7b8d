// Package events содержит закрытый каталог событий, которыми обмениваются
// симуляция, шина событий и сетевые каналы. События несут только
// примитивные данные и идентификаторы, никогда не ссылки на объекты.
package events

import "fmt"

// Kind тег варианта события. Значения входят в формат провода, их нельзя
// перенумеровывать.
type Kind uint8

const (
	KindActorSpawned       Kind = 1
	KindActorDied          Kind = 2
	KindAttack             Kind = 3
	KindHeal               Kind = 4
	KindLoot               Kind = 5
	KindSetTarget          Kind = 6
	KindEnterGame          Kind = 7
	KindDeltaState         Kind = 8
	KindClientConnected    Kind = 9
	KindClientDisconnected Kind = 10
	KindClientEvent        Kind = 11
	KindPlayerActionSpawn  Kind = 12
)

var kindNames = map[Kind]string{
	KindActorSpawned:       "actor_spawned",
	KindActorDied:          "actor_died",
	KindAttack:             "attack",
	KindHeal:               "heal",
	KindLoot:               "loot",
	KindSetTarget:          "set_target",
	KindEnterGame:          "enter_game",
	KindDeltaState:         "delta_state",
	KindClientConnected:    "client_connected",
	KindClientDisconnected: "client_disconnected",
	KindClientEvent:        "client_event",
	KindPlayerActionSpawn:  "player_action_spawn",
}

// String имя вида события (используется в логах, метриках и темах NATS)
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind_%d", uint8(k))
}

// AllKinds все известные виды событий в порядке номеров
func AllKinds() []Kind {
	return []Kind{
		KindActorSpawned, KindActorDied, KindAttack, KindHeal, KindLoot,
		KindSetTarget, KindEnterGame, KindDeltaState, KindClientConnected,
		KindClientDisconnected, KindClientEvent, KindPlayerActionSpawn,
	}
}

// SimulationKinds события, которые порождает мир и рассылает клиентам
func SimulationKinds() []Kind {
	return []Kind{KindActorSpawned, KindActorDied, KindAttack, KindHeal, KindLoot, KindSetTarget}
}

// Event общий интерфейс закрытого набора событий.
// Реализации есть только в этом пакете.
type Event interface {
	Kind() Kind
	isEvent()
}

// NoActor идентификатор "нет актёра" (пустая цель)
const NoActor uint64 = 0

// ServerClientID идентификатор сервера в ClientDisconnected на стороне клиента
const ServerClientID uint64 = 0

// ActorState полный снимок атрибутов актёра. Структура сравнима через ==,
// на этом строится расчёт дельты.
type ActorState struct {
	ActorID     uint64  `msgpack:"id"`
	ActorType   string  `msgpack:"type"`
	IsHero      bool    `msgpack:"hero"`
	Speed       float64 `msgpack:"spd"`
	Radius      float64 `msgpack:"rad"`
	AttackRange float64 `msgpack:"arng"`
	ThreatRange float64 `msgpack:"trng"`
	MinDamage   int     `msgpack:"dmin"`
	MaxDamage   int     `msgpack:"dmax"`
	MaxHealth   int     `msgpack:"hmax"`
	Health      int     `msgpack:"hp"`
	HealthRegen int     `msgpack:"regen"`
	MissRate    float64 `msgpack:"miss"`
	LootValue   int     `msgpack:"loot"`
	X           float64 `msgpack:"x"`
	Y           float64 `msgpack:"y"`
	TargetID    uint64  `msgpack:"tgt"`
	MoveDestX   float64 `msgpack:"dx"`
	MoveDestY   float64 `msgpack:"dy"`
}

// ActorSpawned актёр появился в мире
type ActorSpawned struct {
	Actor ActorState `msgpack:"a"`
}

// ActorDied актёр погиб и удалён из мира
type ActorDied struct {
	ActorID uint64 `msgpack:"id"`
}

// Attack результат атаки; Damage == 0 означает промах
type Attack struct {
	AttackerID uint64 `msgpack:"att"`
	VictimID   uint64 `msgpack:"vic"`
	Damage     int    `msgpack:"dmg"`
}

// Heal регенерация здоровья
type Heal struct {
	ActorID uint64 `msgpack:"id"`
	Amount  int    `msgpack:"n"`
}

// Loot награда герою за убийство
type Loot struct {
	ActorID uint64 `msgpack:"id"`
	Amount  int    `msgpack:"n"`
}

// SetTarget смена цели; TargetID == NoActor снимает цель
type SetTarget struct {
	ActorID  uint64 `msgpack:"id"`
	TargetID uint64 `msgpack:"tgt"`
}

// EnterGame полное состояние мира, отправляется один раз при подключении
type EnterGame struct {
	Width  float64      `msgpack:"w"`
	Height float64      `msgpack:"h"`
	Actors []ActorState `msgpack:"actors"`
}

// DeltaState изменившиеся за тик снимки актёров
type DeltaState struct {
	Actors []ActorState `msgpack:"actors"`
}

// ClientConnected подключение клиента (сервер) или к серверу (клиент)
type ClientConnected struct {
	ClientID uint64 `msgpack:"c"`
}

// ClientDisconnected отключение; на клиенте ClientID == ServerClientID
type ClientDisconnected struct {
	ClientID uint64 `msgpack:"c"`
}

// ClientEvent событие, полученное сервером от конкретного клиента
type ClientEvent struct {
	ClientID uint64
	Event    Event
}

// PlayerActionSpawn запрос клиента на появление актёра
type PlayerActionSpawn struct {
	ActorType string  `msgpack:"type"`
	X         float64 `msgpack:"x"`
	Y         float64 `msgpack:"y"`
}

func (ActorSpawned) Kind() Kind       { return KindActorSpawned }
func (ActorDied) Kind() Kind          { return KindActorDied }
func (Attack) Kind() Kind             { return KindAttack }
func (Heal) Kind() Kind               { return KindHeal }
func (Loot) Kind() Kind               { return KindLoot }
func (SetTarget) Kind() Kind          { return KindSetTarget }
func (EnterGame) Kind() Kind          { return KindEnterGame }
func (DeltaState) Kind() Kind         { return KindDeltaState }
func (ClientConnected) Kind() Kind    { return KindClientConnected }
func (ClientDisconnected) Kind() Kind { return KindClientDisconnected }
func (ClientEvent) Kind() Kind        { return KindClientEvent }
func (PlayerActionSpawn) Kind() Kind  { return KindPlayerActionSpawn }

func (ActorSpawned) isEvent()       {}
func (ActorDied) isEvent()          {}
func (Attack) isEvent()             {}
func (Heal) isEvent()               {}
func (Loot) isEvent()               {}
func (SetTarget) isEvent()          {}
func (EnterGame) isEvent()          {}
func (DeltaState) isEvent()         {}
func (ClientConnected) isEvent()    {}
func (ClientDisconnected) isEvent() {}
func (ClientEvent) isEvent()        {}
func (PlayerActionSpawn) isEvent()  {}
