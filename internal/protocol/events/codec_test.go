package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func sampleState(id uint64) ActorState {
	return ActorState{
		ActorID: id, ActorType: "creep", Speed: 30, Radius: 8,
		AttackRange: 12, ThreatRange: 18, MinDamage: 1, MaxDamage: 3,
		MaxHealth: 20, Health: 17, HealthRegen: 1, MissRate: 0.1,
		LootValue: 12, X: 300.5, Y: 200.25, TargetID: 7, MoveDestX: 310, MoveDestY: 190,
	}
}

// Каждый вид из каталога должен проходить через кодек без потерь
func TestCodec_RoundTripAllKinds(t *testing.T) {
	samples := []Event{
		ActorSpawned{Actor: sampleState(101)},
		ActorDied{ActorID: 101},
		Attack{AttackerID: 101, VictimID: 102, Damage: 0},
		Heal{ActorID: 102, Amount: 3},
		Loot{ActorID: 101, Amount: 15},
		SetTarget{ActorID: 101, TargetID: NoActor},
		EnterGame{Width: 640, Height: 480, Actors: []ActorState{sampleState(101), sampleState(102)}},
		DeltaState{Actors: []ActorState{sampleState(103)}},
		ClientConnected{ClientID: 1},
		ClientDisconnected{ClientID: ServerClientID},
		ClientEvent{ClientID: 4, Event: PlayerActionSpawn{ActorType: "hero", X: 1, Y: 2}},
		PlayerActionSpawn{ActorType: "creep", X: 50, Y: 60},
	}

	seen := make(map[Kind]bool)
	for _, e := range samples {
		data, err := Encode(e)
		require.NoError(t, err, "сериализация %s", e.Kind())

		decoded, err := Decode(data)
		require.NoError(t, err, "десериализация %s", e.Kind())
		assert.Equal(t, e, decoded)
		seen[e.Kind()] = true
	}

	for _, k := range AllKinds() {
		assert.True(t, seen[k], "вид %s не покрыт тестом", k)
	}
}

func TestCodec_NestedClientEventKeepsInner(t *testing.T) {
	inner := PlayerActionSpawn{ActorType: "hero", X: 10, Y: 20}
	data, err := Encode(ClientEvent{ClientID: 9, Event: inner})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	ce, ok := decoded.(ClientEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(9), ce.ClientID)
	assert.Equal(t, inner, ce.Event)
}

func TestCodec_Errors(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, ErrNilEvent)

	_, err = Encode(ClientEvent{ClientID: 1})
	assert.ErrorIs(t, err, ErrNilEvent)

	unknown, err := msgpack.Marshal(&envelope{Version: CodecVersion, Kind: Kind(200), Payload: []byte{0x80}})
	require.NoError(t, err)
	_, err = Decode(unknown)
	assert.ErrorIs(t, err, ErrUnknownKind)

	future, err := msgpack.Marshal(&envelope{Version: CodecVersion + 1, Kind: KindHeal, Payload: []byte{0x80}})
	require.NoError(t, err)
	_, err = Decode(future)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "attack", KindAttack.String())
	assert.Equal(t, "kind_99", Kind(99).String())
	assert.Len(t, AllKinds(), len(kindNames))
}
