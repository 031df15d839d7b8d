package events

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// CodecVersion версия сериализации каталога событий
const CodecVersion uint8 = 1

var (
	// ErrUnknownKind тег события не входит в каталог
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrUnsupportedVersion версия конверта не поддерживается
	ErrUnsupportedVersion = errors.New("unsupported event codec version")
	// ErrNilEvent попытка сериализовать nil
	ErrNilEvent = errors.New("nil event")
)

// envelope версионированный конверт вокруг полезной нагрузки события
type envelope struct {
	Version uint8              `msgpack:"v"`
	Kind    Kind               `msgpack:"k"`
	Payload msgpack.RawMessage `msgpack:"p"`
}

// Encode сериализует событие в msgpack-конверт
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, ErrNilEvent
	}
	payload, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации события %s: %w", e.Kind(), err)
	}
	data, err := msgpack.Marshal(&envelope{Version: CodecVersion, Kind: e.Kind(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации конверта %s: %w", e.Kind(), err)
	}
	return data, nil
}

// Decode восстанавливает событие из msgpack-конверта
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конверта: %w", err)
	}
	if env.Version != CodecVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}

	switch env.Kind {
	case KindActorSpawned:
		return decodeAs[ActorSpawned](env.Payload)
	case KindActorDied:
		return decodeAs[ActorDied](env.Payload)
	case KindAttack:
		return decodeAs[Attack](env.Payload)
	case KindHeal:
		return decodeAs[Heal](env.Payload)
	case KindLoot:
		return decodeAs[Loot](env.Payload)
	case KindSetTarget:
		return decodeAs[SetTarget](env.Payload)
	case KindEnterGame:
		return decodeAs[EnterGame](env.Payload)
	case KindDeltaState:
		return decodeAs[DeltaState](env.Payload)
	case KindClientConnected:
		return decodeAs[ClientConnected](env.Payload)
	case KindClientDisconnected:
		return decodeAs[ClientDisconnected](env.Payload)
	case KindClientEvent:
		return decodeAs[ClientEvent](env.Payload)
	case KindPlayerActionSpawn:
		return decodeAs[PlayerActionSpawn](env.Payload)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(env.Kind))
	}
}

// decodeAs разбирает полезную нагрузку в конкретный тип события
func decodeAs[T Event](payload []byte) (Event, error) {
	var v T
	if err := msgpack.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("ошибка десериализации %s: %w", v.Kind(), err)
	}
	return v, nil
}

// clientEventWire провод для ClientEvent: вложенное событие хранится
// как отдельный конверт
type clientEventWire struct {
	ClientID uint64             `msgpack:"c"`
	Inner    msgpack.RawMessage `msgpack:"e"`
}

// MarshalMsgpack реализует msgpack.Marshaler
func (e ClientEvent) MarshalMsgpack() ([]byte, error) {
	inner, err := Encode(e.Event)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&clientEventWire{ClientID: e.ClientID, Inner: inner})
}

// UnmarshalMsgpack реализует msgpack.Unmarshaler
func (e *ClientEvent) UnmarshalMsgpack(data []byte) error {
	var wire clientEventWire
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return err
	}
	inner, err := Decode(wire.Inner)
	if err != nil {
		return err
	}
	e.ClientID = wire.ClientID
	e.Event = inner
	return nil
}
