package game

import (
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-manager/internal/eventbus"
	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// Status снимок состояния сервера для HTTP API и Redis.
// Публикуется игровым циклом, читается из других горутин.
type Status struct {
	Tick      uint64              `json:"tick"`
	Width     float64             `json:"width"`
	Height    float64             `json:"height"`
	Actors    int                 `json:"actors"`
	Heroes    int                 `json:"heroes"`
	Clients   int                 `json:"clients"`
	Bus       eventbus.Stats      `json:"bus"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	States    []events.ActorState `json:"states,omitempty"`
}

// StatusBoard последний опубликованный Status
type StatusBoard struct {
	current atomic.Pointer[Status]
}

// NewStatusBoard создаёт пустую доску
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Publish заменяет текущий снимок. s после вызова не изменяется.
func (b *StatusBoard) Publish(s *Status) {
	b.current.Store(s)
}

// Current последний снимок или nil, если цикл ещё не запускался
func (b *StatusBoard) Current() *Status {
	return b.current.Load()
}
