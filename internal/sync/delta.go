// Package sync вычисляет дельту состояния актёров между тиками.
package sync

import (
	"fmt"
	"strings"

	"github.com/annel0/mmo-manager/internal/protocol/events"
)

// Strategy способ вычисления дельты
type Strategy string

const (
	// StrategyIncremental только новые и изменившиеся актёры
	StrategyIncremental Strategy = "incremental"
	// StrategyFullResend все живые актёры каждый тик
	StrategyFullResend Strategy = "full"
)

// ParseStrategy разбирает имя стратегии из конфигурации. Пустая строка
// означает incremental.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyIncremental:
		return StrategyIncremental, nil
	case StrategyFullResend, "full_resend":
		return StrategyFullResend, nil
	default:
		return "", fmt.Errorf("unknown delta strategy %q", s)
	}
}

// DeltaTracker хранит базовую линию прошлого тика и выдаёт снимки,
// которые нужно разослать.
type DeltaTracker interface {
	// Diff возвращает снимки для рассылки и делает states новой базовой линией
	Diff(states []events.ActorState) []events.ActorState
	// Reset забывает базовую линию: следующий Diff вернёт всех
	Reset()
}

// NewTracker создаёт трекер для стратегии
func NewTracker(s Strategy) DeltaTracker {
	if s == StrategyFullResend {
		return &fullResendTracker{}
	}
	return NewIncrementalTracker()
}

type fullResendTracker struct{}

func (t *fullResendTracker) Diff(states []events.ActorState) []events.ActorState {
	out := make([]events.ActorState, len(states))
	copy(out, states)
	return out
}

func (t *fullResendTracker) Reset() {}

// IncrementalTracker сравнивает снимки поатрибутно с прошлым тиком
type IncrementalTracker struct {
	prev map[uint64]events.ActorState
}

// NewIncrementalTracker создаёт трекер с пустой базовой линией
func NewIncrementalTracker() *IncrementalTracker {
	return &IncrementalTracker{prev: make(map[uint64]events.ActorState)}
}

// Diff актёр попадает в дельту, если его не было в прошлом тике
// или отличается хотя бы один атрибут. Исчезнувшие актёры выпадают
// из базовой линии молча: их смерть передаётся событием ActorDied.
func (t *IncrementalTracker) Diff(states []events.ActorState) []events.ActorState {
	var out []events.ActorState
	next := make(map[uint64]events.ActorState, len(states))
	for _, s := range states {
		if old, ok := t.prev[s.ActorID]; !ok || old != s {
			out = append(out, s)
		}
		next[s.ActorID] = s
	}
	t.prev = next
	return out
}

// Reset очищает базовую линию
func (t *IncrementalTracker) Reset() {
	t.prev = make(map[uint64]events.ActorState)
}

// Baseline количество актёров в базовой линии
func (t *IncrementalTracker) Baseline() int { return len(t.prev) }
