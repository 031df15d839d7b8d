// Package scheduling содержит таймеры перезарядки и планировщик отложенных
// и периодических задач. Всё время измеряется в секундах (float64).
package scheduling

import "math/rand"

// Timer обратный отсчёт с фиксированной длительностью или случайной из [min,max].
// Все кулдауны симуляции потребляются через IsExpiredThenReset ровно один раз.
type Timer struct {
	minDuration float64
	maxDuration float64
	timeLeft    float64
	rng         *rand.Rand
}

// NewTimer создаёт таймер с фиксированной длительностью, взведённый на полный срок
func NewTimer(duration float64) *Timer {
	t := &Timer{minDuration: duration, maxDuration: duration}
	t.Reset()
	return t
}

// NewRangeTimer создаёт таймер, длительность которого при каждом сбросе
// выбирается равномерно из [min,max]
func NewRangeTimer(min, max float64, rng *rand.Rand) *Timer {
	if max < min {
		min, max = max, min
	}
	t := &Timer{minDuration: min, maxDuration: max, rng: rng}
	t.Reset()
	return t
}

// Update уменьшает оставшееся время. Возвращает true, если таймер ещё не истёк.
func (t *Timer) Update(dt float64) bool {
	t.timeLeft -= dt
	return !t.Expired()
}

// Expired истёк ли таймер
func (t *Timer) Expired() bool {
	return t.timeLeft <= 0
}

// TimeLeft оставшееся время
func (t *Timer) TimeLeft() float64 {
	return t.timeLeft
}

// Range границы длительности
func (t *Timer) Range() (float64, float64) {
	return t.minDuration, t.maxDuration
}

// Reset заново выбирает длительность из диапазона
func (t *Timer) Reset() {
	if t.maxDuration > t.minDuration && t.rng != nil {
		t.timeLeft = t.minDuration + t.rng.Float64()*(t.maxDuration-t.minDuration)
		return
	}
	t.timeLeft = t.minDuration
}

// ResetTo взводит таймер на явно заданное время
func (t *Timer) ResetTo(timeLeft float64) {
	t.timeLeft = timeLeft
}

// FastForward принудительно завершает отсчёт
func (t *Timer) FastForward() {
	t.timeLeft = 0
}

// IsExpiredThenReset если таймер истёк, сбрасывает его и возвращает true
func (t *Timer) IsExpiredThenReset() bool {
	if t.Expired() {
		t.Reset()
		return true
	}
	return false
}
