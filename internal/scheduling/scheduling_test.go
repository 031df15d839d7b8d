package scheduling

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_FiresOncePerDuration(t *testing.T) {
	timer := NewTimer(1.0)
	assert.False(t, timer.IsExpiredThenReset(), "свежий таймер не должен срабатывать")

	fired := 0
	// 10 секунд шагами по 0.125 — ожидаем ровно 10 срабатываний
	for i := 0; i < 80; i++ {
		timer.Update(0.125)
		if timer.IsExpiredThenReset() {
			fired++
			// повторный вызов без Update не срабатывает
			assert.False(t, timer.IsExpiredThenReset())
		}
	}
	assert.Equal(t, 10, fired)
}

func TestRangeTimer_ResetsIntoRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	timer := NewRangeTimer(1, 4, rng)

	for i := 0; i < 200; i++ {
		timer.FastForward()
		require.True(t, timer.IsExpiredThenReset())
		left := timer.TimeLeft()
		assert.GreaterOrEqual(t, left, 1.0)
		assert.LessOrEqual(t, left, 4.0)
	}

	lo, hi := NewRangeTimer(5, 2, rng).Range()
	assert.Equal(t, 2.0, lo, "границы должны упорядочиваться")
	assert.Equal(t, 5.0, hi)
}

func TestTimer_ResetToAndFastForward(t *testing.T) {
	timer := NewTimer(2)
	timer.ResetTo(30)
	assert.Equal(t, 30.0, timer.TimeLeft())
	assert.True(t, timer.Update(29))
	assert.False(t, timer.Update(1))
	assert.True(t, timer.Expired())

	timer.Reset()
	assert.Equal(t, 2.0, timer.TimeLeft())
	timer.FastForward()
	assert.True(t, timer.Expired())
}

func TestScheduler_OneShotAndPeriodic(t *testing.T) {
	s := NewScheduler()
	oneShot, periodic := 0, 0

	s.Post(func() { oneShot++ }, 0.5)
	s.Periodic(func() { periodic++ }, 1.0)
	assert.Equal(t, 2, s.Len())

	s.Update(0.25) // периодическая срабатывает сразу
	assert.Equal(t, 0, oneShot)
	assert.Equal(t, 1, periodic)

	for i := 0; i < 12; i++ {
		s.Update(0.25)
	}
	assert.Equal(t, 1, oneShot, "одноразовая задача выполняется ровно один раз")
	assert.Equal(t, 4, periodic)
	assert.Equal(t, 1, s.Len(), "одноразовая задача должна быть удалена")
}

func TestScheduler_AddAndCancelFromCallback(t *testing.T) {
	s := NewScheduler()
	calls := 0
	var id JobID
	id = s.Periodic(func() {
		calls++
		s.Post(func() { calls += 10 }, 0)
		s.Cancel(id)
	}, 1)

	s.Update(0.1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Len(), "добавленная из колбэка задача ждёт следующего Update")

	s.Update(0.1)
	assert.Equal(t, 11, calls)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Cancel(id))
}
