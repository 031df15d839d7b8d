package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_Basics(t *testing.T) {
	a := V(3, 4)
	assert.Equal(t, 5.0, a.Length())
	assert.Equal(t, V(4, 6), a.Add(V(1, 2)))
	assert.Equal(t, V(2, 2), a.Sub(V(1, 2)))
	assert.Equal(t, V(6, 8), a.Mul(2))
	assert.InDelta(t, 1.0, a.Normalized().Length(), 1e-9)
	assert.Equal(t, Vec2Float{}, Vec2Float{}.Normalized(), "нулевой вектор остаётся нулевым")

	n, l := a.NormalizedWithLength()
	assert.Equal(t, 5.0, l)
	assert.InDelta(t, 0.6, n.X, 1e-9)
	assert.Equal(t, 5.0, V(0, 0).DistanceTo(a))
}

func TestRect_InflateContainsClamp(t *testing.T) {
	bounds := Rect{X: 0, Y: 0, W: 900, H: 600}
	inner := bounds.Inflate(-300, -200)
	assert.Equal(t, Rect{X: 150, Y: 100, W: 600, H: 400}, inner)

	assert.True(t, bounds.Contains(V(0, 0)))
	assert.False(t, bounds.Contains(V(900, 10)), "правая граница не включается")
	assert.False(t, bounds.Contains(V(-1, 10)))

	assert.Equal(t, V(0, 600), bounds.Clamp(V(-5, 700)))
	assert.Equal(t, 540000.0, bounds.Area())
}
