package vec

// Rect прямоугольник в мировых координатах: левый верхний угол + размер
type Rect struct {
	X, Y, W, H float64
}

// Left, Top, Right, Bottom возвращают границы прямоугольника
func (r Rect) Left() float64   { return r.X }
func (r Rect) Top() float64    { return r.Y }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Area площадь прямоугольника
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Inflate расширяет (или сжимает при отрицательных dx/dy) прямоугольник
// вокруг центра: ширина меняется на dx, высота на dy.
func (r Rect) Inflate(dx, dy float64) Rect {
	return Rect{X: r.X - dx/2, Y: r.Y - dy/2, W: r.W + dx, H: r.H + dy}
}

// Contains проверяет попадание точки. Правая и нижняя границы не включаются.
func (r Rect) Contains(p Vec2Float) bool {
	return p.X >= r.Left() && p.X < r.Right() && p.Y >= r.Top() && p.Y < r.Bottom()
}

// Clamp возвращает ближайшую к p точку внутри прямоугольника
func (r Rect) Clamp(p Vec2Float) Vec2Float {
	if p.X < r.Left() {
		p.X = r.Left()
	} else if p.X > r.Right() {
		p.X = r.Right()
	}
	if p.Y < r.Top() {
		p.Y = r.Top()
	} else if p.Y > r.Bottom() {
		p.Y = r.Bottom()
	}
	return p
}
