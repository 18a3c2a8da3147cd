package world

import "math"

type Vector struct {
	X, Y float64
}

func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector) Scale(f float64) Vector {
	return Vector{X: v.X * f, Y: v.Y * f}
}

func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vector) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vector) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Rotate turns v counter-clockwise by theta radians in a y-up frame.
func (v Vector) Rotate(theta float64) Vector {
	sin, cos := math.Sincos(theta)
	return Vector{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// ClampLen shortens v to at most max.
func (v Vector) ClampLen(max float64) Vector {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

// Angle is the unsigned angle between v and o in [0, π].
func (v Vector) Angle(o Vector) float64 {
	l := v.Len() * o.Len()
	if l == 0 {
		return 0
	}
	c := v.Dot(o) / l
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

func (v Vector) ToTileCoordinates() (int64, int64) {
	return int64(math.Floor(v.X / TileSize)), int64(math.Floor(v.Y / TileSize))
}
