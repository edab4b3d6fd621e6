package constraint

import "math"

// Rect is an axis-aligned rectangle in normalized image coordinates. The unit
// square spans (0,0) top-left to (1,1) bottom-right.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the rectangle's right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the rectangle's bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Area returns the rectangle's area.
func (r Rect) Area() float64 { return r.Width * r.Height }

const geomEpsilon = 1e-9

// InUnitSquare reports whether the rect lies entirely inside [0,1]x[0,1]
// with positive extent.
func (r Rect) InUnitSquare() bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return r.X >= -geomEpsilon &&
		r.Y >= -geomEpsilon &&
		r.Right() <= 1+geomEpsilon &&
		r.Bottom() <= 1+geomEpsilon
}

// Intersects reports whether the rectangles share interior area. Touching
// edges do not count as an intersection.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.Right()-geomEpsilon &&
		other.X < r.Right()-geomEpsilon &&
		r.Y < other.Bottom()-geomEpsilon &&
		other.Y < r.Bottom()-geomEpsilon
}

// Contains reports whether other lies entirely within r. Shared edges count
// as contained.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X-geomEpsilon &&
		other.Y >= r.Y-geomEpsilon &&
		other.Right() <= r.Right()+geomEpsilon &&
		other.Bottom() <= r.Bottom()+geomEpsilon
}

// Snap quantizes the rect's origin and extent to multiples of step, clamping
// the result back into the unit square. A non-positive step returns the rect
// unchanged.
func (r Rect) Snap(step float64) Rect {
	if step <= 0 {
		return r
	}
	snapped := Rect{
		X:      snapValue(r.X, step),
		Y:      snapValue(r.Y, step),
		Width:  snapValue(r.Width, step),
		Height: snapValue(r.Height, step),
	}
	// a rect narrower than the grid keeps one cell
	if snapped.Width < step {
		snapped.Width = step
	}
	if snapped.Height < step {
		snapped.Height = step
	}
	if snapped.Right() > 1 {
		snapped.X = 1 - snapped.Width
	}
	if snapped.Bottom() > 1 {
		snapped.Y = 1 - snapped.Height
	}
	if snapped.X < 0 {
		snapped.X = 0
	}
	if snapped.Y < 0 {
		snapped.Y = 0
	}
	return snapped
}

func snapValue(v, step float64) float64 {
	return math.Round(v/step) * step
}
