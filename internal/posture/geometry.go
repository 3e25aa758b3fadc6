package posture

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Angle returns the unsigned angle ABC in degrees, in [0, 180].
// The raw atan2 difference can exceed 180; it is folded as 360 minus itself,
// so the reflex angle is never reported.
func Angle(a, b, c r2.Vec) float64 {
	ba := r2.Sub(a, b)
	bc := r2.Sub(c, b)

	radians := math.Atan2(bc.Y, bc.X) - math.Atan2(ba.Y, ba.X)
	deg := math.Abs(radians * 180.0 / math.Pi)
	if deg > 180.0 {
		deg = 360.0 - deg
	}
	return deg
}

// xy projects a landmark onto the image plane.
func xy(p Point) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

func midpoint(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}
