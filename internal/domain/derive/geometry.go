package derive

import "math"

// Point is a 2D image-plane landmark.
type Point struct{ X, Y float64 }

// Dist returns the Euclidean distance between p and q.
func Dist(p, q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Eye holds six contour landmarks: p0 and p3 are the horizontal corners,
// {p1,p2} the upper lid and {p5,p4} the matching lower lid points.
type Eye [6]Point

// AspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|).
// ok is false when the eye has zero width.
func (e Eye) AspectRatio() (float64, bool) {
	width := Dist(e[0], e[3])
	if width == 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return 0, false
	}
	return (Dist(e[1], e[5]) + Dist(e[2], e[4])) / (2 * width), true
}

// Norm returns the Euclidean norm of v.
func Norm(v ...float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// Polar returns the radius and angle (radians, atan2 convention) of (x, y).
func Polar(x, y float64) (r, theta float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}
