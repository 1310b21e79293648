package derive

import (
	"fmt"
	"strings"
)

// Row exposes the raw columns of one input frame. Float reports false when
// the column is absent or the cell is empty or not a finite number.
type Row interface {
	Float(column string) (float64, bool)
}

// Source produces one channel value from a raw row.
type Source interface {
	Name() string
	Eval(r Row) (float64, bool)
}

// Column passes a raw column through unchanged.
type Column string

// Name implements Source.
func (c Column) Name() string { return string(c) }

// Eval implements Source.
func (c Column) Eval(r Row) (float64, bool) { return r.Float(string(c)) }

// PointColumns names the x and y columns of one landmark.
type PointColumns struct{ X, Y string }

// Landmark builds PointColumns for "<prefix>x_<n>" / "<prefix>y_<n>" headers.
func Landmark(prefix string, n int) PointColumns {
	return PointColumns{X: fmt.Sprintf("%sx_%d", prefix, n), Y: fmt.Sprintf("%sy_%d", prefix, n)}
}

func (p PointColumns) read(r Row) (Point, bool) {
	x, ok := r.Float(p.X)
	if !ok {
		return Point{}, false
	}
	y, ok := r.Float(p.Y)
	if !ok {
		return Point{}, false
	}
	return Point{X: x, Y: y}, true
}

// EyeColumns is the column layout of one eye in canonical p0..p5 order.
type EyeColumns [6]PointColumns

func (e EyeColumns) read(r Row) (Eye, bool) {
	var eye Eye
	for i, pc := range e {
		p, ok := pc.read(r)
		if !ok {
			return Eye{}, false
		}
		eye[i] = p
	}
	return eye, true
}

// EyeLayout builds EyeColumns from landmark numbers given in p0..p5 order.
func EyeLayout(prefix string, n [6]int) EyeColumns {
	var out EyeColumns
	for i, v := range n {
		out[i] = Landmark(prefix, v)
	}
	return out
}

// AspectRatio averages the left and right eye aspect ratios.
type AspectRatio struct {
	Label       string
	Left, Right EyeColumns
}

// Name implements Source.
func (a AspectRatio) Name() string { return a.Label }

// Eval implements Source.
func (a AspectRatio) Eval(r Row) (float64, bool) {
	l, ok := a.Left.read(r)
	if !ok {
		return 0, false
	}
	rt, ok := a.Right.read(r)
	if !ok {
		return 0, false
	}
	le, ok := l.AspectRatio()
	if !ok {
		return 0, false
	}
	re, ok := rt.AspectRatio()
	if !ok {
		return 0, false
	}
	return (le + re) / 2, true
}

// Distance averages the lengths of landmark pairs, e.g. one pupil diameter
// per eye.
type Distance struct {
	Label string
	Pairs [][2]PointColumns
}

// Name implements Source.
func (d Distance) Name() string { return d.Label }

// Eval implements Source.
func (d Distance) Eval(r Row) (float64, bool) {
	if len(d.Pairs) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, pair := range d.Pairs {
		a, ok := pair[0].read(r)
		if !ok {
			return 0, false
		}
		b, ok := pair[1].read(r)
		if !ok {
			return 0, false
		}
		sum += Dist(a, b)
	}
	return sum / float64(len(d.Pairs)), true
}

// Magnitude is the Euclidean norm over a set of columns.
type Magnitude []string

// Name implements Source.
func (m Magnitude) Name() string { return "norm(" + strings.Join(m, ",") + ")" }

// Eval implements Source.
func (m Magnitude) Eval(r Row) (float64, bool) {
	if len(m) == 0 {
		return 0, false
	}
	v := make([]float64, len(m))
	for i, c := range m {
		x, ok := r.Float(c)
		if !ok {
			return 0, false
		}
		v[i] = x
	}
	return Norm(v...), true
}

// PolarPart selects the radius or angle of a polar re-projection.
type PolarPart int

// Polar components.
const (
	Radius PolarPart = iota
	Angle
)

// PolarOf re-projects two columns into polar coordinates.
type PolarOf struct {
	X, Y string
	Part PolarPart
}

// Name implements Source.
func (p PolarOf) Name() string {
	if p.Part == Angle {
		return "theta(" + p.X + "," + p.Y + ")"
	}
	return "r(" + p.X + "," + p.Y + ")"
}

// Eval implements Source.
func (p PolarOf) Eval(r Row) (float64, bool) {
	x, ok := r.Float(p.X)
	if !ok {
		return 0, false
	}
	y, ok := r.Float(p.Y)
	if !ok {
		return 0, false
	}
	rad, theta := Polar(x, y)
	if p.Part == Angle {
		return theta, true
	}
	return rad, true
}

// Metric derives one channel from a prioritised list of sources. The first
// source that yields a value wins; if none does the channel takes Sentinel.
type Metric struct {
	Channel  string
	Sources  []Source
	Sentinel float64
}

// Resolve evaluates the sources in order. used is the index of the source
// that produced v, or -1 when the sentinel was substituted.
func (m Metric) Resolve(r Row) (v float64, used int) {
	for i, s := range m.Sources {
		if x, ok := s.Eval(r); ok {
			return x, i
		}
	}
	return m.Sentinel, -1
}
