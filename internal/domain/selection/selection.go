// Package selection keeps the channels that separate baseline windows from
// the remaining conditions.
//
// For every subject and channel the per-window channel means of the
// baseline condition are compared against those of all other conditions
// with a two-sided Welch t-test. A channel is kept when the median p-value
// across subjects is below alpha. When no channel passes, all are kept.
package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/internal/domain/window"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defaultAlpha    = 0.05
	defaultBaseline = "0"
	minGroup        = 2
)

// Result describes one selection run.
type Result struct {
	Channels []string  // input channel names
	PValues  []float64 // median p per channel, NaN when no subject was testable
	Tested   []int     // subjects contributing a p-value per channel
	Keep     []int     // kept channel positions, ascending
	Fallback bool      // true when nothing passed and all channels were kept
}

// Kept returns the names of the kept channels.
func (r Result) Kept() []string {
	out := make([]string, len(r.Keep))
	for i, c := range r.Keep {
		out[i] = r.Channels[c]
	}
	return out
}

// Selector runs the per-channel tests.
type Selector struct {
	alpha    float64
	baseline string
}

// New creates a Selector.
func New(opts ...Option) (*Selector, error) {
	s := &Selector{alpha: defaultAlpha, baseline: defaultBaseline}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.alpha > 0 && s.alpha < 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAlpha, s.alpha)
	}
	return s, nil
}

// Alpha returns the significance level.
func (s *Selector) Alpha() float64 { return s.alpha }

// Select tests every channel of schema over blocks.
func (s *Selector) Select(schema model.Schema, blocks []window.Block) Result {
	f := schema.Width()
	res := Result{
		Channels: append([]string(nil), schema...),
		PValues:  make([]float64, f),
		Tested:   make([]int, f),
	}

	type groups struct{ base, rest []window.Block }
	bySubject := make(map[string]*groups)
	var subjects []string
	for _, b := range blocks {
		g, ok := bySubject[b.Key.Subject]
		if !ok {
			g = &groups{}
			bySubject[b.Key.Subject] = g
			subjects = append(subjects, b.Key.Subject)
		}
		if b.Key.Condition == s.baseline {
			g.base = append(g.base, b)
		} else {
			g.rest = append(g.rest, b)
		}
	}
	sort.Strings(subjects)

	for c := 0; c < f; c++ {
		var ps []float64
		for _, id := range subjects {
			g := bySubject[id]
			base, rest := channel(g.base, c), channel(g.rest, c)
			if len(base) < minGroup || len(rest) < minGroup {
				continue
			}
			if _, _, p, ok := Welch(base, rest); ok {
				ps = append(ps, p)
			}
		}
		res.Tested[c] = len(ps)
		res.PValues[c] = median(ps)
		if res.PValues[c] < s.alpha {
			res.Keep = append(res.Keep, c)
		}
	}

	if len(res.Keep) == 0 {
		res.Fallback = true
		res.Keep = make([]int, f)
		for c := range res.Keep {
			res.Keep[c] = c
		}
	}
	return res
}

func channel(blocks []window.Block, c int) []float64 {
	var out []float64
	for _, b := range blocks {
		for _, m := range b.Means {
			out = append(out, m[c])
		}
	}
	return out
}

// Welch runs a two-sided unequal-variance t-test of a against b. ok is false
// when either group has fewer than two samples or both have zero variance.
func Welch(a, b []float64) (t, df, p float64, ok bool) {
	if len(a) < minGroup || len(b) < minGroup {
		return 0, 0, math.NaN(), false
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	sa, sb := va/na, vb/nb
	se := sa + sb
	if se == 0 || math.IsNaN(se) {
		return 0, 0, math.NaN(), false
	}
	t = (ma - mb) / math.Sqrt(se)
	df = se * se / (sa*sa/(na-1) + sb*sb/(nb-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.Survival(math.Abs(t))
	if p > 1 {
		p = 1
	}
	return t, df, p, true
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
