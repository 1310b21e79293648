// Package normalize rescales each subject's frames against a reference drawn
// from the subject's own neutral-condition frames.
package normalize

import (
	"fmt"
	"math"

	"github.com/okian/facewin/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Normalisation constants.
const (
	minBaselineFrames = 3
	referenceFraction = 3 // reference = first floor(n/3) baseline frames
	defaultBaseline   = "0"
	unitDivisor       = 1.0
)

// Stats is the per-subject reference used for rescaling.
type Stats struct {
	Subject        string
	BaselineFrames int
	ReferenceSize  int
	Reference      []int // frame indices of the reference rows
	Mean           []float64
	Std            []float64 // zero or undefined deviations are stored as 1
}

// Normalizer applies per-subject z-scoring.
type Normalizer struct {
	baseline       string
	prestandardize bool
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{baseline: defaultBaseline}

	// Apply all options
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Baseline returns the neutral condition token.
func (n *Normalizer) Baseline() string { return n.baseline }

// ReferenceSize returns max(1, floor(baselineFrames/3)).
func ReferenceSize(baselineFrames int) int {
	return max(1, baselineFrames/referenceFraction)
}

// Normalize rescales every frame of s with the mean and deviation of the
// first ReferenceSize baseline frames, then removes those reference frames.
// Statistics come from the reference before anything is dropped. Subjects
// with fewer than three baseline frames fail with ErrInsufficientBaseline.
func (n *Normalizer) Normalize(s model.Subject) (model.Subject, Stats, error) {
	st := Stats{Subject: s.ID}
	if n.prestandardize {
		s = standardizeRecordings(s)
	}

	base, ok := s.Recording(n.baseline)
	st.BaselineFrames = base.Len()
	if !ok || base.Len() < minBaselineFrames {
		return model.Subject{}, st, fmt.Errorf("%w: subject %q has %d frames in condition %q",
			ErrInsufficientBaseline, s.ID, base.Len(), n.baseline)
	}

	st.ReferenceSize = ReferenceSize(base.Len())
	ref := base.Frames[:st.ReferenceSize]
	st.Reference = make([]int, len(ref))
	for i, f := range ref {
		st.Reference[i] = f.Index
	}
	st.Mean, st.Std = columnStats(ref, len(s.Schema))

	out := model.Subject{ID: s.ID, Schema: s.Schema, Recordings: make([]model.Recording, 0, len(s.Recordings))}
	for _, r := range s.Recordings {
		scaled := r
		scaled.Frames = make([]model.Frame, len(r.Frames))
		for i, f := range r.Frames {
			scaled.Frames[i] = apply(f, st.Mean, st.Std)
		}
		if r.Key.Condition == n.baseline {
			scaled.Frames = dropReference(scaled.Frames, st.Reference)
		}
		out.Recordings = append(out.Recordings, scaled)
	}
	return out, st, nil
}

// apply returns a rescaled copy of f.
func apply(f model.Frame, mean, std []float64) model.Frame {
	out := f.Clone()
	for i := range out.Values {
		out.Values[i] = (out.Values[i] - mean[i]) / std[i]
	}
	return out
}

// dropReference removes the frames whose indices are listed in ref.
func dropReference(frames []model.Frame, ref []int) []model.Frame {
	skip := make(map[int]struct{}, len(ref))
	for _, idx := range ref {
		skip[idx] = struct{}{}
	}
	out := frames[:0]
	for _, f := range frames {
		if _, ok := skip[f.Index]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// columnStats returns the per-channel mean and sample standard deviation.
func columnStats(frames []model.Frame, width int) (mean, std []float64) {
	mean = make([]float64, width)
	std = make([]float64, width)
	col := make([]float64, len(frames))
	for c := 0; c < width; c++ {
		for i, f := range frames {
			col[i] = f.Values[c]
		}
		mean[c], std[c] = stat.MeanStdDev(col, nil)
		std[c] = SafeDivisor(std[c])
	}
	return mean, std
}

// SafeDivisor maps zero, NaN and infinite deviations to 1.
func SafeDivisor(sd float64) float64 {
	if sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
		return unitDivisor
	}
	return sd
}

// standardizeRecordings z-scores each recording against its own statistics.
func standardizeRecordings(s model.Subject) model.Subject {
	out := s
	out.Recordings = make([]model.Recording, len(s.Recordings))
	for i, r := range s.Recordings {
		scaled := r
		mean, std := columnStats(r.Frames, len(s.Schema))
		scaled.Frames = make([]model.Frame, len(r.Frames))
		for j, f := range r.Frames {
			scaled.Frames[j] = apply(f, mean, std)
		}
		out.Recordings[i] = scaled
	}
	return out
}
