// Package derive turns raw per-frame extractor columns into the run's
// feature channels.
package derive

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/facewin/internal/domain/model"
)

// Default derivation configuration constants.
const (
	defaultConfidenceThreshold = 0.75
)

// DefaultChannels is the canonical channel set.
var DefaultChannels = []string{
	ColGazeX, ColGazeY, ChannelEAR, ColPoseRx, ColPoseRy, ColPoseRz, ChannelPupilScale,
}

// DefaultPoseAxes is the canonical three-axis head pose.
var DefaultPoseAxes = []string{ColPoseRx, ColPoseRy, ColPoseRz}

// Table is a raw per-recording frame table.
type Table interface {
	Len() int
	Has(column string) bool
	Row(i int) Row
}

// Report summarises what happened to one recording's frames.
type Report struct {
	FramesIn      int
	FramesKept    int
	LowConfidence int
	Malformed     int // unparsable frame, timestamp or confidence cell
	NonMonotonic  int // frame index not greater than the previous kept frame
	// Fallbacks counts frames per channel served by a non-primary source.
	Fallbacks map[string]int
	// Sentinels counts frames per channel where no source was available.
	Sentinels map[string]int
}

// Deriver computes a Recording from a raw table.
type Deriver struct {
	channels  []string
	threshold float64
	poseAxes  []string
	metrics   []Metric
}

// NewDeriver creates a deriver. It fails with ErrUnknownChannel when a
// configured channel has no derivation.
func NewDeriver(opts ...Option) (*Deriver, error) {
	d := &Deriver{
		channels:  append([]string(nil), DefaultChannels...),
		threshold: defaultConfidenceThreshold,
		poseAxes:  append([]string(nil), DefaultPoseAxes...),
	}

	// Apply all options
	for _, opt := range opts {
		opt(d)
	}

	d.metrics = make([]Metric, len(d.channels))
	for i, ch := range d.channels {
		m, ok := Lookup(ch, d.poseAxes)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
		}
		d.metrics[i] = m
	}
	return d, nil
}

// Schema returns the ordered channel set produced by Derive.
func (d *Deriver) Schema() model.Schema { return model.Schema(append([]string(nil), d.channels...)) }

// Threshold returns the confidence threshold.
func (d *Deriver) Threshold() float64 { return d.threshold }

// Derive builds the recording for key from a raw table. Missing metric
// columns never fail; only absent frame/timestamp/confidence columns do.
func (d *Deriver) Derive(ctx context.Context, key model.Key, source string, t Table) (model.Recording, Report, error) {
	rep := Report{
		FramesIn:  t.Len(),
		Fallbacks: map[string]int{},
		Sentinels: map[string]int{},
	}
	for _, col := range []string{ColFrame, ColTimestamp, ColConfidence} {
		if !t.Has(col) {
			return model.Recording{}, rep, fmt.Errorf("%s: %w: %q", source, ErrMissingColumn, col)
		}
	}

	rec := model.Recording{Key: key, Source: source, Schema: d.Schema()}
	last := math.MinInt
	for i := 0; i < t.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return model.Recording{}, rep, fmt.Errorf("context cancelled: %w", err)
			}
		}
		row := t.Row(i)

		conf, ok := row.Float(ColConfidence)
		if !ok {
			rep.Malformed++
			continue
		}
		if conf < d.threshold {
			rep.LowConfidence++
			continue
		}
		idx, ok1 := row.Float(ColFrame)
		ts, ok2 := row.Float(ColTimestamp)
		if !ok1 || !ok2 {
			rep.Malformed++
			continue
		}
		if int(idx) <= last {
			rep.NonMonotonic++
			continue
		}
		last = int(idx)

		f := model.Frame{
			Subject:    key.Subject,
			Condition:  key.Condition,
			Index:      int(idx),
			Timestamp:  ts,
			Confidence: conf,
			Values:     make([]float64, len(d.metrics)),
		}
		for j, m := range d.metrics {
			v, used := m.Resolve(row)
			switch {
			case used < 0:
				rep.Sentinels[m.Channel]++
			case used > 0:
				rep.Fallbacks[m.Channel]++
			}
			f.Values[j] = v
		}
		rec.Frames = append(rec.Frames, f)
	}
	rep.FramesKept = len(rec.Frames)
	return rec, rep, nil
}
