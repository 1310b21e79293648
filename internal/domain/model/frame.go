// Package model contains domain models passed between pipeline stages.
package model

// Frame is one video frame after metric derivation.
// Values holds one entry per channel of the run's Schema, in Schema order.
type Frame struct {
	Subject    string  // driver identifier, e.g. "CH01_19DA666D"
	Condition  string  // experimental condition token, e.g. "0", "5", "10"
	Index      int     // frame number, strictly increasing within a recording
	Timestamp  float64 // seconds since recording start
	Confidence float64 // extractor quality score in [0,1]
	Values     []float64
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	out := f
	out.Values = append([]float64(nil), f.Values...)
	return out
}

// Recording is the ordered frame sequence for one (subject, condition) pair,
// sourced from one input file.
type Recording struct {
	Key    Key
	Source string // file name the recording was read from
	Schema Schema
	Frames []Frame
}

// Len returns the number of frames.
func (r Recording) Len() int { return len(r.Frames) }

// Column returns the values of channel i across all frames.
func (r Recording) Column(i int) []float64 {
	out := make([]float64, len(r.Frames))
	for j, f := range r.Frames {
		out[j] = f.Values[i]
	}
	return out
}
