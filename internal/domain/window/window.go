// Package window slides a fixed-size window over each (subject, condition)
// sequence and reduces every window to a fixed-width feature vector.
package window

import (
	"fmt"

	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/internal/domain/types"
	"gonum.org/v1/gonum/stat"
)

// Default windowing configuration constants.
const (
	defaultSize   = 150
	defaultStride = 75
)

// Block is the windowed output of one (subject, condition) group.
type Block struct {
	Key    model.Key
	Label  int
	Starts []int        // frame offsets of each window within the sequence
	Tensor types.Tensor // N x F, N x 2F or N x W x F depending on reduction
	Labels []int        // N copies of Label
	// Means holds the per-window channel means (N x F) whatever the
	// reduction; feature selection tests on these.
	Means [][]float64
}

// N returns the number of windows.
func (b Block) N() int { return len(b.Starts) }

// Windower cuts sequences into windows.
type Windower struct {
	size      int
	stride    int
	reduction types.Reduction
	labels    model.LabelMap
}

// New creates a Windower. Stride must satisfy 1 <= stride <= size.
func New(opts ...Option) (*Windower, error) {
	w := &Windower{
		size:      defaultSize,
		stride:    defaultStride,
		reduction: types.ReductionMeanStd,
		labels:    model.LabelMap{"0": 0, "5": 1, "10": 2},
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	if w.size < 1 || w.stride < 1 || w.stride > w.size {
		return nil, fmt.Errorf("%w: size=%d stride=%d", ErrInvalidGeometry, w.size, w.stride)
	}
	if !w.reduction.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReduction, w.reduction)
	}
	return w, nil
}

// Size returns the window length W.
func (w *Windower) Size() int { return w.size }

// Stride returns the window stride S.
func (w *Windower) Stride() int { return w.stride }

// Reduction returns the configured reduction.
func (w *Windower) Reduction() types.Reduction { return w.reduction }

// Count returns floor((length-size)/stride)+1 when length >= size, else 0.
func Count(length, size, stride int) int {
	if size < 1 || stride < 1 || length < size {
		return 0
	}
	return (length-size)/stride + 1
}

// Starts returns the start offset of every window.
func Starts(length, size, stride int) []int {
	n := Count(length, size, stride)
	out := make([]int, n)
	for i := range out {
		out[i] = i * stride
	}
	return out
}

// Width returns the per-window feature width for a schema of f channels.
func (w *Windower) Width(f int) int {
	if w.reduction == types.ReductionMeanStd {
		return 2 * f
	}
	return f
}

// FeatureNames names the columns of the last tensor dimension.
func (w *Windower) FeatureNames(schema model.Schema) []string {
	switch w.reduction {
	case types.ReductionMean:
		out := make([]string, len(schema))
		for i, c := range schema {
			out[i] = c + "_mean"
		}
		return out
	case types.ReductionMeanStd:
		out := make([]string, 0, 2*len(schema))
		for _, c := range schema {
			out = append(out, c+"_mean")
		}
		for _, c := range schema {
			out = append(out, c+"_std")
		}
		return out
	}
	return append([]string(nil), schema...)
}

// Window cuts rec into windows. A sequence shorter than the window size
// yields ErrTooShort and an empty block.
func (w *Windower) Window(rec model.Recording) (Block, error) {
	label, err := w.labels.Label(rec.Key.Condition)
	if err != nil {
		return Block{}, err
	}
	b := Block{Key: rec.Key, Label: label}
	f := rec.Schema.Width()

	b.Starts = Starts(rec.Len(), w.size, w.stride)
	if len(b.Starts) == 0 {
		return b, fmt.Errorf("%w: %s has %d frames, window is %d", ErrTooShort, rec.Key, rec.Len(), w.size)
	}

	n := len(b.Starts)
	if w.reduction == types.ReductionRaw {
		b.Tensor = types.Tensor{Shape: []int{n, w.size, f}, Data: make([]float64, 0, n*w.size*f)}
	} else {
		width := w.Width(f)
		b.Tensor = types.Tensor{Shape: []int{n, width}, Data: make([]float64, 0, n*width)}
	}
	b.Labels = make([]int, n)
	b.Means = make([][]float64, n)

	col := make([]float64, w.size)
	for i, start := range b.Starts {
		frames := rec.Frames[start : start+w.size]
		means := make([]float64, f)
		stds := make([]float64, f)
		for c := 0; c < f; c++ {
			for j, fr := range frames {
				col[j] = fr.Values[c]
			}
			means[c], stds[c] = stat.PopMeanStdDev(col, nil)
		}
		b.Means[i] = means
		b.Labels[i] = label

		switch w.reduction {
		case types.ReductionRaw:
			for _, fr := range frames {
				b.Tensor.Data = append(b.Tensor.Data, fr.Values...)
			}
		case types.ReductionMean:
			b.Tensor.Data = append(b.Tensor.Data, means...)
		case types.ReductionMeanStd:
			b.Tensor.Data = append(b.Tensor.Data, means...)
			b.Tensor.Data = append(b.Tensor.Data, stds...)
		}
	}
	return b, nil
}

// Project keeps only the given channel positions of a block built from a
// schema of f channels. The block is copied.
func (w *Windower) Project(b Block, keep []int, f int) Block {
	out := b
	out.Means = make([][]float64, len(b.Means))
	for i, m := range b.Means {
		row := make([]float64, len(keep))
		for j, c := range keep {
			row[j] = m[c]
		}
		out.Means[i] = row
	}

	n := b.N()
	switch w.reduction {
	case types.ReductionRaw:
		data := make([]float64, 0, n*w.size*len(keep))
		for i := 0; i < n; i++ {
			win := b.Tensor.Row(i)
			for t := 0; t < w.size; t++ {
				frame := win[t*f : (t+1)*f]
				for _, c := range keep {
					data = append(data, frame[c])
				}
			}
		}
		out.Tensor = types.Tensor{Shape: []int{n, w.size, len(keep)}, Data: data}
	default:
		cols := keep
		if w.reduction == types.ReductionMeanStd {
			cols = make([]int, 0, 2*len(keep))
			cols = append(cols, keep...)
			for _, c := range keep {
				cols = append(cols, f+c)
			}
		}
		data := make([]float64, 0, n*len(cols))
		for i := 0; i < n; i++ {
			row := b.Tensor.Row(i)
			for _, c := range cols {
				data = append(data, row[c])
			}
		}
		out.Tensor = types.Tensor{Shape: []int{n, len(cols)}, Data: data}
	}
	return out
}
