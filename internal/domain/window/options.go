package window

import (
	"github.com/okian/facewin/internal/domain/model"
	"github.com/okian/facewin/internal/domain/types"
)

// Option applies a configuration option to the Windower.
type Option func(*Windower)

// WithSize sets the window length in frames.
func WithSize(size int) Option {
	return func(w *Windower) {
		w.size = size
	}
}

// WithStride sets the offset between consecutive window starts.
// stride == size gives non-overlapping windows, 1 maximal overlap.
func WithStride(stride int) Option {
	return func(w *Windower) {
		w.stride = stride
	}
}

// WithReduction sets how each window is summarised.
func WithReduction(r types.Reduction) Option {
	return func(w *Windower) {
		if r != "" {
			w.reduction = r
		}
	}
}

// WithLabels sets the condition to label mapping.
func WithLabels(labels model.LabelMap) Option {
	return func(w *Windower) {
		if len(labels) > 0 {
			w.labels = labels
		}
	}
}
