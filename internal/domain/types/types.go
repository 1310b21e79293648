// Package types contains common types used across the application
package types

// Tensor is a dense float64 array in C (row-major) order.
type Tensor struct {
	Shape []int
	Data  []float64
}

// Len returns the size of the leading dimension.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return t.Shape[0]
}

// Stride returns the number of elements per leading-dimension entry.
func (t Tensor) Stride() int {
	n := 1
	for _, d := range t.Shape[1:] {
		n *= d
	}
	return n
}

// Row returns the slice backing entry i of the leading dimension.
func (t Tensor) Row(i int) []float64 {
	s := t.Stride()
	return t.Data[i*s : (i+1)*s]
}

// Reduction selects how a window is summarised.
type Reduction string

// Supported reductions.
const (
	ReductionRaw     Reduction = "raw"      // N x W x F
	ReductionMean    Reduction = "mean"     // N x F
	ReductionMeanStd Reduction = "mean_std" // N x 2F
)

// Valid reports whether r is a supported reduction.
func (r Reduction) Valid() bool {
	switch r {
	case ReductionRaw, ReductionMean, ReductionMeanStd:
		return true
	}
	return false
}
