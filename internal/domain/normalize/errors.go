package normalize

import "errors"

// Sentinel kinds for normalisation errors.
var (
	ErrInsufficientBaseline = errors.New("insufficient baseline frames")
)
