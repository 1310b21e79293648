package window

import "errors"

// Sentinel kinds for windowing errors.
var (
	ErrTooShort         = errors.New("sequence shorter than window")
	ErrInvalidGeometry  = errors.New("invalid window geometry")
	ErrInvalidReduction = errors.New("invalid reduction")
)
