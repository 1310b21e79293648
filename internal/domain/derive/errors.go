package derive

import "errors"

// Sentinel kinds for derivation errors.
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrMissingColumn  = errors.New("missing required column")
)
