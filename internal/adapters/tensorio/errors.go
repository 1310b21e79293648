package tensorio

import "errors"

// Sentinel kinds for tensor file errors.
var (
	ErrShapeMismatch = errors.New("shape does not match data length")
	ErrFormat        = errors.New("not a supported npy file")
	ErrWrite         = errors.New("npy write failed")
)
