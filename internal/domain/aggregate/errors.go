package aggregate

import "errors"

// Sentinel kinds for aggregation errors.
var (
	ErrDuplicateRecording = errors.New("duplicate recording")
	ErrSchemaMismatch     = errors.New("recording schema mismatch")
)
