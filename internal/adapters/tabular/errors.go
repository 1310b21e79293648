package tabular

import "errors"

// Sentinel kinds for tabular errors.
var (
	ErrNoHeader = errors.New("csv has no header row")
	ErrRead     = errors.New("csv read failed")
	ErrWrite    = errors.New("csv write failed")
)
