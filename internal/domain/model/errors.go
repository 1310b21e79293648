package model

import "errors"

// Sentinel kinds for identifier errors.
var (
	ErrMalformedIdentifier = errors.New("malformed source identifier")
	ErrUnknownCondition    = errors.New("unknown condition")
)
