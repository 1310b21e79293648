package selection

import "errors"

// ErrInvalidAlpha is returned when the significance level is outside (0, 1).
var ErrInvalidAlpha = errors.New("alpha must be in (0, 1)")
