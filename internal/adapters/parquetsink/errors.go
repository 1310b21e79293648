package parquetsink

import "errors"

// Sentinel kinds for parquet sink errors.
var (
	ErrOpen   = errors.New("parquet open failed")
	ErrWrite  = errors.New("parquet write failed")
	ErrClosed = errors.New("parquet sink closed")
)
