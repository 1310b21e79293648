package app

import "errors"

// Run-level failures. Everything else degrades to a logged exclusion.
var (
	ErrNoInputFiles = errors.New("no input files")
	ErrEmptyDataset = errors.New("no valid data remains after exclusions")
)

// ErrDuplicateContent marks an input byte-identical to an earlier one.
var ErrDuplicateContent = errors.New("duplicate input content")
