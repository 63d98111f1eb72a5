package ot

import "errors"

// Errors returned by the structural editor and the inverter.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrInvalidRangeIndex    = errors.New("invalid range index")
	ErrInvalidMove          = errors.New("can't move range inside itself")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrMergeOnBatch         = errors.New("merge only works on single operations")
	ErrMissingPrevious      = errors.New("operation is not enriched with its previous value")
	ErrEmptyBatch           = errors.New("empty batch")
)
