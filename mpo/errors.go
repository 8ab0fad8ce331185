// Package mpo merges homogenized results from a set of MPO files into
// dense arrays indexed by a global parameter grid.
//
// A build runs in three phases. Every file is opened and its parameter
// sampling merged into one ParamSpace. A scan then visits every state point,
// zone and isotope to discover the anisotropy orders and scattering transfer
// pairs present anywhere. Only then are the output arrays allocated and
// filled, one worker per file.
package mpo

import "errors"

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrParameterNotFound = errors.New("parameter value not found")
)
