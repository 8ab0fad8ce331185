package mpo

import (
	"runtime"

	"github.com/go-logr/logr"
)

// Options configures how a Master reaches and processes its sources.
type Options struct {
	// Workers bounds the number of sources processed at once. Zero or less
	// means GOMAXPROCS.
	Workers int
	// Logger receives progress at V(0) and per-record diagnostics at V(1).
	Logger logr.Logger
	// Opener opens sources by name. Nil means OpenHDF5.
	Opener Opener
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger.GetSink() == nil {
		o.Logger = logr.Discard()
	}
	if o.Opener == nil {
		o.Opener = OpenHDF5
	}
	return o
}

// BuildRequest selects what BuildLibrary extracts.
type BuildRequest struct {
	Isotopes  []string `json:"isotopes"`
	Reactions []string `json:"reactions"`
	// SkipDims names parameters dropped from the output axes. Values of a
	// skipped parameter all land on the same cell.
	SkipDims []string `json:"skipDims,omitempty"`
	Quantity Quantity `json:"quantity"`
	// MaxOrder caps the number of anisotropy orders of Diffusion and
	// Scattering. Zero or less means every discovered order.
	MaxOrder int `json:"maxOrder,omitempty"`
}

// Report summarizes a build.
type Report struct {
	RunID      string `json:"runID"`
	Arrays     int    `json:"arrays"`
	Writes     int64  `json:"writes"`
	Misses     int64  `json:"misses"`
	Overwrites int64  `json:"overwrites"`

	// SourceWrites is the number of writes made by each source.
	SourceWrites map[string]int64 `json:"sourceWrites"`
}
