// Package lightcurve implements the two light-curve product shapes used
// throughout the testbench (ArbitraryRaster, FixedStep), the arithmetic
// defined between them, and the fixed-step verification checks. It has no
// dependency on arena, runner, or any broker/store package: arithmetic on
// products constructs new light curves via the resampler in this same
// package, so keeping lightcurve a leaf module avoids the import cycle that
// would otherwise exist between "arena stores light curves" and "light
// curves resample via arena helpers".
package lightcurve

import (
	"fmt"
	"math"
)

// ArbitraryRaster is a light curve sampled on a strictly increasing,
// arbitrarily spaced time raster. Times are always in days; see the
// package-level note on units in runner/verbs.go for where seconds are
// converted at the external-interface boundary.
type ArbitraryRaster struct {
	Times         []float64
	Fluxes        []float64
	Uncertainties []float64
	Flags         []float64
	Metadata      map[string]interface{}
}

// NewArbitraryRaster validates and constructs a raster. Uncertainties and
// flags default to all-zero when nil. Metadata defaults to an empty map
// when nil.
func NewArbitraryRaster(times, fluxes, uncertainties, flags []float64, metadata map[string]interface{}) (*ArbitraryRaster, error) {
	n := len(times)
	if n != len(fluxes) {
		return nil, fmt.Errorf("lightcurve: times and fluxes length mismatch (%d vs %d)", n, len(fluxes))
	}
	if uncertainties == nil {
		uncertainties = make([]float64, n)
	}
	if flags == nil {
		flags = make([]float64, n)
	}
	if len(uncertainties) != n {
		return nil, fmt.Errorf("lightcurve: uncertainties length mismatch (%d vs %d)", n, len(uncertainties))
	}
	if len(flags) != n {
		return nil, fmt.Errorf("lightcurve: flags length mismatch (%d vs %d)", n, len(flags))
	}
	if n < 3 {
		return nil, fmt.Errorf("lightcurve: raster must have at least 3 points, got %d", n)
	}
	for i := 1; i < n; i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("lightcurve: times must be strictly increasing, violated at index %d", i)
		}
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &ArbitraryRaster{
		Times:         times,
		Fluxes:        fluxes,
		Uncertainties: uncertainties,
		Flags:         flags,
		Metadata:      metadata,
	}, nil
}

// Len returns the number of samples in the raster.
func (a *ArbitraryRaster) Len() int { return len(a.Times) }

// FixedStep is a light curve sampled on a uniform raster starting at T0
// with step DT (both in days).
type FixedStep struct {
	T0            float64
	DT            float64
	Fluxes        []float64
	Uncertainties []float64
	Flags         []float64
	Metadata      map[string]interface{}
}

// NewFixedStep validates and constructs a fixed-step light curve.
func NewFixedStep(t0, dt float64, fluxes, uncertainties, flags []float64, metadata map[string]interface{}) (*FixedStep, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("lightcurve: dt must be > 0, got %v", dt)
	}
	n := len(fluxes)
	if uncertainties == nil {
		uncertainties = make([]float64, n)
	}
	if flags == nil {
		flags = make([]float64, n)
	}
	if len(uncertainties) != n || len(flags) != n {
		return nil, fmt.Errorf("lightcurve: fixed-step arrays must all share length %d", n)
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &FixedStep{T0: t0, DT: dt, Fluxes: fluxes, Uncertainties: uncertainties, Flags: flags, Metadata: metadata}, nil
}

// Times returns the (lazily materialized) time raster of a FixedStep curve,
// in days, matching ArbitraryRaster's convention.
func (f *FixedStep) Times() []float64 {
	times := make([]float64, len(f.Fluxes))
	for i := range times {
		times[i] = f.T0 + float64(i)*f.DT
	}
	return times
}

// ToArbitraryRaster widens a FixedStep curve into an ArbitraryRaster,
// useful wherever a caller needs the uniform arithmetic/resampling API.
func (f *FixedStep) ToArbitraryRaster() (*ArbitraryRaster, error) {
	return NewArbitraryRaster(f.Times(), f.Fluxes, f.Uncertainties, f.Flags, f.Metadata)
}

// mergeMetadata implements the union-with-right-wins rule used by every
// light-curve arithmetic operation and by resampling.
func mergeMetadata(left, right map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}
	return out
}

// combineQuadrature combines two uncertainty (or flag) values via Euclidean
// norm: sqrt(a^2+b^2), equivalent to math.Hypot. Used for both uncertainty
// propagation and flag combination, since a flag of 0 leaves the other
// input's flag unchanged and a nonzero flag on either side survives.
func combineQuadrature(a, b float64) float64 {
	return math.Hypot(a, b)
}
