package lightcurve

import "sort"

// cumulativeIntegral returns, for a piecewise-linear function through
// (times[i], values[i]), the cumulative trapezoidal integral from times[0]
// up to times[i] for every i. cumulative[0] is always 0.
func cumulativeIntegral(times, values []float64) []float64 {
	cumulative := make([]float64, len(times))
	for i := 1; i < len(times); i++ {
		dt := times[i] - times[i-1]
		cumulative[i] = cumulative[i-1] + 0.5*(values[i-1]+values[i])*dt
	}
	return cumulative
}

// integralAt evaluates the cumulative integral at an arbitrary point x by
// linearly interpolating between the two bracketing cumulative values. x is
// assumed already clamped into [times[0], times[len-1]].
func integralAt(times, cumulative []float64, x float64) float64 {
	n := len(times)
	if x <= times[0] {
		return cumulative[0]
	}
	if x >= times[n-1] {
		return cumulative[n-1]
	}
	// index of the first time strictly greater than x
	i := sort.Search(n, func(i int) bool { return times[i] > x })
	lo, hi := i-1, i
	span := times[hi] - times[lo]
	if span <= 0 {
		return cumulative[lo]
	}
	frac := (x - times[lo]) / span
	return cumulative[lo] + frac*(cumulative[hi]-cumulative[lo])
}

// binEdgesFromCenters derives n+1 bin edges from n bin-center times, each
// edge the midpoint of its two neighboring centers; the two outer edges
// extend the first/last spacing symmetrically outward.
func binEdgesFromCenters(centers []float64) []float64 {
	n := len(centers)
	edges := make([]float64, n+1)
	for i := 1; i < n; i++ {
		edges[i] = 0.5 * (centers[i-1] + centers[i])
	}
	if n >= 2 {
		firstSpan := centers[1] - centers[0]
		lastSpan := centers[n-1] - centers[n-2]
		edges[0] = centers[0] - 0.5*firstSpan
		edges[n] = centers[n-1] + 0.5*lastSpan
	} else {
		edges[0] = centers[0]
		edges[n] = centers[0]
	}
	return edges
}

// rebinAreaPreserving resamples a (times, values) piecewise-linear series
// onto outputTimes via area-preserving averaging: for each output bin
// [s, e] derived from the surrounding output times, the output value is
// (integral of the source over [s, e] clamped to the source's own extent)
// divided by the full bin width (e - s). This is what makes the operation
// area-preserving only over the overlap of the two rasters: a bin that
// extends beyond the source's range receives no contribution for the part
// outside, rather than being renormalized over a smaller effective width.
func rebinAreaPreserving(sourceTimes, sourceValues, outputTimes []float64) []float64 {
	cumulative := cumulativeIntegral(sourceTimes, sourceValues)
	lo, hi := sourceTimes[0], sourceTimes[len(sourceTimes)-1]

	edges := binEdgesFromCenters(outputTimes)
	out := make([]float64, len(outputTimes))
	for i := range outputTimes {
		s, e := edges[i], edges[i+1]
		width := e - s
		if width <= 0 {
			out[i] = 0
			continue
		}
		cs := clamp(s, lo, hi)
		ce := clamp(e, lo, hi)
		integral := integralAt(sourceTimes, cumulative, ce) - integralAt(sourceTimes, cumulative, cs)
		out[i] = integral / width
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Resample rebins `source` onto `outputTimes`, applying the same
// area-preserving rebin operator to the flux, uncertainty, and flag
// channels independently, and returns a new ArbitraryRaster sharing
// source's metadata (callers that need right-wins metadata union apply it
// themselves; Resample alone just re-rasters one curve).
func Resample(source *ArbitraryRaster, outputTimes []float64) (*ArbitraryRaster, error) {
	fluxes := rebinAreaPreserving(source.Times, source.Fluxes, outputTimes)
	uncertainties := rebinAreaPreserving(source.Times, source.Uncertainties, outputTimes)
	flags := rebinAreaPreserving(source.Times, source.Flags, outputTimes)
	return NewArbitraryRaster(append([]float64(nil), outputTimes...), fluxes, uncertainties, flags, source.Metadata)
}
