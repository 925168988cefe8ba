package lightcurve

import "fmt"

// op identifies which pointwise arithmetic operator combines two rasters'
// flux channels after the right operand has been resampled onto the left
// operand's time raster.
type op func(a, b float64) float64

func addOp(a, b float64) float64 { return a + b }
func subOp(a, b float64) float64 { return a - b }
func mulOp(a, b float64) float64 { return a * b }

// Add returns left + resample(right onto left.Times), per-point.
func Add(left, right *ArbitraryRaster) (*ArbitraryRaster, error) {
	return combine(left, right, addOp)
}

// Subtract returns left - resample(right onto left.Times), per-point.
func Subtract(left, right *ArbitraryRaster) (*ArbitraryRaster, error) {
	return combine(left, right, subOp)
}

// Multiply returns left * resample(right onto left.Times), per-point. This
// is the operator behind the multiplication task verb.
func Multiply(left, right *ArbitraryRaster) (*ArbitraryRaster, error) {
	return combine(left, right, mulOp)
}

func combine(left, right *ArbitraryRaster, f op) (*ArbitraryRaster, error) {
	if left == nil || right == nil {
		return nil, fmt.Errorf("lightcurve: combine requires two non-nil rasters")
	}
	resampledRight, err := Resample(right, left.Times)
	if err != nil {
		return nil, fmt.Errorf("lightcurve: resampling right operand: %w", err)
	}

	n := left.Len()
	fluxes := make([]float64, n)
	uncertainties := make([]float64, n)
	flags := make([]float64, n)
	for i := 0; i < n; i++ {
		fluxes[i] = f(left.Fluxes[i], resampledRight.Fluxes[i])
		uncertainties[i] = combineQuadrature(left.Uncertainties[i], resampledRight.Uncertainties[i])
		flags[i] = combineQuadrature(left.Flags[i], resampledRight.Flags[i])
	}

	metadata := mergeMetadata(left.Metadata, right.Metadata)
	return NewArbitraryRaster(append([]float64(nil), left.Times...), fluxes, uncertainties, flags, metadata)
}

// Rebin rebins `source` onto a caller-supplied output raster using the same
// area-preserving operator as Resample, but additionally forces the first
// and last output flux values to 1.0 to suppress edge artifacts, per the
// binning task verb's contract.
func Rebin(source *ArbitraryRaster, outputTimes []float64) (*ArbitraryRaster, error) {
	resampled, err := Resample(source, outputTimes)
	if err != nil {
		return nil, err
	}
	if n := resampled.Len(); n > 0 {
		resampled.Fluxes[0] = 1.0
		resampled.Fluxes[n-1] = 1.0
	}
	return resampled, nil
}

// Arange builds the binning verb's output raster: floor((stop-start)/step)
// points start, start+step, ... Unlike numpy.arange, which rounds the count
// up, a last point that would still lie below stop is dropped when the
// span is not a whole number of steps.
func Arange(start, stop, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	n := int((stop - start) / step)
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = start + float64(i)*step
	}
	return out
}
