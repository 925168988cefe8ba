package lightcurve

import (
	"fmt"
	"math"
	"sort"
)

const secondsPerDay = 86400.0

// EstimateSamplingInterval estimates the fixed sampling interval (in days)
// of an otherwise-irregular raster from the interquartile mean of
// diff(times), rounded to the nearest whole second. Rounding to whole
// seconds matches the sampling cadences the synthesis back-ends actually
// produce (an integer number of seconds), which keeps check_fixed_step's
// tolerance meaningful.
func EstimateSamplingInterval(times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("lightcurve: need at least 2 points to estimate a sampling interval")
	}
	diffs := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		diffs[i-1] = times[i] - times[i-1]
	}
	mean := interquartileMean(diffs)
	seconds := math.Round(mean * secondsPerDay)
	return seconds / secondsPerDay, nil
}

// interquartileMean averages the values strictly between the 25th and 75th
// percentile of a sorted copy of values, which is robust to the occasional
// large gap that a handful of missing points would otherwise introduce into
// a plain mean.
func interquartileMean(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	lo := n / 4
	hi := n - n/4
	if hi <= lo {
		lo, hi = 0, n
	}
	sum := 0.0
	for _, v := range sorted[lo:hi] {
		sum += v
	}
	return sum / float64(hi-lo)
}

// FixedStepError reports a single departure from the expected fixed-step
// raster, classified by how many points are missing at that position.
type FixedStepError struct {
	Index         int
	PointsMissing int
}

func (e FixedStepError) String() string {
	return fmt.Sprintf("index %d: %d points missing", e.Index, e.PointsMissing)
}

// tolerance used by both fixed-step checks: isclose with abs_tol=1e-4
// (days) and rel_tol=0, matching the Python original's math.isclose call.
const fixedStepAbsTol = 1e-4

func isCloseAbs(a, b float64) bool {
	return math.Abs(a-b) <= fixedStepAbsTol
}

// CheckFixedStep walks consecutive differences of times and classifies any
// departure from dt as a number of missing points, by rounding the ratio of
// the observed gap to dt to the nearest integer. This is the first of two
// independent implementations of the same check (see CheckFixedStepV2);
// callers are expected to run both and compare error counts.
func CheckFixedStep(times []float64, dt float64) []FixedStepError {
	var errs []FixedStepError
	for i := 1; i < len(times); i++ {
		diff := times[i] - times[i-1]
		if isCloseAbs(diff, dt) {
			continue
		}
		ratio := diff / dt
		nearest := math.Round(ratio)
		if nearest < 1 {
			nearest = 1
		}
		missing := int(nearest) - 1
		if missing < 1 {
			missing = 1
		}
		errs = append(errs, FixedStepError{Index: i, PointsMissing: missing})
	}
	return errs
}

// CheckFixedStepV2 reconstructs the expected fixed-step grid from times[0]
// and dt, then compares each observed time against its expected position,
// accumulating the offset so a single gap does not cascade into a reported
// error at every subsequent index. This exercises the same invariant as
// CheckFixedStep through an independent method: the original Python
// implementation keeps both because each catches a slightly different
// failure shape in floating point practice.
func CheckFixedStepV2(times []float64, dt float64) []FixedStepError {
	var errs []FixedStepError
	if len(times) == 0 {
		return errs
	}
	expected := times[0]
	for i := 1; i < len(times); i++ {
		expected += dt
		if isCloseAbs(times[i], expected) {
			continue
		}
		ratio := (times[i] - times[i-1]) / dt
		nearest := math.Round(ratio)
		if nearest < 1 {
			nearest = 1
		}
		missing := int(nearest) - 1
		if missing < 1 {
			missing = 1
		}
		errs = append(errs, FixedStepError{Index: i, PointsMissing: missing})
		// Resynchronize the expected grid on the observed time so later,
		// correctly-spaced points are not flagged again.
		expected = times[i]
	}
	return errs
}

// ToFixedStep converts an ArbitraryRaster that has already passed a
// fixed-step check into a FixedStep product.
func (a *ArbitraryRaster) ToFixedStep(dt float64) (*FixedStep, error) {
	if a.Len() == 0 {
		return nil, fmt.Errorf("lightcurve: cannot convert an empty raster to fixed step")
	}
	return NewFixedStep(a.Times[0], dt, append([]float64(nil), a.Fluxes...),
		append([]float64(nil), a.Uncertainties...), append([]float64(nil), a.Flags...), a.Metadata)
}
