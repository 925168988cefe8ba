package lightcurve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample_ConstantFluxPreserved(t *testing.T) {
	source, err := NewArbitraryRaster(
		[]float64{0, 1, 2, 3, 4, 5},
		[]float64{2, 2, 2, 2, 2, 2},
		nil, nil, nil,
	)
	require.NoError(t, err)

	output := []float64{0.5, 1.5, 2.5, 3.5}
	resampled, err := Resample(source, output)
	require.NoError(t, err)

	for i, v := range resampled.Fluxes {
		assert.InDelta(t, 2.0, v, 1e-9, "bin %d", i)
	}
}

func TestResample_AreaPreservedOverOverlap(t *testing.T) {
	// A ramp from 0 to 10 over [0, 10]; the total area under the curve
	// equals the integral. Rebinning onto coarser output bins must conserve
	// that total area over the overlap interval.
	source, err := NewArbitraryRaster(
		Arange(0, 11, 1),
		[]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		nil, nil, nil,
	)
	require.NoError(t, err)

	output := []float64{1, 3, 5, 7, 9}
	resampled, err := Resample(source, output)
	require.NoError(t, err)

	// Each output bin here has width 2 and sits entirely inside the source
	// range, so the area-weighted average over each bin should equal the
	// ramp's value at the bin center.
	for i, center := range output {
		assert.InDelta(t, center, resampled.Fluxes[i], 1e-6, "bin %d", i)
	}
}

func TestResample_PartialOverlapDiluted(t *testing.T) {
	source, err := NewArbitraryRaster([]float64{0, 1, 2}, []float64{4, 4, 4}, nil, nil, nil)
	require.NoError(t, err)

	// An output bin straddling the source's upper edge should be diluted
	// relative to a bin fully inside the source, since rebinAreaPreserving
	// divides by the full (unclamped) bin width.
	output := []float64{1.0, 2.5}
	resampled, err := Resample(source, output)
	require.NoError(t, err)

	assert.Less(t, resampled.Fluxes[1], resampled.Fluxes[0])
}

func TestBinEdgesFromCenters(t *testing.T) {
	edges := binEdgesFromCenters([]float64{1, 2, 3})
	assert.InDeltaSlice(t, []float64{0.5, 1.5, 2.5, 3.5}, edges, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-1, 0, 10))
	assert.Equal(t, 10.0, clamp(11, 0, 10))
	assert.Equal(t, 5.0, clamp(5, 0, 10))
}
