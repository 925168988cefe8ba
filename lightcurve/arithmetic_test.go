package lightcurve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatRaster(t *testing.T, times, fluxes []float64, metadata map[string]interface{}) *ArbitraryRaster {
	t.Helper()
	r, err := NewArbitraryRaster(times, fluxes, nil, nil, metadata)
	require.NoError(t, err)
	return r
}

func TestAddSubtractMultiply(t *testing.T) {
	left := flatRaster(t, []float64{0, 1, 2, 3}, []float64{1, 1, 1, 1}, map[string]interface{}{"who": "left"})
	right := flatRaster(t, []float64{0, 1, 2, 3}, []float64{2, 2, 2, 2}, map[string]interface{}{"who": "right"})

	// right is resampled onto left's times first; the two edge pixels lie
	// half outside right's extent, so they carry half its flux: [1, 2, 2, 1].
	sum, err := Add(left, right)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3, 3, 2}, sum.Fluxes, 1e-6)
	assert.Equal(t, "right", sum.Metadata["who"])

	diff, err := Subtract(left, right)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -1, -1, 0}, diff.Fluxes, 1e-6)

	product, err := Multiply(left, right)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 2, 1}, product.Fluxes, 1e-6)
}

func TestRebin_ForcesEdgesToOne(t *testing.T) {
	source := flatRaster(t, []float64{0, 1, 2, 3, 4}, []float64{0.9, 0.8, 0.7, 0.8, 0.9}, nil)
	output := Arange(0, 4.001, 1)
	rebinned, err := Rebin(source, output)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rebinned.Fluxes[0], 1e-9)
	assert.InDelta(t, 1.0, rebinned.Fluxes[len(rebinned.Fluxes)-1], 1e-9)
}

func TestArange(t *testing.T) {
	assert.InDeltaSlice(t, []float64{0, 1, 2, 3, 4}, Arange(0, 5, 1), 1e-9)
	assert.Nil(t, Arange(0, 5, 0))
	assert.Nil(t, Arange(0, 5, -1))
	assert.Nil(t, Arange(5, 0, 1))
}
