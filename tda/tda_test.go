package tda

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plato-wp36.eu/testbench/lightcurve"
)

func sourceRaster(t *testing.T, targetName string) lightcurve.ArbitraryRaster {
	t.Helper()
	raster, err := lightcurve.NewArbitraryRaster(
		[]float64{0, 1, 2, 3},
		[]float64{1.0, 0.98, 1.0, 1.0},
		nil, nil,
		map[string]interface{}{"orbital_period": 12.5, "target_name": targetName})
	require.NoError(t, err)
	return *raster
}

func TestRegistry_LookupKnownNames(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"bls_reference", "bls_kovacs", "dst_v26", "dst_v29", "exotrans", "qats", "tls"} {
		algorithm, err := r.Lookup(name)
		require.NoError(t, err)
		assert.NotNil(t, algorithm)
	}
}

func TestRegistry_LookupUnknownErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("not_a_real_tda")
	assert.Error(t, err)
}

func TestStub_Search_DeterministicForSameTarget(t *testing.T) {
	r := NewRegistry()
	algorithm, err := r.Lookup("qats")
	require.NoError(t, err)

	source := sourceRaster(t, "kepler-10")
	s1, _, err := algorithm.Search(context.Background(), source, 30, Settings{})
	require.NoError(t, err)
	s2, _, err := algorithm.Search(context.Background(), source, 30, Settings{})
	require.NoError(t, err)
	assert.Equal(t, s1.Period, s2.Period)
}

func TestStub_Search_PeriodNearOrbitalPeriod(t *testing.T) {
	r := NewRegistry()
	algorithm, err := r.Lookup("bls_reference")
	require.NoError(t, err)

	source := sourceRaster(t, "kepler-11")
	summary, _, err := algorithm.Search(context.Background(), source, 30, Settings{})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, summary.Period, 12.5*0.1)
}

func TestStub_Search_RespectsPeriodBounds(t *testing.T) {
	r := NewRegistry()
	algorithm, err := r.Lookup("tls")
	require.NoError(t, err)

	source := sourceRaster(t, "kepler-12")
	min := 20.0
	summary, _, err := algorithm.Search(context.Background(), source, 30, Settings{PeriodMin: &min})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.Period, min)
}

func TestStub_Search_MissingOrbitalPeriodErrors(t *testing.T) {
	raster, err := lightcurve.NewArbitraryRaster([]float64{0, 1, 2}, []float64{1, 1, 1}, nil, nil, nil)
	require.NoError(t, err)

	r := NewRegistry()
	algorithm, err := r.Lookup("qats")
	require.NoError(t, err)

	_, _, err = algorithm.Search(context.Background(), *raster, 1, Settings{})
	assert.Error(t, err)
}

func TestStub_Search_ContextCancelled(t *testing.T) {
	r := NewRegistry()
	algorithm, err := r.Lookup("qats")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = algorithm.Search(ctx, sourceRaster(t, "x"), 1, Settings{})
	assert.Error(t, err)
}
