package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSpecs() Specs {
	return Specs{
		Duration:      90,
		PlanetRadius:  0.01,
		OrbitalPeriod: 12.5,
		SemiMajorAxis: 0.1,
		OrbitalAngle:  0,
	}
}

func TestPSLS_Synthesise_ProducesMetadataContract(t *testing.T) {
	raster, err := PSLS{}.Synthesise(context.Background(), baseSpecs())
	require.NoError(t, err)

	for _, key := range []string{"integrated_transit_power", "pixels_in_transit", "pixels_out_of_transit", "mes"} {
		_, ok := raster.Metadata[key]
		assert.True(t, ok, "missing metadata key %q", key)
	}
	assert.Equal(t, 12.5, raster.Metadata["orbital_period"])
}

func TestPSLS_Synthesise_DeterministicAcrossCalls(t *testing.T) {
	specs := baseSpecs()
	r1, err := PSLS{}.Synthesise(context.Background(), specs)
	require.NoError(t, err)
	r2, err := PSLS{}.Synthesise(context.Background(), specs)
	require.NoError(t, err)
	assert.Equal(t, r1.Fluxes, r2.Fluxes)
}

func TestPSLS_Synthesise_RejectsNonPositiveDuration(t *testing.T) {
	specs := baseSpecs()
	specs.Duration = 0
	_, err := PSLS{}.Synthesise(context.Background(), specs)
	assert.Error(t, err)
}

func TestPSLS_Synthesise_RejectsNonPositiveOrbitalPeriod(t *testing.T) {
	specs := baseSpecs()
	specs.OrbitalPeriod = 0
	_, err := PSLS{}.Synthesise(context.Background(), specs)
	assert.Error(t, err)
}

func TestPSLS_Synthesise_DisabledTransitsHaveNoDip(t *testing.T) {
	specs := baseSpecs()
	off := false
	specs.EnableTransits = &off

	raster, err := PSLS{}.Synthesise(context.Background(), specs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, raster.Metadata["pixels_in_transit"])
	assert.Equal(t, 0.0, raster.Metadata["integrated_transit_power"])
}

func TestBatman_Synthesise_DeepensRelativeToPSLS(t *testing.T) {
	specs := baseSpecs()
	psls, err := PSLS{}.Synthesise(context.Background(), specs)
	require.NoError(t, err)
	batman, err := Batman{}.Synthesise(context.Background(), specs)
	require.NoError(t, err)

	assert.Greater(t, batman.Metadata["integrated_transit_power"], psls.Metadata["integrated_transit_power"])
}

func TestBatman_Synthesise_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Batman{}.Synthesise(ctx, baseSpecs())
	assert.Error(t, err)
}
