package arena

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plato-wp36.eu/testbench/lightcurve"
)

func testRaster(t *testing.T, metadata map[string]interface{}) *lightcurve.ArbitraryRaster {
	t.Helper()
	raster, err := lightcurve.NewArbitraryRaster(
		[]float64{0, 1, 2, 3},
		[]float64{1.0, 0.99, 1.0, 1.0},
		nil, nil, metadata)
	require.NoError(t, err)
	return raster
}

func TestMemoryBackend_PutGetRemove(t *testing.T) {
	a := New(nil)
	handle := Handle{Source: SourceMemory, Directory: "scratch", Filename: "a.txt"}
	product := testRaster(t, map[string]interface{}{"orbital_period": 12.5})

	require.NoError(t, a.Put(handle, product))

	got, err := a.Get(handle)
	require.NoError(t, err)
	assert.Equal(t, product.Fluxes, got.Fluxes)

	require.NoError(t, a.Remove(handle))
	_, err = a.Get(handle)
	assert.Error(t, err)
}

func TestMemoryBackend_GetMissingReturnsError(t *testing.T) {
	a := New(nil)
	_, err := a.Get(Handle{Source: SourceMemory, Directory: "x", Filename: "y"})
	assert.Error(t, err)
}

func newTestArchive(t *testing.T, binary, gzipped bool) *ArchiveBackend {
	t.Helper()
	dir := t.TempDir()
	backend, err := NewArchiveBackend(filepath.Join(dir, "data"), filepath.Join(dir, "cache.bolt"), binary, gzipped)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

func TestArchiveBackend_TextRoundTrip(t *testing.T) {
	backend := newTestArchive(t, false, false)
	a := New(backend)
	handle := Handle{Source: SourceArchive, Directory: "targets", Filename: "kepler-10.dat"}
	product := testRaster(t, map[string]interface{}{"orbital_period": 12.5})

	require.NoError(t, a.Put(handle, product))

	got, err := a.Get(handle)
	require.NoError(t, err)
	assert.InDeltaSlice(t, product.Times, got.Times, 1e-6)
	assert.InDeltaSlice(t, product.Fluxes, got.Fluxes, 1e-6)
	assert.InDelta(t, 12.5, got.Metadata["orbital_period"], 1e-9)
}

func TestArchiveBackend_BinaryGzippedRoundTrip(t *testing.T) {
	backend := newTestArchive(t, true, true)
	a := New(backend)
	handle := Handle{Source: SourceArchive, Directory: "targets", Filename: "kepler-11.dat"}
	product := testRaster(t, map[string]interface{}{"orbital_period": 7.0})

	require.NoError(t, a.Put(handle, product))

	got, err := a.Get(handle)
	require.NoError(t, err)
	assert.InDeltaSlice(t, product.Fluxes, got.Fluxes, 1e-6)
}

func TestArchiveBackend_SidecarCacheServesRepeatedGet(t *testing.T) {
	backend := newTestArchive(t, false, false)
	a := New(backend)
	handle := Handle{Source: SourceArchive, Directory: "targets", Filename: "kepler-12.dat"}
	product := testRaster(t, nil)
	require.NoError(t, a.Put(handle, product))

	_, err := a.Get(handle)
	require.NoError(t, err)

	// Deleting the on-disk sidecar must not break a second Get, since the
	// parsed contents should already be cached in bbolt from the first.
	dataPath := backend.dataPath(handle)
	require.NoError(t, os.Remove(dataPath+".metadata"))

	_, err = a.Get(handle)
	assert.NoError(t, err)
}

func TestArchiveBackend_Remove(t *testing.T) {
	backend := newTestArchive(t, false, false)
	a := New(backend)
	handle := Handle{Source: SourceArchive, Directory: "targets", Filename: "kepler-13.dat"}
	require.NoError(t, a.Put(handle, testRaster(t, nil)))

	require.NoError(t, a.Remove(handle))
	_, err := a.Get(handle)
	assert.Error(t, err)
}

func TestHandle_ValidateRejectsUnknownSource(t *testing.T) {
	a := New(nil)
	err := a.Put(Handle{Source: "bogus", Directory: "x", Filename: "y"}, testRaster(t, nil))
	assert.Error(t, err)
}
