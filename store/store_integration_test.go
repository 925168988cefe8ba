//go:build integration

package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storetesting "plato-wp36.eu/testbench/containers/testing"
	"plato-wp36.eu/testbench/telemetry"
)

func setupStore(t *testing.T) *Store {
	ctx := context.Background()

	connStr, cleanup, err := storetesting.SetupPostgres(ctx, t, nil)
	require.NoError(t, err, "failed to start Postgres container")
	t.Cleanup(cleanup)

	s, err := Open(connStr)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(false))
	return s
}

func TestStore_Integration_GetOrCreateID_RaceFree(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	const workers = 16
	ids := make([]uint, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.GetOrCreateID(ctx, DimensionJobs, "concurrent-job")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	first := ids[0]
	for _, id := range ids {
		assert.Equal(t, first, id, "every concurrent caller must observe the same id")
	}
}

func TestStore_Integration_GetOrCreateID_DistinctNames(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	idA, err := s.GetOrCreateID(ctx, DimensionTargets, "kepler-10")
	require.NoError(t, err)
	idB, err := s.GetOrCreateID(ctx, DimensionTargets, "kepler-11")
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)

	idAAgain, err := s.GetOrCreateID(ctx, DimensionTargets, "kepler-10")
	require.NoError(t, err)
	assert.Equal(t, idA, idAAgain)
}

func TestStore_Integration_InsertRunTime(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	record := telemetry.RunTimeRecord{
		JobName:    "job-a",
		TDACode:    "qats",
		TargetName: "kepler-10",
		TaskName:   "binning",
		Parameters: map[string]interface{}{"lc_length": 4096.0},
		Timestamp:  1700000000,
		Wall:       1.25,
		CPUSelf:    1.1,
	}
	require.NoError(t, s.InsertRunTime(ctx, record))

	var count int64
	require.NoError(t, s.db.WithContext(ctx).Table("eas_run_times").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStore_Integration_InsertResult_InlineSummary(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	record := telemetry.ResultRecord{
		JobName:       "job-a",
		TDACode:       "qats",
		TargetName:    "kepler-10",
		TaskName:      "transit_search",
		Timestamp:     1700000000,
		ResultSummary: map[string]interface{}{"mes": 12.5},
	}
	require.NoError(t, s.InsertResult(ctx, record, "", ""))

	var row Result
	require.NoError(t, s.db.WithContext(ctx).Table("eas_results").First(&row).Error)
	assert.Contains(t, row.Results, "mes")
	assert.Empty(t, row.ResultFilename)
}

func TestStore_Integration_InsertResult_RelocatesExtendedPayload(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	scratchDir := t.TempDir()
	outputDir := t.TempDir()
	scratch := scratchDir + "/scratch-payload.json.gz"
	require.NoError(t, os.WriteFile(scratch, []byte("extended-payload"), 0o644))

	record := telemetry.ResultRecord{
		JobName:       "job-b",
		TDACode:       "bls",
		TargetName:    "kepler-11",
		TaskName:      "transit_search",
		Timestamp:     1700000001,
		ResultSummary: map[string]interface{}{"mes": 7.0},
	}
	require.NoError(t, s.InsertResult(ctx, record, scratch, outputDir))

	var row Result
	require.NoError(t, s.db.WithContext(ctx).Table("eas_results").
		Where("job_id = (SELECT id FROM eas_jobs WHERE name = ?)", "job-b").
		First(&row).Error)
	assert.Equal(t, ResultFilename("job-b", "transit_search", "bls", "kepler-11"), row.ResultFilename)
}
