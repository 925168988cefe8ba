package runner

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plato-wp36.eu/testbench/arena"
	"plato-wp36.eu/testbench/iterate"
	"plato-wp36.eu/testbench/synth"
	"plato-wp36.eu/testbench/tda"
	"plato-wp36.eu/testbench/telemetry"
)

// recordingRunTimeSink and recordingResultSink are test doubles for the
// telemetry sinks, letting assertions inspect exactly what the runner
// submitted without a broker or store.
type recordingRunTimeSink struct {
	records []telemetry.RunTimeRecord
}

func (s *recordingRunTimeSink) Record(r telemetry.RunTimeRecord) error {
	s.records = append(s.records, r)
	return nil
}

type recordingResultSink struct {
	records []telemetry.ResultRecord
}

func (s *recordingResultSink) Record(r telemetry.ResultRecord) error {
	s.records = append(s.records, r)
	return nil
}

func newTestRunner() (*Runner, *recordingRunTimeSink, *recordingResultSink) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	runTimes := &recordingRunTimeSink{}
	results := &recordingResultSink{}
	r := New(arena.New(nil), tda.NewRegistry(), runTimes, results, logger)
	return r, runTimes, results
}

func memoryHandle(filename string) map[string]interface{} {
	return map[string]interface{}{"source": "memory", "directory": "", "filename": filename}
}

func specsFor(orbitalPeriod float64) map[string]interface{} {
	return map[string]interface{}{
		"duration":        90.0,
		"planet_radius":   0.01,
		"orbital_period":  orbitalPeriod,
		"semi_major_axis": 0.1,
		"orbital_angle":   0.0,
	}
}

func TestRunner_NullTaskProducesNoResultRecord(t *testing.T) {
	r, runTimes, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks:   []iterate.ConcreteTask{{"task": "null"}},
	}

	r.Run(context.Background(), list)

	assert.Empty(t, results.records)
	require.Len(t, runTimes.records, 1)
	assert.Equal(t, "null", runTimes.records[0].TaskName)
}

func TestRunner_ErrorTaskAbortsRemainderAndSubmitsErrorMessage(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "error"},
			{"task": "null"}, // must never run
		},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	assert.Equal(t, "error_message", results.records[0].TaskName)
	assert.Contains(t, results.records[0].ResultSummary["error"], "forced a failure")
}

func TestRunner_UnknownVerbIsTaskFailure(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks:   []iterate.ConcreteTask{{"task": "not_a_real_verb"}},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	assert.Equal(t, "error_message", results.records[0].TaskName)
}

func TestRunner_PSLSSynthesiseWritesArenaProduct(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("kepler-10"), "specs": specsFor(12.5)},
		},
	}

	r.Run(context.Background(), list)

	assert.Empty(t, results.records)
	product, err := r.Arena.Get(arena.Handle{Source: arena.SourceMemory, Filename: "kepler-10"})
	require.NoError(t, err)
	assert.Equal(t, 12.5, product.Metadata["orbital_period"])
}

func TestRunner_MultiplicationCombinesTwoProducts(t *testing.T) {
	r, _, _ := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("a"), "specs": specsFor(10)},
			{"task": "batman_synthesise", "target": memoryHandle("b"), "specs": specsFor(10)},
			{"task": "multiplication", "input_1": memoryHandle("a"), "input_2": memoryHandle("b"), "output": memoryHandle("c")},
		},
	}

	r.Run(context.Background(), list)

	a, err := r.Arena.Get(arena.Handle{Source: arena.SourceMemory, Filename: "a"})
	require.NoError(t, err)
	product, err := r.Arena.Get(arena.Handle{Source: arena.SourceMemory, Filename: "c"})
	require.NoError(t, err)
	assert.Equal(t, a.Len(), product.Len())
}

func TestRunner_BinningForcesEdgeFluxesToOne(t *testing.T) {
	r, _, _ := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("source"), "specs": specsFor(10)},
			{"task": "binning", "source": memoryHandle("source"), "target": memoryHandle("binned"), "cadence": 600.0},
		},
	}

	r.Run(context.Background(), list)

	binned, err := r.Arena.Get(arena.Handle{Source: arena.SourceMemory, Filename: "binned"})
	require.NoError(t, err)
	require.Greater(t, binned.Len(), 0)
	assert.Equal(t, 1.0, binned.Fluxes[0])
	assert.Equal(t, 1.0, binned.Fluxes[binned.Len()-1])
}

func TestRunner_TransitSearchSubmitsResultWithOutcome(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("kepler-10"), "specs": specsFor(12.5)},
			{"task": "transit_search", "source": memoryHandle("kepler-10"), "lc_duration": 86400.0, "tda_name": "qats", "search_settings": map[string]interface{}{}},
		},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	record := results.records[0]
	assert.Equal(t, "transit_search", record.TaskName)
	assert.Equal(t, "qats", record.TDACode)
	assert.Equal(t, "kepler-10", record.TargetName)
	assert.Contains(t, []interface{}{"PASS", "FAIL"}, record.ResultSummary["outcome"])
}

func TestRunner_DeleteRemovesArtifact(t *testing.T) {
	r, _, _ := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("kepler-10"), "specs": specsFor(12.5)},
			{"task": "delete", "source": memoryHandle("kepler-10")},
		},
	}

	r.Run(context.Background(), list)

	_, err := r.Arena.Get(arena.Handle{Source: arena.SourceMemory, Filename: "kepler-10"})
	assert.Error(t, err)
}

func TestRunner_CleanUpRemovesArchiveArtifactsEvenAfterError(t *testing.T) {
	r, _, results := newTestRunner()
	archive, err := arena.NewArchiveBackend(t.TempDir(), t.TempDir()+"/cache.db", false, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = archive.Close() })
	r.Arena = arena.New(archive)

	list := iterate.TaskList{
		JobName: "job-a",
		CleanUp: true,
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": map[string]interface{}{"source": "archive", "directory": "lc", "filename": "kepler-10"}, "specs": specsFor(12.5)},
			{"task": "error"},
		},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	_, err = r.Arena.Get(arena.Handle{Source: arena.SourceArchive, Directory: "lc", Filename: "kepler-10"})
	assert.Error(t, err, "clean_up=true should remove the archive artifact even though the list aborted on error")
}

func TestRunner_VerifyLogsWithoutError(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("kepler-10"), "specs": specsFor(12.5)},
			{"task": "verify", "source": memoryHandle("kepler-10")},
		},
	}

	r.Run(context.Background(), list)

	assert.Empty(t, results.records)
}

func TestRunner_MissingTaskFieldIsFailure(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks:   []iterate.ConcreteTask{{"not_task": "x"}},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	assert.Equal(t, "error_message", results.records[0].TaskName)
}

func TestRunner_PanicInVerbIsCaughtAsErrorMessage(t *testing.T) {
	// No built-in verb panics, so a panicking verb is registered for this
	// test to exercise the runner's recover-based guard.
	verbTable["test_panic"] = func(ctx context.Context, e *execution, task iterate.ConcreteTask) error {
		panic("boom")
	}
	t.Cleanup(func() { delete(verbTable, "test_panic") })

	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks:   []iterate.ConcreteTask{{"task": "test_panic"}},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	assert.Equal(t, "error_message", results.records[0].TaskName)
}

func TestRunner_TDARegistryUnknownNameIsFailure(t *testing.T) {
	r, _, results := newTestRunner()
	list := iterate.TaskList{
		JobName: "job-a",
		Tasks: []iterate.ConcreteTask{
			{"task": "psls_synthesise", "target": memoryHandle("kepler-10"), "specs": specsFor(12.5)},
			{"task": "transit_search", "source": memoryHandle("kepler-10"), "lc_duration": 86400.0, "tda_name": "not_a_real_tda"},
		},
	}

	r.Run(context.Background(), list)

	require.Len(t, results.records, 1)
	assert.Equal(t, "error_message", results.records[0].TaskName)
}

func TestRunner_SynthesiserRegistryWiredForBothVerbs(t *testing.T) {
	r, _, _ := newTestRunner()
	assert.IsType(t, synth.PSLS{}, r.Synthesisers["psls_synthesise"])
	assert.IsType(t, synth.Batman{}, r.Synthesisers["batman_synthesise"])
}
