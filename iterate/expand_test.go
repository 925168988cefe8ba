package iterate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptorFromJSON(t *testing.T, raw string) JobDescriptor {
	t.Helper()
	var d JobDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	return d
}

// TestExpandTaskList_S1 exercises spec scenario S1: a single log_range
// axis producing 3 TaskLists with job_parameters.k in {1.0, 10.0, 100.0}
// and job_parameters.index in {"000000", "000001", "000002"}.
func TestExpandTaskList_S1(t *testing.T) {
	descriptor := descriptorFromJSON(t, `{
		"job_name": "s1",
		"iterations": [{"name": "k", "log_range": {"start": "1", "stop": "100", "count": "3"}}],
		"task_list": [{"task": "null"}]
	}`)

	taskLists, err := ExpandTaskList(descriptor, nil)
	require.NoError(t, err)
	require.Len(t, taskLists, 3)

	wantK := []float64{1.0, 10.0, 100.0}
	wantIndex := []string{"000000", "000001", "000002"}
	for i, tl := range taskLists {
		assert.InDelta(t, wantK[i], tl.JobParameters["k"], 1e-6)
		assert.Equal(t, wantIndex[i], tl.JobParameters["index"])
		assert.Equal(t, "s1", tl.JobName)
		assert.True(t, tl.CleanUp)
	}
}

func TestExpandTaskList_NoIterationsProducesOneTaskList(t *testing.T) {
	descriptor := descriptorFromJSON(t, `{
		"job_name": "no-axes",
		"task_list": [{"task": "null"}]
	}`)

	taskLists, err := ExpandTaskList(descriptor, nil)
	require.NoError(t, err)
	require.Len(t, taskLists, 1)
	assert.Equal(t, "000000", taskLists[0].JobParameters["index"])
}

func TestExpandTaskList_CartesianProductCount(t *testing.T) {
	descriptor := descriptorFromJSON(t, `{
		"job_name": "grid",
		"iterations": [
			{"name": "a", "values": ["x", "y"]},
			{"name": "b", "linear_range": {"start": "0", "stop": "10", "count": "5"}}
		],
		"task_list": [{"task": "null"}]
	}`)

	taskLists, err := ExpandTaskList(descriptor, nil)
	require.NoError(t, err)
	assert.Len(t, taskLists, 10)

	seen := map[string]bool{}
	for _, tl := range taskLists {
		seen[tl.JobParameters["index"].(string)] = true
	}
	assert.Len(t, seen, 10)
}

func TestExpandTaskList_SubstitutesPlaceholders(t *testing.T) {
	descriptor := descriptorFromJSON(t, `{
		"job_name": "sub",
		"iterations": [{"name": "cadence", "values": ["25"]}],
		"task_list": [{"task": "binning", "cadence": "${cadence}", "run": "${index}"}]
	}`)

	taskLists, err := ExpandTaskList(descriptor, nil)
	require.NoError(t, err)
	require.Len(t, taskLists, 1)

	task := taskLists[0].Tasks[0]
	assert.Equal(t, "binning", task["task"])
	assert.Equal(t, "25", task["cadence"])
	assert.Equal(t, "000000", task["run"])
}

func TestExpandTaskList_NestedTasks(t *testing.T) {
	parent := descriptorFromJSON(t, `{
		"job_name": "parent",
		"task_list": [{"task": "null"}],
		"nested_tasks": ["child.json"]
	}`)
	child := descriptorFromJSON(t, `{
		"job_name": "child",
		"task_list": [{"task": "null"}]
	}`)

	resolver := func(ref string) (JobDescriptor, error) {
		assert.Equal(t, "child.json", ref)
		return child, nil
	}

	taskLists, err := ExpandTaskList(parent, resolver)
	require.NoError(t, err)
	require.Len(t, taskLists, 2)
	assert.Equal(t, "parent", taskLists[0].JobName)
	assert.Equal(t, "child", taskLists[1].JobName)
}

func TestExpandTaskList_CleanUpDefaultsTrue(t *testing.T) {
	descriptor := descriptorFromJSON(t, `{"job_name": "d", "task_list": [{"task": "null"}]}`)
	taskLists, err := ExpandTaskList(descriptor, nil)
	require.NoError(t, err)
	assert.True(t, taskLists[0].CleanUp)
}

func TestExpandTaskList_CleanUpFalseRespected(t *testing.T) {
	descriptor := descriptorFromJSON(t, `{"job_name": "d", "clean_up": false, "task_list": [{"task": "null"}]}`)
	taskLists, err := ExpandTaskList(descriptor, nil)
	require.NoError(t, err)
	assert.False(t, taskLists[0].CleanUp)
}
