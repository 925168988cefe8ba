package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plato-wp36.eu/testbench/iterate"
)

func TestCoerceFloat_AcceptsNumberAndTemplatedString(t *testing.T) {
	f, err := coerceFloat(12.5, "x")
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	f, err = coerceFloat("12.5", "x")
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)

	_, err = coerceFloat("not-a-number", "x")
	assert.Error(t, err)

	_, err = coerceFloat(true, "x")
	assert.Error(t, err)
}

func TestOptionalBool_AcceptsBoolAndTemplatedString(t *testing.T) {
	b, err := optionalBool(map[string]interface{}{"enable_transits": false}, "enable_transits")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.False(t, *b)

	b, err = optionalBool(map[string]interface{}{"enable_transits": "true"}, "enable_transits")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.True(t, *b)

	b, err = optionalBool(map[string]interface{}{}, "enable_transits")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSpecsFromTask_ParsesTemplatedNumericFields(t *testing.T) {
	task := iterate.ConcreteTask{
		"specs": map[string]interface{}{
			"duration":        "90",
			"planet_radius":   "0.01",
			"orbital_period":  "12.5",
			"semi_major_axis": "0.1",
			"orbital_angle":   "0",
		},
	}

	specs, err := specsFromTask(task)
	require.NoError(t, err)
	assert.Equal(t, 12.5, specs.OrbitalPeriod)
	assert.Equal(t, 90.0, specs.Duration)
}

func TestSpecsFromTask_MissingRequiredFieldErrors(t *testing.T) {
	task := iterate.ConcreteTask{"specs": map[string]interface{}{"duration": 90.0}}
	_, err := specsFromTask(task)
	assert.Error(t, err)
}

func TestHandleValue_MissingFieldErrors(t *testing.T) {
	_, err := handleValue(map[string]interface{}{}, "target")
	assert.Error(t, err)
}

func TestTaskIdentity_NullAndErrorHaveNoTarget(t *testing.T) {
	targetName, tdaCode := taskIdentity(iterate.ConcreteTask{"task": "null"}, "null")
	assert.Equal(t, "", targetName)
	assert.Equal(t, "", tdaCode)
}

func TestTaskIdentity_TransitSearchCarriesTDACode(t *testing.T) {
	task := iterate.ConcreteTask{
		"task":   "transit_search",
		"source": memoryHandle("kepler-10"),
	}
	targetName, tdaCode := taskIdentity(task, "transit_search")
	assert.Equal(t, "kepler-10", targetName)
	assert.Equal(t, "", tdaCode) // tda_name absent from this task on purpose
}

func TestVerbNull_AlwaysSucceeds(t *testing.T) {
	r, _, _ := newTestRunner()
	e := &execution{runner: r, jobName: "job-a"}
	assert.NoError(t, verbNull(context.Background(), e, iterate.ConcreteTask{}))
}

func TestVerbError_AlwaysFails(t *testing.T) {
	r, _, _ := newTestRunner()
	e := &execution{runner: r, jobName: "job-a"}
	assert.Error(t, verbError(context.Background(), e, iterate.ConcreteTask{}))
}
