package iterate

import "encoding/json"

// JobDescriptor is the declarative input to the Iteration Expander.
type JobDescriptor struct {
	JobName     string          `json:"job_name"`
	CleanUp     *bool           `json:"clean_up,omitempty"`
	Iterations  []IterationAxis `json:"iterations,omitempty"`
	TaskList    []TaskTemplate  `json:"task_list"`
	NestedTasks []string        `json:"nested_tasks,omitempty"`
}

// cleanUpOrDefault returns CleanUp if set, true otherwise (spec's default).
func (d JobDescriptor) cleanUpOrDefault() bool {
	if d.CleanUp == nil {
		return true
	}
	return *d.CleanUp
}

// IterationAxis is one axis of the iteration grid. Exactly one of Values,
// LinearRange, LogRange is set; which one is non-nil selects the kind.
type IterationAxis struct {
	Name        string   `json:"name"`
	Values      []string `json:"values,omitempty"`
	LinearRange *Range   `json:"linear_range,omitempty"`
	LogRange    *Range   `json:"log_range,omitempty"`
}

// Range holds the three expression strings defining a linear_range or
// log_range axis: start, stop, count. Each is evaluated via EvalExpr.
type Range struct {
	Start string `json:"start"`
	Stop  string `json:"stop"`
	Count string `json:"count"`
}

// TaskTemplate is a raw JSON document with ${name}/${index} placeholders,
// kept as raw bytes since substitution happens textually before the
// substituted document is re-parsed into a ConcreteTask. Placeholders must
// sit inside quoted string literals (`"cadence": "${cadence}"`, not a bare
// `${cadence}`): the descriptor file is itself valid JSON before
// substitution, so an unquoted placeholder would not parse at load time.
// Verb handlers parse numeric fields from the resulting strings.
type TaskTemplate json.RawMessage

// MarshalJSON/UnmarshalJSON let TaskTemplate participate directly in a
// JobDescriptor's task_list field as arbitrary JSON.
func (t TaskTemplate) MarshalJSON() ([]byte, error) {
	return json.RawMessage(t).MarshalJSON()
}

func (t *TaskTemplate) UnmarshalJSON(data []byte) error {
	*t = append((*t)[0:0], data...)
	return nil
}

// ConcreteTask is a TaskTemplate with every placeholder substituted; it
// decodes as an arbitrary JSON object keyed by verb-specific fields plus
// the required "task" field naming the verb.
type ConcreteTask map[string]interface{}

// TaskList is one point of the expanded iteration grid: an ordered
// sequence of ConcreteTasks sharing one job_name, one job_parameters
// substitution map, and one clean_up flag.
type TaskList struct {
	JobName       string                 `json:"job_name"`
	JobParameters map[string]interface{} `json:"job_parameters"`
	CleanUp       bool                   `json:"clean_up"`
	Tasks         []ConcreteTask         `json:"task_list"`
}
