// Package telemetry defines the two record shapes emitted by the task
// runner and task timer, and the sinks (broker/log back-ends) that carry
// them out of a worker toward the Metadata Store.
package telemetry

// RunTimeRecord mirrors a single Task Timer measurement.
type RunTimeRecord struct {
	JobName     string                 `json:"job_name"`
	TDACode     string                 `json:"tda_code"`
	TargetName  string                 `json:"target_name"`
	TaskName    string                 `json:"task_name"`
	Parameters  map[string]interface{} `json:"parameters"`
	Timestamp   float64                `json:"timestamp"`
	Wall        float64                `json:"wall"`
	CPUSelf     float64                `json:"cpu_self"`
	CPUChildren float64                `json:"cpu_with_children"`
}

// ResultRecord mirrors the outcome of one task, successful or not. A
// failed TaskList submits one with TaskName "error_message" and the
// formatted error under ResultSummary's "error" key.
type ResultRecord struct {
	JobName              string                 `json:"job_name"`
	TDACode              string                 `json:"tda_code"`
	TargetName           string                 `json:"target_name"`
	TaskName             string                 `json:"task_name"`
	Parameters           map[string]interface{} `json:"parameters"`
	Timestamp            float64                `json:"timestamp"`
	ResultSummary        map[string]interface{} `json:"result_summary_json"`
	ExtendedArtifactName string                 `json:"extended_artifact_name,omitempty"`
}
