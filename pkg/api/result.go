package api

type (
	// RunStatus is the terminal status reported by the external flow runner
	RunStatus string

	// FlowResult is the opaque result of executing a flow. It is owned by
	// the runner and consumed read-only here, except that the enrichment
	// engine writes resolved citation fields back into Outputs before
	// resolution
	FlowResult struct {
		Status  RunStatus      `json:"status"`
		Outputs map[string]any `json:"outputs,omitempty"`
		Error   string         `json:"error,omitempty"`
	}

	// JobContext carries the surrounding job system's invocation identity
	// and caller-supplied auth headers
	JobContext struct {
		JobID   string            `json:"job_id"`
		Headers map[string]string `json:"headers,omitempty"`
	}

	// TaskConfig is the per-invocation activity input
	TaskConfig struct {
		FlowName          string           `json:"flow_name,omitempty"`
		AdditionalInputs  string           `json:"additional_inputs,omitempty"`
		FirstSourceFiles  []SourceDocument `json:"first_source_files,omitempty"`
		SecondSourceFiles []SourceDocument `json:"second_source_files,omitempty"`
		Questions         []Question       `json:"questions,omitempty"`
	}

	// TaskOutput is the activity result returned to the job system
	TaskOutput struct {
		Answers []Answer `json:"answers"`
	}
)

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)
