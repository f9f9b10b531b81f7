package runs

// StartRunInput is the body of POST /runs.
type StartRunInput struct {
	DryRun bool `json:"dry_run"`
}

// ListRunsInput is the query of GET /runs.
type ListRunsInput struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

// RunIDInput binds the :runID path parameter.
type RunIDInput struct {
	RunID string `param:"runID" validate:"required,max=64"`
}
