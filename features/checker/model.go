package checker

import (
	"servicecheck/features/reconcile"
	"servicecheck/features/services"
	"time"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerAPI      Trigger = "api"
	TriggerCLI      Trigger = "cli"
	TriggerStartup  Trigger = "startup"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the persisted record of one check run.
type Run struct {
	ID                  string     `json:"id"`
	Trigger             Trigger    `json:"trigger"`
	Status              RunStatus  `json:"status"`
	DryRun              bool       `json:"dry_run"`
	StartTime           time.Time  `json:"start_time"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	ProvidersChecked    int        `json:"providers_checked"`
	ProvidersFailed     []string   `json:"providers_failed"`
	ServicesDeactivated []int64    `json:"services_deactivated"`
	Error               string     `json:"error,omitempty"`
}

// Duration is zero while the run is still going.
func (r Run) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// RunReport is everything a single run did.
type RunReport struct {
	RunID            string                      `json:"run_id"`
	DryRun           bool                        `json:"dry_run"`
	StartedAt        time.Time                   `json:"started_at"`
	FinishedAt       time.Time                   `json:"finished_at"`
	ProvidersChecked int                         `json:"providers_checked"`
	Outcomes         []reconcile.ProviderOutcome `json:"outcomes"`
	Failed           []reconcile.FailedProvider  `json:"failed"`
	Missing          []services.Service          `json:"missing"`
	Deactivated      []services.Service          `json:"deactivated"`
	BoundsUpdated    int                         `json:"bounds_updated"`

	DeactivationReported bool `json:"deactivation_reported"`
	FailureReported      bool `json:"failure_reported"`

	Error string `json:"error,omitempty"`
}

// FailedNames lists the failed providers by name, in run order.
func (r *RunReport) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Provider.Name)
	}
	return names
}
