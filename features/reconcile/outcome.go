package reconcile

import (
	"errors"
	"servicecheck/features/catalog"
	"servicecheck/features/providers"
	"servicecheck/features/services"
)

// FailedProvider is a provider whose catalog could not be used this run.
type FailedProvider struct {
	Provider   providers.Provider `json:"provider"`
	Reason     string             `json:"reason"`
	StatusCode int                `json:"status_code,omitempty"`
}

// ProviderOutcome is what processing one provider contributes to a run.
// Missing is only meaningful when Failure is nil.
type ProviderOutcome struct {
	Provider        providers.Provider `json:"provider"`
	Failure         *FailedProvider    `json:"failure,omitempty"`
	Entries         int                `json:"entries"`
	Unresolved      int                `json:"unresolved"`
	BoundsUpdated   int                `json:"bounds_updated"`
	BoundsUnmatched int                `json:"bounds_unmatched"`
	BoundErrors     int                `json:"bound_errors"`
	Missing         []services.Service `json:"missing,omitempty"`
}

// Failed builds the outcome of a provider that could not be reconciled.
func Failed(p providers.Provider, err error) ProviderOutcome {
	failure := &FailedProvider{Provider: p, Reason: "unknown error"}
	if err != nil {
		failure.Reason = err.Error()
	}
	var fetchErr *catalog.FetchError
	if errors.As(err, &fetchErr) {
		failure.StatusCode = fetchErr.StatusCode
	}
	return ProviderOutcome{Provider: p, Failure: failure}
}

// Result folds provider outcomes into the run-level missing and failed sets.
type Result struct {
	Outcomes []ProviderOutcome
	Missing  []services.Service
	Failed   []FailedProvider
}

// Collect merges outcomes in order. Services of failed providers never reach
// Missing, and a service appears in Missing at most once.
func Collect(outcomes []ProviderOutcome) *Result {
	result := &Result{
		Outcomes: outcomes,
		Missing:  []services.Service{},
		Failed:   []FailedProvider{},
	}

	seen := make(map[int64]struct{})
	for _, o := range outcomes {
		if o.Failure != nil {
			result.Failed = append(result.Failed, *o.Failure)
			continue
		}
		for _, s := range o.Missing {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			seen[s.ID] = struct{}{}
			result.Missing = append(result.Missing, s)
		}
	}
	return result
}

func (r *Result) MissingIDs() []int64 {
	return services.IDs(r.Missing)
}

func (r *Result) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Provider.Name)
	}
	return names
}

// BoundsUpdated sums bound refreshes over every provider.
func (r *Result) BoundsUpdated() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.BoundsUpdated
	}
	return n
}
