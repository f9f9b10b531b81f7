package cmd

import (
	"bytes"
	"encoding/json"
	"servicecheck/features/checker"
	"servicecheck/features/providers"
	"servicecheck/features/reconcile"
	"servicecheck/features/services"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func sampleReport() *checker.RunReport {
	return &checker.RunReport{
		RunID:            "run-1",
		ProvidersChecked: 2,
		Failed: []reconcile.FailedProvider{
			{Provider: providers.Provider{ID: 2, Name: "B"}, Reason: "unexpected response status", StatusCode: 503},
		},
		Missing:       []services.Service{{ID: 3, Name: "three"}},
		Deactivated:   []services.Service{{ID: 3, Name: "three"}},
		BoundsUpdated: 2,
	}
}

func TestPrintReportText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), false))

	out := buf.String()
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, "Providers checked:    2")
	assert.Contains(t, out, "Providers failed:     B")
	assert.Contains(t, out, "- B: unexpected response status")
	assert.Contains(t, out, "Services deactivated: 1")
	assert.Contains(t, out, "- 3 three")
}

func TestPrintReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReport(&buf, sampleReport(), true))

	var decoded checker.RunReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, []string{"B"}, decoded.FailedNames())
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, nil, false))
	assert.Contains(t, buf.String(), "No runs recorded.")

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	buf.Reset()
	require.NoError(t, printRuns(&buf, []*checker.Run{{
		ID:                  "run-9",
		Trigger:             checker.TriggerSchedule,
		Status:              checker.RunStatusCompleted,
		StartTime:           start,
		EndTime:             &end,
		ProvidersChecked:    3,
		ProvidersFailed:     []string{"B", "D"},
		ServicesDeactivated: []int64{4},
	}}, false))

	out := buf.String()
	assert.Contains(t, out, "2026-03-01T10:00:00Z")
	assert.Contains(t, out, "run-9")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "failed=B,D")
	assert.Contains(t, out, "deactivated=1")
	assert.Contains(t, out, "1.5s")
}
