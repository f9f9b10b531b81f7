package tracing

import (
	"context"
	"runtime/trace"
)

// Task groups everything a run does under one task in the execution trace.
// Annotations cost next to nothing when no trace is recording.
func Task(ctx context.Context, runID string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, "check")
	trace.Log(ctx, "run_id", runID)
	return ctx, task.End
}

// Region marks the work done for one provider inside the run task.
func Region(ctx context.Context, provider string) func() {
	return trace.StartRegion(ctx, "provider:"+provider).End
}
