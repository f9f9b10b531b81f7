package tracing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecTraceDisabledByDefault(t *testing.T) {
	t.Setenv(envExecTrace, "")

	stop := StartExecTrace("check", "run-1")
	assert.False(t, IsExecTraceActive())
	stop()
}

func TestExecTraceScopeFilter(t *testing.T) {
	t.Setenv(envExecTrace, "1")
	t.Setenv(envExecTraceScope, "other")

	assert.False(t, ShouldStartExecTrace("check"))
	assert.True(t, ShouldStartExecTrace("other"))
}

func TestExecTraceWritesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(envExecTrace, "1")
	t.Setenv(envExecTraceScope, "")
	t.Setenv(envExecTraceDir, dir)

	stop := StartExecTrace("check", "run-2")
	assert.True(t, IsExecTraceActive())

	// a second trace while one is recording is refused
	noop := StartExecTrace("check", "run-3")
	noop()
	assert.True(t, IsExecTraceActive())

	stop()
	assert.False(t, IsExecTraceActive())

	files, err := filepath.Glob(filepath.Join(dir, "check-run-2-*.out"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	info, err := os.Stat(files[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestAnnotationsWithoutTrace(t *testing.T) {
	ctx, end := Task(context.Background(), "run-4")
	assert.NotNil(t, ctx)
	Region(ctx, "alpha")()
	end()
}
