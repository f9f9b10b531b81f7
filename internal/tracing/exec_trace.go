package tracing

import (
	"os"
	"path/filepath"
	"runtime/trace"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	envExecTrace      = "SERVICECHECK_EXEC_TRACE"
	envExecTraceScope = "SERVICECHECK_EXEC_TRACE_SCOPE"
	envExecTraceDir   = "SERVICECHECK_EXEC_TRACE_DIR"
)

var (
	execTraceMu     sync.Mutex
	execTraceActive bool
)

// ShouldStartExecTrace reports whether a runtime execution trace was requested.
// Set SERVICECHECK_EXEC_TRACE=1 to enable it; SERVICECHECK_EXEC_TRACE_SCOPE
// restricts it to one scope such as "check".
func ShouldStartExecTrace(scope string) bool {
	if os.Getenv(envExecTrace) != "1" {
		return false
	}
	if wanted := os.Getenv(envExecTraceScope); wanted != "" && wanted != scope {
		return false
	}
	return true
}

func release() {
	execTraceMu.Lock()
	execTraceActive = false
	execTraceMu.Unlock()
}

// StartExecTrace begins a Go runtime execution trace of one run and returns the
// function that finalizes it. Only one trace is recorded at a time; when
// tracing is disabled or busy the returned function is a no-op.
func StartExecTrace(scope, runID string) (stop func()) {
	if !ShouldStartExecTrace(scope) {
		return func() {}
	}

	execTraceMu.Lock()
	if execTraceActive {
		execTraceMu.Unlock()
		log.Debug().Msg("Exec trace already active, skipping")
		return func() {}
	}
	execTraceActive = true
	execTraceMu.Unlock()

	startedAt := time.Now()
	traceDir := os.Getenv(envExecTraceDir)
	if traceDir == "" {
		traceDir = filepath.Join(".", "traces")
	}
	if err := os.MkdirAll(traceDir, 0o755); err != nil {
		log.Warn().Err(err).Msg("Failed to create traces directory; skipping exec trace")
		release()
		return func() {}
	}

	fileName := filepath.Join(traceDir, scope+"-"+runID+"-"+startedAt.UTC().Format("20060102T150405Z")+".out")
	traceFile, err := os.Create(fileName)
	if err != nil {
		log.Warn().Err(err).Str("file", fileName).Msg("Failed to create exec trace file; skipping exec trace")
		release()
		return func() {}
	}

	if err := trace.Start(traceFile); err != nil {
		_ = traceFile.Close()
		log.Warn().Err(err).Str("file", fileName).Msg("Failed to start exec trace")
		release()
		return func() {}
	}

	log.Info().
		Str("scope", scope).
		Str("run_id", runID).
		Str("file", fileName).
		Msg("Go exec trace started")

	return func() {
		trace.Stop()
		_ = traceFile.Close()
		release()

		log.Info().
			Str("scope", scope).
			Str("run_id", runID).
			Dur("duration", time.Since(startedAt)).
			Str("file", fileName).
			Msg("Go exec trace stopped")
	}
}

// IsExecTraceActive returns true if a trace is currently being recorded.
func IsExecTraceActive() bool {
	execTraceMu.Lock()
	defer execTraceMu.Unlock()
	return execTraceActive
}
