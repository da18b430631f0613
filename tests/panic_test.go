package tests

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbdekhoooff08512/Win5x/pkg/logger"
)

// Re-runs the test binary as a subprocess that logs and then panics, to
// verify a deferred Flush still drains the SmartWriter buffer on the way
// down. A settlement crash must not eat the log lines that explain it.
func TestLoggerFlushOnPanic(t *testing.T) {
	const logFile = "panic_flush_test.log"

	if os.Getenv("WIN5X_PANIC_CHILD") == "1" {
		logger.InitWithFile(logFile, "info", "json", false)
		defer logger.Flush()
		logger.InfoGlobal().Int64("round", 42).Msg("settling round")
		panic("scheduler crashed mid-settlement")
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoggerFlushOnPanic")
	cmd.Env = append(os.Environ(), "WIN5X_PANIC_CHILD=1")
	// Non-zero exit is the point.
	_ = cmd.Run()
	defer os.Remove(logFile)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err, "flush on panic never reached the file")
	assert.Contains(t, string(content), "settling round")
	assert.Contains(t, string(content), `"round":42`)
}
