package scanners

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestLocalRunnerStdout(t *testing.T) {
	requireShell(t)
	r := LocalRunner{Binary: "sh"}

	out, err := r.Run(context.Background(), []string{"-c", "echo hello; echo noise >&2"})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))
}

func TestLocalRunnerNonZeroExit(t *testing.T) {
	requireShell(t)
	r := LocalRunner{Binary: "sh"}

	_, err := r.Run(context.Background(), []string{"-c", "echo bad template >&2; exit 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad template")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestLocalRunnerMissingBinary(t *testing.T) {
	r := LocalRunner{Binary: "shipscan-definitely-missing-binary"}
	assert.Error(t, r.Probe(context.Background()))
}

func TestLocalRunnerTimeout(t *testing.T) {
	requireShell(t)
	r := LocalRunner{Binary: "sh"}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Run(ctx, []string{"-c", "sleep 5"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
