package scanners

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const maxStderr = 512

// LocalRunner runs the scanner as a child process.
type LocalRunner struct {
	Binary string
}

func (r LocalRunner) Name() string { return "exec" }

// Probe runs "<binary> -version".
func (r LocalRunner) Probe(ctx context.Context) error {
	_, err := r.Run(ctx, []string{"-version"})
	return err
}

func (r LocalRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", r.Binary, ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "..."
		}
		if msg == "" {
			return nil, fmt.Errorf("%s: %w", r.Binary, err)
		}
		return nil, fmt.Errorf("%s: %w: %s", r.Binary, err, msg)
	}
	return stdout.Bytes(), nil
}
