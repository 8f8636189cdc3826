package scanners

import (
	"context"
	"io"

	"shipscan/scanner-api/internal/model"
)

type Parser interface {
	Parse(r io.Reader) ([]model.Finding, error)
}

// Runner executes the scanner binary and returns its stdout.
type Runner interface {
	Name() string
	Probe(ctx context.Context) error
	Run(ctx context.Context, args []string) ([]byte, error)
}
