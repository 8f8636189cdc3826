package scanners

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"shipscan/scanner-api/internal/model"
	"shipscan/scanner-api/internal/scanners/nuclei"
)

type Config struct {
	ForceMock    bool
	ScanTimeout  time.Duration
	ProbeTimeout time.Duration
	MockDelay    time.Duration
	Nuclei       nuclei.Options
}

// Adapter runs scans and never lets a scanner failure escape: any problem
// with the scanner yields the canned finding set instead.
type Adapter struct {
	cfg    Config
	runner Runner
	parser Parser
	log    zerolog.Logger

	modeOnce sync.Once
	lastMode atomic.Value
}

func NewAdapter(cfg Config, runner Runner, logger zerolog.Logger) *Adapter {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 5 * time.Minute
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	return &Adapter{
		cfg:    cfg,
		runner: runner,
		parser: nuclei.Parser{},
		log:    logger.With().Str("component", "scanner").Logger(),
	}
}

// WithParser replaces the nuclei parser.
func (a *Adapter) WithParser(p Parser) *Adapter {
	a.parser = p
	return a
}

// LastMode returns the mode chosen by the most recent scan, or "" before the
// first one.
func (a *Adapter) LastMode() Mode {
	m, _ := a.lastMode.Load().(Mode)
	return m
}

// Scan returns findings for target. The error is non-nil only when ctx ends
// before a result is available.
func (a *Adapter) Scan(ctx context.Context, target string) ([]model.Finding, error) {
	mode := SelectMode(a.cfg.ForceMock, a.probe(ctx))
	a.recordMode(mode)

	switch mode {
	case ModeMock:
		if err := sleep(ctx, a.cfg.MockDelay); err != nil {
			return nil, err
		}
		return Canned(), nil
	case ModeUnavailable:
		return Canned(), nil
	}

	findings, err := a.scanLive(ctx, target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		a.log.Warn().Err(err).Str("target", target).Msg("nuclei scan failed, using canned findings")
		return Canned(), nil
	}

	a.log.Info().Str("target", target).Int("findings", len(findings)).Msg("nuclei scan finished")
	return findings, nil
}

func (a *Adapter) probe(ctx context.Context) func() error {
	return func() error {
		if a.runner == nil {
			return errors.New("no scanner runner configured")
		}
		pctx, cancel := context.WithTimeout(ctx, a.cfg.ProbeTimeout)
		defer cancel()

		err := a.runner.Probe(pctx)
		if err != nil {
			a.log.Debug().Err(err).Str("runner", a.runner.Name()).Msg("scanner probe failed")
		}
		return err
	}
}

func (a *Adapter) scanLive(ctx context.Context, target string) ([]model.Finding, error) {
	sctx, cancel := context.WithTimeout(ctx, a.cfg.ScanTimeout)
	defer cancel()

	out, err := a.runner.Run(sctx, nuclei.Args(target, a.cfg.Nuclei))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", a.runner.Name(), err)
	}
	findings, err := a.parser.Parse(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse nuclei output: %w", err)
	}
	return findings, nil
}

func (a *Adapter) recordMode(mode Mode) {
	a.lastMode.Store(mode)

	logged := false
	a.modeOnce.Do(func() {
		logged = true
		ev := a.log.Info().Str("mode", string(mode))
		if a.runner != nil {
			ev = ev.Str("runner", a.runner.Name())
		}
		switch mode {
		case ModeMock:
			ev.Msg("scanner forced into mock mode")
		case ModeUnavailable:
			ev.Msg("nuclei unavailable, scans will return canned findings")
		default:
			ev.Msg("nuclei available, running live scans")
		}
	})
	if !logged {
		a.log.Debug().Str("mode", string(mode)).Msg("scanner mode selected")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
