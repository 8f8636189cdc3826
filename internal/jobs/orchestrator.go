// Package jobs runs scan jobs: each accepted target gets one background task
// that scans, summarises and records the outcome.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"shipscan/scanner-api/internal/model"
	"shipscan/scanner-api/internal/security"
)

var ErrInvalidTarget = errors.New("invalid target")

type Store interface {
	Create(target string) model.ScanJob
	Get(id string) (model.ScanJob, error)
	Update(job model.ScanJob) (model.ScanJob, error)
}

type Scanner interface {
	Scan(ctx context.Context, target string) ([]model.Finding, error)
}

type Summarizer interface {
	Summarise(ctx context.Context, target string, findings []model.Finding) (string, error)
}

// Notifier receives every stored state of every job.
type Notifier interface {
	Publish(job model.ScanJob)
}

type nopNotifier struct{}

func (nopNotifier) Publish(model.ScanJob) {}

type Orchestrator struct {
	store      Store
	scanner    Scanner
	summarizer Summarizer
	notifier   Notifier
	log        zerolog.Logger

	// base outlives any single request; tasks never see request contexts.
	base context.Context
	wg   sync.WaitGroup
}

type Option func(*Orchestrator)

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithBaseContext sets the context every job task runs under.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.base = ctx }
}

func New(store Store, scanner Scanner, summarizer Summarizer, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		scanner:    scanner,
		summarizer: summarizer,
		notifier:   nopNotifier{},
		log:        logger.With().Str("component", "jobs").Logger(),
		base:       context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start validates target, records a pending job and launches its task. It
// returns before the task does any work.
func (o *Orchestrator) Start(target string) (model.ScanJob, error) {
	clean, err := security.ValidateTarget(target)
	if err != nil {
		return model.ScanJob{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	job := o.store.Create(clean)
	o.notifier.Publish(job)
	o.log.Info().Str("job_id", job.ID).Str("target", clean).Msg("scan job created")

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.run(job.ID)
	}()

	return job, nil
}

func (o *Orchestrator) Get(id string) (model.ScanJob, error) {
	return o.store.Get(id)
}

// Wait blocks until every started task has finished or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(id string) {
	log := o.log.With().Str("job_id", id).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scan job panicked")
			o.fail(id, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	if err := o.execute(id); err != nil {
		log.Error().Err(err).Msg("scan job failed")
		o.fail(id, err)
	}
}

func (o *Orchestrator) execute(id string) error {
	job, err := o.store.Get(id)
	if err != nil {
		return err
	}

	job.Status = model.StatusRunning
	job, err = o.save(job)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	findings, err := o.scanner.Scan(o.base, job.URL)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if findings == nil {
		findings = []model.Finding{}
	}

	text, err := o.summarizer.Summarise(o.base, job.URL, findings)
	if err != nil {
		return fmt.Errorf("summarise: %w", err)
	}

	job.Status = model.StatusComplete
	job.Findings = findings
	job.AISummary = text
	if _, err := o.save(job); err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}

	o.log.Info().Str("job_id", id).Int("findings", len(findings)).Msg("scan job complete")
	return nil
}

// fail moves the job to error. A job that already reached a terminal state is
// left alone.
func (o *Orchestrator) fail(id string, cause error) {
	job, err := o.store.Get(id)
	if err != nil || job.Status.Terminal() {
		return
	}

	job.Status = model.StatusError
	job.Findings = []model.Finding{}
	job.AISummary = ""
	job.ErrorMessage = cause.Error()
	if _, err := o.save(job); err != nil {
		o.log.Error().Err(err).Str("job_id", id).Msg("could not record job failure")
	}
}

func (o *Orchestrator) save(job model.ScanJob) (model.ScanJob, error) {
	stored, err := o.store.Update(job)
	if err != nil {
		return model.ScanJob{}, err
	}
	o.notifier.Publish(stored)
	return stored, nil
}
