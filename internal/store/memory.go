// Package store keeps scan jobs in process memory. Records are lost when the
// process exits.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"shipscan/scanner-api/internal/model"
)

var (
	ErrNotFound          = errors.New("scan job not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrImmutableField    = errors.New("immutable field changed")
)

type Option func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// MemoryStore owns every job record. Callers only ever see clones.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.ScanJob
	now  func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		jobs: make(map[string]*model.ScanJob),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a pending job for target and returns it.
func (s *MemoryStore) Create(target string) model.ScanJob {
	now := s.now().UTC()
	job := &model.ScanJob{
		ID:        uuid.NewString(),
		URL:       target,
		Status:    model.StatusPending,
		Findings:  []model.Finding{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.Clone()
}

func (s *MemoryStore) Get(id string) (model.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return model.ScanJob{}, ErrNotFound
	}
	return job.Clone(), nil
}

// Update replaces the stored record with job and refreshes UpdatedAt.
func (s *MemoryStore) Update(job model.ScanJob) (model.ScanJob, error) {
	if err := job.Validate(); err != nil {
		return model.ScanJob{}, fmt.Errorf("update %s: %w", job.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[job.ID]
	if !ok {
		return model.ScanJob{}, ErrNotFound
	}
	if !current.Status.CanTransition(job.Status) {
		return model.ScanJob{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, job.Status)
	}
	if job.URL != current.URL || !job.CreatedAt.Equal(current.CreatedAt) {
		return model.ScanJob{}, fmt.Errorf("update %s: %w", job.ID, ErrImmutableField)
	}

	next := job.Clone()
	next.UpdatedAt = s.now().UTC()
	if !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt.Add(time.Nanosecond)
	}
	s.jobs[job.ID] = &next

	return next.Clone(), nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
