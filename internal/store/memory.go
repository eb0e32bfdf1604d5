package store

import (
	"context"
	"sync"
	"time"

	"github.com/autovideo/api/internal/model"
)

// MemoryStore keeps jobs in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.JobRecord
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*model.JobRecord),
		now:  time.Now,
	}
}

// WithClock replaces the clock used to stamp UpdatedAt.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) Save(_ context.Context, job *model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*model.JobRecord, error) {
	s.mu.RLock()
	jobs := make([]*model.JobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	s.mu.RUnlock()

	sortRecent(jobs)
	return jobs, nil
}

func (s *MemoryStore) Update(_ context.Context, job *model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.UpdatedAt = s.now()
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*model.JobRecord)
	return nil
}
