package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/bankx-client/internal/jobs"
)

// Store is an in-memory JobStore for export jobs. It keeps job metadata only:
// the customer's bearer token travels with the queued job and is stripped
// from every stored copy. Data is lost on restart.
type Store struct {
	mu         sync.RWMutex
	jobs       map[string]*jobs.ExportJob
	byCustomer map[string][]string
}

func NewStore() *Store {
	return &Store{
		jobs:       make(map[string]*jobs.ExportJob),
		byCustomer: make(map[string][]string),
	}
}

// record is the stored form of job.
func record(job *jobs.ExportJob) *jobs.ExportJob {
	c := *job
	c.Token = ""
	return &c
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.ExportJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.jobs[job.JobID]; ok && prev.CustomerID != job.CustomerID {
		return fmt.Errorf("job %s belongs to another customer", job.JobID)
	} else if !ok {
		s.byCustomer[job.CustomerID] = append(s.byCustomer[job.CustomerID], job.JobID)
	}
	s.jobs[job.JobID] = record(job)
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	return record(job), nil
}

// ListJobs returns matching jobs newest first. A customer filter is answered
// from the per-customer index.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.ExportJob, error) {
	s.mu.RLock()
	var candidates []*jobs.ExportJob
	if filter.CustomerID != "" {
		for _, id := range s.byCustomer[filter.CustomerID] {
			candidates = append(candidates, s.jobs[id])
		}
	} else {
		for _, job := range s.jobs {
			candidates = append(candidates, job)
		}
	}
	result := make([]*jobs.ExportJob, 0, len(candidates))
	for _, job := range candidates {
		if filter.Status == "" || job.Status == filter.Status {
			result = append(result, record(job))
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].JobID < result[j].JobID
	})
	return page(result, filter.Offset, filter.Limit), nil
}

func page(list []*jobs.ExportJob, offset, limit int) []*jobs.ExportJob {
	if offset >= len(list) {
		return []*jobs.ExportJob{}
	}
	if offset > 0 {
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.JobStore = (*Store)(nil)
