package cron

import (
	"context"
	"fmt"
)

// Job is one scheduled task. Name doubles as the metrics label.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs of one cron worker in run order.
type Registry struct {
	jobs []Job
}

// NewRegistry rejects nil jobs and duplicate names so metrics labels stay unique.
func NewRegistry(jobs ...Job) (*Registry, error) {
	seen := make(map[string]struct{}, len(jobs))
	registry := &Registry{jobs: make([]Job, 0, len(jobs))}
	for i, job := range jobs {
		if job == nil {
			return nil, fmt.Errorf("job %d is nil", i)
		}
		name := job.Name()
		if name == "" {
			return nil, fmt.Errorf("job %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("job %q registered twice", name)
		}
		seen[name] = struct{}{}
		registry.jobs = append(registry.jobs, job)
	}
	return registry, nil
}

// Jobs returns a copy of the jobs in run order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
