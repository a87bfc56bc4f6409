package cron

import "context"

// Job is one scheduled task run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker executes each cycle, in registration order.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry. Nil jobs are ignored.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
