package cron

import "context"

// Job is one unit of scheduled billing maintenance work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a worker executes each cycle, in registration
// order. Names are unique; registering a second job under an existing name is
// ignored so a job can never run twice per cycle.
type Registry struct {
	order []Job
	names map[string]bool
}

// NewRegistry builds a registry preloaded with the given jobs.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]bool)}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register adds a job unless its name is already taken.
func (r *Registry) Register(job Job) {
	if job == nil || r.names[job.Name()] {
		return
	}
	r.names[job.Name()] = true
	r.order = append(r.order, job)
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, len(r.order))
	copy(out, r.order)
	return out
}
