package cron

import (
	"context"
	"fmt"
	"slices"
)

// Job is one unit of periodic maintenance. Run should be safe to repeat: a
// cycle cut short by a crash is simply run again on the next tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in the order they run. Names are unique because they
// label metrics and logs.
type Registry struct {
	jobs []Job
}

// NewRegistry registers jobs in order and panics on a duplicate name, which
// can only come from wiring code.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if slices.ContainsFunc(r.jobs, func(j Job) bool { return j.Name() == job.Name() }) {
		return fmt.Errorf("cron: job %q registered twice", job.Name())
	}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.jobs)
}
