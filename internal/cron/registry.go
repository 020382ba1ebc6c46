package cron

import "context"

// Job is one periodic maintenance task. Run reports how many entries it removed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry is the ordered set of jobs a Service runs each cycle. Names are unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order; nil jobs are skipped so optional constructors can
// be passed straight in.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register appends job and reports whether it was accepted. Nil jobs and repeated names
// are ignored.
func (r *Registry) Register(job Job) bool {
	if job == nil {
		return false
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	if _, dup := r.names[job.Name()]; dup {
		return false
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
	return true
}

// Jobs returns a copy in registration order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Len() int {
	return len(r.jobs)
}
