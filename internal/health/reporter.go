package health

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	defaultCheckTimeout = 2 * time.Second
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type Status struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      float64   `json:"uptime"`
	Environment string    `json:"environment"`
	Version     string    `json:"version"`
}

type Failure struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// Reporter answers the health endpoint. Uptime is measured in seconds since New.
type Reporter struct {
	startedAt   time.Time
	environment string
	version     string
	timeout     time.Duration
	checks      map[string]Check
	now         func() time.Time
}

func New(environment, version string) *Reporter {
	return &Reporter{
		startedAt:   time.Now(),
		environment: environment,
		version:     version,
		timeout:     defaultCheckTimeout,
		checks:      map[string]Check{},
		now:         time.Now,
	}
}

// Register adds a named dependency check. Nil checks are ignored.
func (r *Reporter) Register(name string, check Check) {
	if check == nil {
		return
	}
	r.checks[name] = check
}

// Report runs every check. Any failure yields a Failure describing all of them.
func (r *Reporter) Report(ctx context.Context) (Status, *Failure) {
	now := r.now()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	for _, name := range names {
		if err := r.run(ctx, r.checks[name]); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if errs != nil {
		return Status{}, &Failure{Status: StatusError, Timestamp: now.UTC(), Error: errs.Error()}
	}

	return Status{
		Status:      StatusOK,
		Timestamp:   now.UTC(),
		Uptime:      now.Sub(r.startedAt).Seconds(),
		Environment: r.environment,
		Version:     r.version,
	}, nil
}

func (r *Reporter) run(ctx context.Context, check Check) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("check panicked: %v", rec)
		}
	}()
	return check(ctx)
}
