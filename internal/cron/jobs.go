package cron

import (
	"context"
	"errors"
	"fmt"

	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/pkg/logger"
)

const (
	JobSessionSweep = "session_sweep"
	JobStoragePurge = "storage_purge"
)

// Sweeper drops per-visitor state idle longer than its TTL and reports how many
// sessions it removed. The cart, wishlist and checkout registries implement it.
type Sweeper interface {
	Sweep() int
}

// SweepTarget names one registry swept by the session sweep job.
type SweepTarget struct {
	Name    string
	Sweeper Sweeper
}

type sessionSweepJob struct {
	logg    *logger.Logger
	targets []SweepTarget
}

// NewSessionSweepJob sweeps each target in order. Targets with a nil sweeper are
// ignored.
func NewSessionSweepJob(logg *logger.Logger, targets ...SweepTarget) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	job := &sessionSweepJob{logg: logg}
	for _, target := range targets {
		if target.Sweeper == nil {
			continue
		}
		if target.Name == "" {
			return nil, errors.New("sweep target name required")
		}
		job.targets = append(job.targets, target)
	}
	if len(job.targets) == 0 {
		return nil, errors.New("at least one sweep target required")
	}
	return job, nil
}

func (j *sessionSweepJob) Name() string { return JobSessionSweep }

func (j *sessionSweepJob) Run(ctx context.Context) (int64, error) {
	var total int64
	for _, target := range j.targets {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		removed := target.Sweeper.Sweep()
		if removed > 0 {
			j.logg.Debug(j.logg.WithFields(ctx, map[string]any{
				"target":  target.Name,
				"removed": removed,
			}), "sessions swept")
		}
		total += int64(removed)
	}
	return total, nil
}

type storagePurgeJob struct {
	purger storage.Purger
}

// NewStoragePurgeJob removes expired storage entries that were never read again,
// mostly consultation flags of visitors who left.
func NewStoragePurgeJob(purger storage.Purger) (Job, error) {
	if purger == nil {
		return nil, errors.New("purger required")
	}
	return &storagePurgeJob{purger: purger}, nil
}

func (j *storagePurgeJob) Name() string { return JobStoragePurge }

func (j *storagePurgeJob) Run(ctx context.Context) (int64, error) {
	removed, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return removed, fmt.Errorf("purge expired entries: %w", err)
	}
	return removed, nil
}
