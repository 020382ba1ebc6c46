package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string                      { return s.name }
func (s *stubJob) Run(context.Context) (int64, error) { return 0, nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	sweep := &stubJob{name: JobSessionSweep}
	purge := &stubJob{name: JobStoragePurge}

	assert.True(t, registry.Register(sweep))
	assert.True(t, registry.Register(purge))
	assert.False(t, registry.Register(nil))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, sweep, jobs[0])
	assert.Same(t, purge, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "Jobs must return a copy")
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "a"}, nil, &stubJob{name: "a"})
	assert.Equal(t, 1, registry.Len())

	var zero Registry
	assert.True(t, zero.Register(&stubJob{name: "b"}), "zero registry is usable")
	assert.Equal(t, 1, zero.Len())
}
