package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/scheduling"
	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/metrics"
)

type Options struct {
	Carts   *cart.Registry
	Flags   storage.Backend
	FlagTTL time.Duration
	Widgets scheduling.Factory
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
	// IdleTTL evicts guards not used for this long; zero keeps them forever.
	IdleTTL time.Duration
}

// Manager owns one Guard per visitor session.
type Manager struct {
	opts   Options
	now    func() time.Time
	mu     sync.Mutex
	guards map[string]*Guard
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts, now: time.Now, guards: map[string]*Guard{}}
}

// For returns the session's guard, creating it on first use.
func (m *Manager) For(sessionID string) *Guard {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guards[sessionID]
	if !ok {
		g = &Guard{
			sessionID: sessionID,
			carts:     m.opts.Carts,
			flags:     m.opts.Flags,
			flagTTL:   m.opts.FlagTTL,
			newWidget: m.opts.Widgets,
			metrics:   m.opts.Metrics,
			logg:      m.opts.Logger,
		}
		m.guards[sessionID] = g
	}
	g.mu.Lock()
	g.lastSeen = m.now()
	g.mu.Unlock()
	return g
}

// Sweep closes and forgets guards idle past IdleTTL.
func (m *Manager) Sweep() int {
	if m.opts.IdleTTL <= 0 {
		return 0
	}
	m.mu.Lock()
	now := m.now()
	var idle []*Guard
	for id, g := range m.guards {
		g.mu.Lock()
		stale := now.Sub(g.lastSeen) > m.opts.IdleTTL
		g.mu.Unlock()
		if stale {
			idle = append(idle, g)
			delete(m.guards, id)
		}
	}
	m.mu.Unlock()

	for _, g := range idle {
		g.Close()
		logg := m.opts.Logger
		logg.Debug(logg.WithFields(context.Background(), map[string]any{
			"session_id": g.sessionID,
			"state":      g.State(),
		}), "evicted idle checkout guard")
	}
	return len(idle)
}

// Close unmounts every widget.
func (m *Manager) Close() {
	m.mu.Lock()
	guards := make([]*Guard, 0, len(m.guards))
	for _, g := range m.guards {
		guards = append(guards, g)
	}
	m.guards = map[string]*Guard{}
	m.mu.Unlock()

	for _, g := range guards {
		g.Close()
	}
}
