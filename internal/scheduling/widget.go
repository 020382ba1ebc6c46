// Package scheduling adapts third-party consultation scheduling widgets.
package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/logger"
)

var ErrWidgetUnavailable = errors.New("scheduling widget unavailable")

// Message is the data of a window "message" event posted by an embedded widget and
// relayed by the browser.
type Message struct {
	Event   string          `json:"event" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ScheduledEvent is delivered to OnScheduled subscribers.
type ScheduledEvent struct {
	Provider   string          `json:"provider"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

// Embed tells the client what to render. When Ready is false the client offers a retry
// and a link that opens FallbackURL in a new tab.
type Embed struct {
	Provider    string `json:"provider"`
	URL         string `json:"url"`
	Ready       bool   `json:"ready"`
	FallbackURL string `json:"fallbackUrl"`
	Attempts    int    `json:"attempts"`
}

// Widget is the scheduling capability the checkout flow depends on.
type Widget interface {
	// Listen starts accepting messages without waiting for readiness. Mount implies it.
	Listen()
	// Mount prepares the widget. On readiness failure it still returns the fallback embed
	// together with ErrWidgetUnavailable.
	Mount(ctx context.Context) (Embed, error)
	// OnScheduled registers fn for "scheduled" events and returns an unsubscribe func.
	OnScheduled(fn func(ScheduledEvent)) func()
	// Receive relays one widget message. It reports whether the message was a scheduled
	// event that reached subscribers.
	Receive(ctx context.Context, msg Message) bool
	// Unmount stops listening; later messages are ignored.
	Unmount()
}

// Factory builds a fresh widget per visitor.
type Factory func() Widget

// NewFactory returns the widget factory for the configured provider.
func NewFactory(cfg config.SchedulingConfig, logg *logger.Logger) (Factory, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", ProviderCalendly:
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, fmt.Errorf("scheduling url is required")
		}
		prober := NewHTTPProber(cfg.ProbeTimeout)
		return func() Widget {
			return NewCalendly(cfg, prober, logg)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported scheduling provider %q", cfg.Provider)
	}
}
