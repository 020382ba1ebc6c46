package scheduling

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/microip/storefront-backend/pkg/config"
	"github.com/microip/storefront-backend/pkg/logger"
)

const (
	ProviderCalendly = "calendly"

	CalendlyEventPrefix    = "calendly."
	CalendlyScheduledEvent = "calendly.event_scheduled"

	defaultReadyInterval = 500 * time.Millisecond
)

// Prober checks that the widget script/page can be reached.
type Prober func(ctx context.Context, url string) error

// NewHTTPProber issues a GET against the widget URL and treats any status below 400 as
// ready.
func NewHTTPProber(timeout time.Duration) Prober {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("widget probe returned %d", resp.StatusCode)
		}
		return nil
	}
}

type subscriber struct {
	id int
	fn func(ScheduledEvent)
}

// Calendly implements Widget for Calendly inline embeds.
type Calendly struct {
	url       string
	attempts  int
	interval  time.Duration
	skipProbe bool
	probe     Prober
	logg      *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	mounted bool
	embed   *Embed
	nextID  int
	subs    []subscriber
}

func NewCalendly(cfg config.SchedulingConfig, probe Prober, logg *logger.Logger) *Calendly {
	attempts := cfg.ReadyAttempts
	if attempts <= 0 {
		attempts = 1
	}
	interval := cfg.ReadyInterval
	if interval <= 0 {
		interval = defaultReadyInterval
	}
	return &Calendly{
		url:       strings.TrimSpace(cfg.URL),
		attempts:  attempts,
		interval:  interval,
		skipProbe: cfg.SkipReadyProbe,
		probe:     probe,
		logg:      logg,
		now:       time.Now,
	}
}

func (c *Calendly) Listen() {
	c.mu.Lock()
	c.mounted = true
	c.mu.Unlock()
}

// Mount polls readiness a bounded number of times. A ready embed is cached until Unmount;
// a failed one is not, so calling Mount again is the retry.
func (c *Calendly) Mount(ctx context.Context) (Embed, error) {
	c.mu.Lock()
	c.mounted = true
	if c.embed != nil {
		embed := *c.embed
		c.mu.Unlock()
		return embed, nil
	}
	c.mu.Unlock()

	embed := Embed{Provider: ProviderCalendly, URL: c.url, FallbackURL: c.url}
	if c.skipProbe || c.probe == nil {
		embed.Ready = true
	} else {
		attempts, err := c.pollReady(ctx)
		embed.Attempts = attempts
		if err != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"provider": ProviderCalendly,
				"attempts": attempts,
				"error":    err.Error(),
			}), "scheduling widget not ready, offering fallback")
			return embed, fmt.Errorf("%w: %v", ErrWidgetUnavailable, err)
		}
		embed.Ready = true
	}

	c.mu.Lock()
	if c.mounted {
		c.embed = &embed
	}
	c.mu.Unlock()
	return embed, nil
}

func (c *Calendly) pollReady(ctx context.Context) (int, error) {
	backoff := retry.WithMaxRetries(uint64(c.attempts-1), retry.NewConstant(c.interval))
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		if err := c.probe(ctx, c.url); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return attempts, err
}

func (c *Calendly) OnScheduled(fn func(ScheduledEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Receive accepts only calendly.* messages naming the scheduled event.
func (c *Calendly) Receive(ctx context.Context, msg Message) bool {
	event := strings.TrimSpace(msg.Event)
	if !strings.HasPrefix(event, CalendlyEventPrefix) || event != CalendlyScheduledEvent {
		return false
	}

	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		c.logg.Debug(ctx, "ignoring scheduling message for unmounted widget")
		return false
	}
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	scheduled := ScheduledEvent{
		Provider:   ProviderCalendly,
		Event:      event,
		Payload:    msg.Payload,
		ReceivedAt: c.now(),
	}
	for _, s := range subs {
		s.fn(scheduled)
	}
	return len(subs) > 0
}

// Unmount stops listening and drops subscribers and the cached embed.
func (c *Calendly) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	c.embed = nil
	c.subs = nil
}

// Mounted reports whether the widget is currently listening.
func (c *Calendly) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}
