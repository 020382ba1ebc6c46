package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/consultation"
	"github.com/microip/storefront-backend/internal/scheduling"
	"github.com/microip/storefront-backend/internal/storage"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/metrics"
)

const flagWriteTimeout = 5 * time.Second

// Guard is one visitor's checkout state machine.
type Guard struct {
	sessionID string
	carts     *cart.Registry
	flags     storage.Backend
	flagTTL   time.Duration
	newWidget scheduling.Factory
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger

	// mounts collapses concurrent Mount calls per widget; readiness probing runs without mu held.
	mounts singleflight.Group

	mu          sync.Mutex
	state       State
	completed   bool
	scheduled   bool
	widget      scheduling.Widget
	unsubscribe func()
	lastSeen    time.Time
}

// State returns the last state the guard routed to.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Evaluate decides where a visitor requesting page should be.
func (g *Guard) Evaluate(ctx context.Context, page State) (Decision, error) {
	if _, ok := ParsePage(string(page)); !ok {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout page").
			WithDetails(map[string]any{"page": page})
	}
	g.mu.Lock()
	d, widget := g.evaluateLocked(ctx, page)
	g.mu.Unlock()

	g.mount(ctx, &d, widget)
	return d, nil
}

// Proceed is the cart's "checkout" button: it routes to consultation when a booking is
// still needed, otherwise to checkout.
func (g *Guard) Proceed(ctx context.Context) Decision {
	g.mu.Lock()
	d, widget := g.evaluateLocked(ctx, StateCheckout)
	g.mu.Unlock()

	d.Page = StateCart
	d.Redirect = d.State.Path()
	g.mount(ctx, &d, widget)
	return d
}

// ObserveMessage relays a scheduling widget message. A scheduled event sets the session
// flag and moves the guard from consultation to checkout. A guard without a widget starts
// listening first; readiness is not awaited.
func (g *Guard) ObserveMessage(ctx context.Context, msg scheduling.Message) (bool, Decision) {
	g.mu.Lock()
	widget := g.ensureWidgetLocked()
	g.mu.Unlock()

	accepted := false
	if widget != nil {
		accepted = widget.Receive(ctx, msg)
	}

	g.mu.Lock()
	page := g.state
	if page == StateCatalog || page == "" {
		page = StateCart
	}
	d, widget := g.evaluateLocked(ctx, page)
	g.mu.Unlock()

	g.mount(ctx, &d, widget)
	return accepted, d
}

// Complete finishes the order: the cart and the consultation flag are cleared and the
// guard enters success. It fails when the visitor could not be on the checkout page.
func (g *Guard) Complete(ctx context.Context) (Decision, error) {
	g.mu.Lock()
	d, widget := g.evaluateLocked(ctx, StateCheckout)
	if d.State != StateCheckout {
		g.mu.Unlock()
		g.mount(ctx, &d, widget)
		return d, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be completed from the current state").
			WithDetails(map[string]any{"state": d.State, "redirect": d.Redirect})
	}
	defer g.mu.Unlock()

	g.carts.For(g.sessionID).Clear()
	if err := g.flags.Delete(ctx, g.flagKey()); err != nil {
		g.logg.Error(ctx, "failed to clear consultation flag", err)
	}
	g.scheduled = false
	g.completed = true
	g.transitionLocked(ctx, StateSuccess)

	return Decision{
		Page:      StateSuccess,
		State:     StateSuccess,
		Partition: consultation.Separate(nil),
	}, nil
}

// Close unmounts the widget; used when the guard is evicted.
func (g *Guard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unmountLocked()
}

// evaluateLocked routes page and returns the widget the caller must mount once mu is
// released; it is nil unless the decision is consultation.
func (g *Guard) evaluateLocked(ctx context.Context, page State) (Decision, scheduling.Widget) {
	items := g.carts.For(g.sessionID).Items()
	partition := consultation.Separate(items)
	scheduled := g.readFlag(ctx)

	d := Decision{
		Page:                  page,
		ConsultationScheduled: scheduled,
		ItemCount:             itemCount(items),
		Partition:             partition,
	}

	switch {
	case page == StateSuccess:
		if g.completed {
			d.State = StateSuccess
		} else {
			d.State = StateCatalog
		}
	case page == StateCart:
		d.State = StateCart
	case len(items) == 0:
		d.State = StateCatalog
	case len(partition.DirectCheckout) < len(items) && !scheduled:
		d.State = StateConsultation
	default:
		d.State = StateCheckout
	}

	if page != StateSuccess {
		g.completed = false
	}
	if d.State != page {
		d.Redirect = d.State.Path()
	}

	g.transitionLocked(ctx, d.State)
	if d.State != StateConsultation {
		g.unmountLocked()
		return d, nil
	}
	return d, g.ensureWidgetLocked()
}

func (g *Guard) transitionLocked(ctx context.Context, to State) {
	from := g.state
	if from == to {
		return
	}
	g.state = to
	if from == "" {
		return
	}
	g.metrics.IncTransition(string(from), string(to))
	g.logg.Info(g.logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "checkout transition")
}

// ensureWidgetLocked creates the visitor's widget, subscribes the guard and starts
// listening. It returns nil when no widget factory is configured.
func (g *Guard) ensureWidgetLocked() scheduling.Widget {
	if g.widget == nil && g.newWidget != nil {
		g.widget = g.newWidget()
		g.unsubscribe = g.widget.OnScheduled(g.onScheduled)
		g.widget.Listen()
	}
	return g.widget
}

// mount fills the decision's embed. It must be called without mu held: Mount may poll
// the widget's readiness for several seconds.
func (g *Guard) mount(ctx context.Context, d *Decision, widget scheduling.Widget) {
	if d.State != StateConsultation {
		return
	}
	if widget == nil {
		d.Widget = &scheduling.Embed{}
		d.WidgetError = scheduling.ErrWidgetUnavailable.Error()
		return
	}

	type result struct {
		embed scheduling.Embed
		err   error
	}
	v, _, _ := g.mounts.Do(fmt.Sprintf("%p", widget), func() (any, error) {
		embed, err := widget.Mount(ctx)
		g.metrics.IncWidgetMount(embed.Ready)
		return result{embed: embed, err: err}, nil
	})
	res := v.(result)

	g.mu.Lock()
	if g.widget != widget {
		// the guard left consultation while probing
		widget.Unmount()
	}
	g.mu.Unlock()

	d.Widget = &res.embed
	if res.err != nil {
		d.WidgetError = res.err.Error()
	}
}

func (g *Guard) unmountLocked() {
	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	if g.widget != nil {
		g.widget.Unmount()
		g.widget = nil
	}
}

// onScheduled runs inside widget.Receive, after ObserveMessage released the lock.
func (g *Guard) onScheduled(ev scheduling.ScheduledEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), flagWriteTimeout)
	defer cancel()
	ctx = g.logg.WithFields(ctx, map[string]any{"session_id": g.sessionID, "event": ev.Event})

	if err := g.flags.Set(ctx, g.flagKey(), "true", g.flagTTL); err != nil {
		g.logg.Error(ctx, "failed to persist consultation flag", err)
	}

	g.mu.Lock()
	g.scheduled = true
	g.mu.Unlock()

	g.metrics.IncConsultationScheduled()
	g.logg.Info(ctx, "consultation scheduled")
}

// readFlag checks session storage on every evaluation. The in-memory copy covers a
// failed flag write.
func (g *Guard) readFlag(ctx context.Context) bool {
	if g.scheduled {
		return true
	}
	value, err := g.flags.Get(ctx, g.flagKey())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			g.logg.Warn(g.logg.WithField(ctx, "error", err.Error()), "failed to read consultation flag")
		}
		return false
	}
	return value == "true"
}

func (g *Guard) flagKey() string {
	return storage.Key(FlagScope, g.sessionID)
}

func itemCount(items []cart.Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
