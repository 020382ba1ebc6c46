package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microip/storefront-backend/internal/cart"
	"github.com/microip/storefront-backend/internal/scheduling"
	"github.com/microip/storefront-backend/internal/storage"
	"github.com/microip/storefront-backend/pkg/config"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
)

type fixture struct {
	carts   *cart.Registry
	flags   *storage.Memory
	widgets []*scheduling.Calendly
	manager *Manager
}

func newFixture(t *testing.T, probe scheduling.Prober) *fixture {
	t.Helper()
	f := &fixture{carts: cart.NewRegistry(time.Hour), flags: storage.NewMemory()}
	cfg := config.SchedulingConfig{
		URL:            "https://calendly.com/micro-ip/consultation",
		ReadyAttempts:  2,
		ReadyInterval:  time.Millisecond,
		SkipReadyProbe: probe == nil,
	}
	f.manager = NewManager(Options{
		Carts:   f.carts,
		Flags:   f.flags,
		FlagTTL: time.Hour,
		Widgets: func() scheduling.Widget {
			w := scheduling.NewCalendly(cfg, probe, nil)
			f.widgets = append(f.widgets, w)
			return w
		},
		IdleTTL: time.Hour,
	})
	return f
}

var (
	pricedItem   = cart.Item{ID: "1", Name: "Arm", Price: "$500"}
	onDemandItem = cart.Item{ID: "2", Name: "Vision", Price: "Contact for pricing"}
	scheduledMsg = scheduling.Message{Event: scheduling.CalendlyScheduledEvent}
)

func TestEmptyCartRedirectsToCatalog(t *testing.T) {
	f := newFixture(t, nil)
	g := f.manager.For("s1")
	ctx := context.Background()

	for _, page := range []State{StateConsultation, StateCheckout} {
		d, err := g.Evaluate(ctx, page)
		require.NoError(t, err)
		assert.Equal(t, StateCatalog, d.State, "page %s", page)
		assert.Equal(t, "/products", d.Redirect)
	}

	d, err := g.Evaluate(ctx, StateCart)
	require.NoError(t, err)
	assert.Equal(t, StateCart, d.State)
	assert.Empty(t, d.Redirect)

	proceed := g.Proceed(ctx)
	assert.Equal(t, StateCatalog, proceed.State)
	assert.Equal(t, "/products", proceed.Redirect)
}

func TestDirectCheckoutSkipsConsultation(t *testing.T) {
	f := newFixture(t, nil)
	g := f.manager.For("s1")
	ctx := context.Background()
	f.carts.For("s1").AddItem(pricedItem)

	proceed := g.Proceed(ctx)
	assert.Equal(t, StateCheckout, proceed.State)
	assert.Equal(t, "/checkout", proceed.Redirect)

	d, err := g.Evaluate(ctx, StateConsultation)
	require.NoError(t, err)
	assert.Equal(t, StateCheckout, d.State)
	assert.Equal(t, "/checkout", d.Redirect)
	assert.Empty(t, f.widgets, "no widget without a consultation")
}

func TestConsultationGateOpensOnScheduledEvent(t *testing.T) {
	f := newFixture(t, nil)
	g := f.manager.For("s1")
	ctx := context.Background()
	f.carts.For("s1").AddItem(pricedItem)
	f.carts.For("s1").AddItem(onDemandItem)

	d, err := g.Evaluate(ctx, StateCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateConsultation, d.State)
	assert.Equal(t, "/consultation", d.Redirect)
	require.NotNil(t, d.Widget)
	assert.True(t, d.Widget.Ready)
	require.Len(t, d.Partition.RequiresConsultation, 1)
	require.Len(t, d.Partition.DirectCheckout, 1)

	accepted, _ := g.ObserveMessage(ctx, scheduling.Message{Event: "calendly.date_and_time_selected"})
	assert.False(t, accepted)
	assert.Equal(t, StateConsultation, g.State())

	accepted, after := g.ObserveMessage(ctx, scheduledMsg)
	assert.True(t, accepted)
	assert.Equal(t, StateCheckout, after.State)
	assert.True(t, after.ConsultationScheduled)

	flag, err := f.flags.Get(ctx, "mip:consultation_scheduled:s1")
	require.NoError(t, err)
	assert.Equal(t, "true", flag)

	require.Len(t, f.widgets, 1)
	assert.False(t, f.widgets[0].Mounted(), "leaving consultation unmounts the widget")

	d, err = g.Evaluate(ctx, StateCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateCheckout, d.State)
	assert.Empty(t, d.Redirect)
}

func TestFlagIsReadFromSessionStorage(t *testing.T) {
	f := newFixture(t, nil)
	g := f.manager.For("s1")
	ctx := context.Background()
	f.carts.For("s1").AddItem(onDemandItem)

	require.NoError(t, f.flags.Set(ctx, "mip:consultation_scheduled:s1", "true", time.Hour))

	d, err := g.Evaluate(ctx, StateCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateCheckout, d.State)
	assert.True(t, d.ConsultationScheduled)
}

func TestCompleteClearsCartAndFlag(t *testing.T) {
	f := newFixture(t, nil)
	g := f.manager.For("s1")
	ctx := context.Background()
	f.carts.For("s1").AddItem(onDemandItem)

	_, err := g.Complete(ctx)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	g.ObserveMessage(ctx, scheduledMsg)
	d, err := g.Complete(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, d.State)
	assert.True(t, f.carts.For("s1").IsEmpty())

	_, err = f.flags.Get(ctx, "mip:consultation_scheduled:s1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	success, err := g.Evaluate(ctx, StateSuccess)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, success.State)

	checkoutPage, err := g.Evaluate(ctx, StateCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateCatalog, checkoutPage.State)

	success, err = g.Evaluate(ctx, StateSuccess)
	require.NoError(t, err)
	assert.Equal(t, StateCatalog, success.State, "success is only shown right after completion")

	f.carts.For("s1").AddItem(onDemandItem)
	d, err = g.Evaluate(ctx, StateCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateConsultation, d.State, "a new order needs a new consultation")
}

func TestSuccessWithoutOrderRedirects(t *testing.T) {
	f := newFixture(t, nil)
	d, err := f.manager.For("s1").Evaluate(context.Background(), StateSuccess)
	require.NoError(t, err)
	assert.Equal(t, StateCatalog, d.State)
}

func TestUnknownPage(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.manager.For("s1").Evaluate(context.Background(), State("payment"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestWidgetUnavailableOffersFallback(t *testing.T) {
	f := newFixture(t, func(context.Context, string) error { return errors.New("blocked") })
	g := f.manager.For("s1")
	f.carts.For("s1").AddItem(onDemandItem)

	d, err := g.Evaluate(context.Background(), StateConsultation)
	require.NoError(t, err)
	assert.Equal(t, StateConsultation, d.State)
	require.NotNil(t, d.Widget)
	assert.False(t, d.Widget.Ready)
	assert.Equal(t, "https://calendly.com/micro-ip/consultation", d.Widget.FallbackURL)
	assert.NotEmpty(t, d.WidgetError)

	accepted, after := g.ObserveMessage(context.Background(), scheduledMsg)
	assert.True(t, accepted, "a booking made through the fallback still counts")
	assert.Equal(t, StateCheckout, after.State)
}

func TestObserveMessageListensForFreshGuard(t *testing.T) {
	f := newFixture(t, nil)
	f.carts.For("s1").AddItem(onDemandItem)

	accepted, d := f.manager.For("s1").ObserveMessage(context.Background(), scheduledMsg)
	assert.True(t, accepted)
	assert.True(t, d.ConsultationScheduled)
}

func TestSlowWidgetDoesNotBlockOtherPages(t *testing.T) {
	probing := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f := newFixture(t, func(ctx context.Context, _ string) error {
		once.Do(func() { close(probing) })
		select {
		case <-release:
		case <-ctx.Done():
		}
		return errors.New("widget unreachable")
	})
	g := f.manager.For("s1")
	ctx := context.Background()
	f.carts.For("s1").AddItem(onDemandItem)

	mounted := make(chan Decision, 1)
	go func() {
		d, _ := g.Evaluate(ctx, StateConsultation)
		mounted <- d
	}()
	<-probing

	start := time.Now()
	d, err := g.Evaluate(ctx, StateCart)
	require.NoError(t, err)
	assert.Equal(t, StateCart, d.State)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "cart page waited on the widget readiness check")

	close(release)
	consultationPage := <-mounted
	require.NotNil(t, consultationPage.Widget)
	assert.False(t, consultationPage.Widget.Ready)
	assert.NotEmpty(t, consultationPage.WidgetError)
}

func TestObserveMessageDoesNotWaitForReadiness(t *testing.T) {
	checked := make(chan struct{}, 1)
	f := newFixture(t, func(context.Context, string) error {
		checked <- struct{}{}
		return nil
	})
	f.carts.For("s1").AddItem(onDemandItem)

	accepted, d := f.manager.For("s1").ObserveMessage(context.Background(), scheduledMsg)
	assert.True(t, accepted)
	assert.True(t, d.ConsultationScheduled)
	assert.Empty(t, checked, "relaying a message must not wait on widget readiness")
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.carts.For("a").AddItem(onDemandItem)
	f.carts.For("b").AddItem(onDemandItem)

	f.manager.For("a").ObserveMessage(ctx, scheduledMsg)

	d, err := f.manager.For("b").Evaluate(ctx, StateCheckout)
	require.NoError(t, err)
	assert.Equal(t, StateConsultation, d.State)
}

func TestManagerSweepUnmountsIdleWidgets(t *testing.T) {
	f := newFixture(t, nil)
	f.carts.For("s1").AddItem(onDemandItem)
	_, err := f.manager.For("s1").Evaluate(context.Background(), StateConsultation)
	require.NoError(t, err)
	require.Len(t, f.widgets, 1)
	assert.True(t, f.widgets[0].Mounted())

	later := time.Now().Add(2 * time.Hour)
	f.manager.now = func() time.Time { return later }
	assert.Equal(t, 1, f.manager.Sweep())
	assert.False(t, f.widgets[0].Mounted())
}
