package controllers

import (
	"net/http"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/api/validators"
	"github.com/microip/storefront-backend/internal/checkout"
	"github.com/microip/storefront-backend/internal/scheduling"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
)

// GuardSource hands out the visitor's checkout state machine.
type GuardSource interface {
	For(sessionID string) *checkout.Guard
}

type consultationEventResponse struct {
	Accepted bool              `json:"accepted"`
	Decision checkout.Decision `json:"decision"`
}

var checkoutPages = []string{
	string(checkout.StateCart),
	string(checkout.StateConsultation),
	string(checkout.StateCheckout),
	string(checkout.StateSuccess),
}

func visitorGuard(r *http.Request, guards GuardSource) (*checkout.Guard, error) {
	if guards == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable")
	}
	sid, err := sessionID(r.Context())
	if err != nil {
		return nil, err
	}
	return guards.For(sid), nil
}

// CheckoutRoute tells the front end whether the requested page may render or where to
// redirect instead. ?page defaults to checkout.
func CheckoutRoute(guards GuardSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		page, err := validators.QueryOneOf(r, "page", string(checkout.StateCheckout), checkoutPages...)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		guard, err := visitorGuard(r, guards)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		decision, err := guard.Evaluate(ctx, checkout.State(page))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, decision)
	}
}

// CheckoutProceed is the cart page's checkout button.
func CheckoutProceed(guards GuardSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guard, err := visitorGuard(r, guards)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, guard.Proceed(r.Context()))
	}
}

// CheckoutComplete records a successful payment: the cart is cleared and the visitor is
// routed to the success page.
func CheckoutComplete(guards GuardSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		guard, err := visitorGuard(r, guards)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		decision, err := guard.Complete(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		logg.Info(ctx, "checkout.completed")
		responses.WriteSuccess(w, decision)
	}
}

// ConsultationWidget returns the scheduling embed for the consultation page, or the
// redirect when the visitor does not need one.
func ConsultationWidget(guards GuardSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		guard, err := visitorGuard(r, guards)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		decision, err := guard.Evaluate(ctx, checkout.StateConsultation)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if decision.WidgetError != "" {
			logg.Warn(logg.WithField(ctx, "widget_error", decision.WidgetError), "consultation.widget_unavailable")
		}
		responses.WriteSuccess(w, decision)
	}
}

// ConsultationEvent relays a message the embedded scheduling widget posted to the page.
// Messages from other sources are acknowledged with accepted=false.
func ConsultationEvent(guards GuardSource, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		guard, err := visitorGuard(r, guards)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var msg scheduling.Message
		if err := validators.DecodeJSONBody(w, r, &msg); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		accepted, decision := guard.ObserveMessage(ctx, msg)
		responses.WriteSuccess(w, consultationEventResponse{Accepted: accepted, Decision: decision})
	}
}
