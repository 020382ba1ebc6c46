package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/api/validators"
	"github.com/microip/storefront-backend/internal/payments"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
)

// IntentCreator creates payment intents.
type IntentCreator interface {
	CreateIntent(ctx context.Context, req payments.IntentRequest, idempotencyKey string) (payments.Intent, error)
}

// PaymentIntentCreate answers POST /api/payment-intent. The body shapes are fixed for the
// front end: {clientSecret} on success and {error} otherwise, never the envelope.
func PaymentIntentCreate(svc IntentCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WritePlainError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "payment provider is not configured"))
			return
		}

		var req payments.IntentRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WritePlainError(ctx, logg, w, err)
			return
		}

		idempotencyKey := validators.SanitizeString(r.Header.Get("Idempotency-Key"), 255)
		intent, err := svc.CreateIntent(ctx, req, strings.TrimSpace(idempotencyKey))
		if err != nil {
			responses.WritePlainError(ctx, logg, w, err)
			return
		}
		responses.WriteJSON(w, http.StatusOK, intent)
	}
}
