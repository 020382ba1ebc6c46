package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/microip/storefront-backend/internal/pricing"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/metrics"
)

// Provider creates payment intents upstream. pkg/stripe.Client satisfies it.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (string, error)
}

// IntentRequest is the body of the payment intent endpoint. Amount is in major units.
type IntentRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency string           `json:"currency" validate:"omitempty,len=3,alpha"`
}

type Intent struct {
	ClientSecret string `json:"clientSecret"`
}

type Service struct {
	provider        Provider
	defaultCurrency string
	metrics         *metrics.CheckoutMetrics
	logg            *logger.Logger
}

// NewService builds the service. A nil provider is allowed so the API can boot without
// payment credentials; every request then fails with a configuration error.
func NewService(provider Provider, defaultCurrency string, m *metrics.CheckoutMetrics, logg *logger.Logger) *Service {
	currency := strings.ToLower(strings.TrimSpace(defaultCurrency))
	if currency == "" {
		currency = "usd"
	}
	return &Service{provider: provider, defaultCurrency: currency, metrics: m, logg: logg}
}

// CreateIntent validates the amount, converts it to minor units and asks the provider for
// a client secret.
func (s *Service) CreateIntent(ctx context.Context, req IntentRequest, idempotencyKey string) (Intent, error) {
	if req.Amount == nil {
		s.metrics.IncPaymentIntent("invalid")
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}
	if !req.Amount.IsPositive() {
		s.metrics.IncPaymentIntent("invalid")
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than 0")
	}
	minor, ok := pricing.ToMinorUnits(*req.Amount)
	if !ok {
		s.metrics.IncPaymentIntent("invalid")
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "amount is too large")
	}
	if minor < 1 {
		s.metrics.IncPaymentIntent("invalid")
		return Intent{}, pkgerrors.New(pkgerrors.CodeValidation, "amount is below the smallest currency unit")
	}

	if s.provider == nil {
		s.metrics.IncPaymentIntent("not_configured")
		return Intent{}, pkgerrors.New(pkgerrors.CodeConfiguration, "payment provider is not configured")
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"amount_minor": minor, "currency": currency})
	secret, err := s.provider.CreatePaymentIntent(ctx, minor, currency, idempotencyKey)
	if err != nil {
		s.metrics.IncPaymentIntent("provider_error")
		return Intent{}, err
	}

	s.metrics.IncPaymentIntent("created")
	s.logg.Info(ctx, "payment intent created")
	return Intent{ClientSecret: secret}, nil
}
