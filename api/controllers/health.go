package controllers

import (
	"context"
	"net/http"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/internal/health"
	"github.com/microip/storefront-backend/pkg/config"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
)

const envHeader = "X-MicroIP-Env"

// HealthReporter runs the dependency checks behind the health endpoint.
type HealthReporter interface {
	Report(ctx context.Context) (health.Status, *health.Failure)
}

// Health answers GET /api/health with the raw status document.
func Health(reporter HealthReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status, failure := reporter.Report(ctx)
		if failure != nil {
			logg.Warn(logg.WithField(ctx, "error", failure.Error), "health.check_failed")
			responses.WriteJSON(w, http.StatusInternalServerError, failure)
			return
		}
		responses.WriteJSON(w, http.StatusOK, status)
	}
}

// HealthLive reports that the process is serving; it checks no dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady is the enveloped variant of Health for orchestrator probes.
func HealthReady(cfg *config.Config, reporter HealthReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if _, failure := reporter.Report(r.Context()); failure != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, failure.Error))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
