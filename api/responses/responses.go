package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError writes the {error:{code,message,details}} envelope and logs the failure.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := normalize(err)
	meta := pkgerrors.MetadataFor(typed.Code())

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: publicMessage(typed),
		},
	}
	if meta.DetailsAllowed {
		if details := typed.Details(); details != nil {
			payload.Error.Details = details
		}
	}

	logFailure(ctx, logg, err, typed)
	WriteJSON(w, typed.HTTPStatus(), payload)
}

// WritePlainError writes the flat {"error": "..."} body used by the payment intent
// endpoint, with the status carried by the error.
func WritePlainError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := normalize(err)
	logFailure(ctx, logg, err, typed)
	WriteJSON(w, typed.HTTPStatus(), types.PlainError{Error: publicMessage(typed)})
}

// WriteJSON writes payload as-is with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}

func normalize(err error) *pkgerrors.Error {
	if err == nil {
		err = errors.New("unknown error")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
}

func publicMessage(typed *pkgerrors.Error) string {
	msg := pkgerrors.MetadataFor(typed.Code()).PublicMessage
	switch typed.Code() {
	case pkgerrors.CodeValidation,
		pkgerrors.CodeNotFound,
		pkgerrors.CodeConflict,
		pkgerrors.CodeStateConflict,
		pkgerrors.CodeIdempotency,
		pkgerrors.CodeRateLimit,
		pkgerrors.CodeConfiguration,
		pkgerrors.CodeProvider:
		if m := typed.Message(); m != "" {
			msg = m
		}
	}
	return msg
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error) {
	if logg == nil {
		return
	}
	if pkgerrors.As(err) == nil {
		err = typed
	}
	ctx = logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
	if typed.HTTPStatus() >= http.StatusInternalServerError {
		logg.Error(ctx, "request.error", err)
		return
	}
	logg.Warn(ctx, "request.rejected")
}
