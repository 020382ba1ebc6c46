package controllers

import (
	"net/http"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/pkg/logger"
)

// SessionPing lets the front end establish the visitor cookie before its first
// stateful call.
func SessionPing(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid, err := sessionID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body := map[string]string{"status": "ok", "sessionId": sid}
		if vid, err := visitorID(r.Context()); err == nil {
			body["visitorId"] = vid
		}
		responses.WriteSuccess(w, body)
	}
}
