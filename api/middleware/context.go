package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/session"
)

// ErrorWriter renders a failed request. Routes with a fixed error shape pass
// responses.WritePlainError; everything else uses responses.WriteError.
type ErrorWriter func(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error)

func sessionIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	sid, _ := session.IDFromContext(r.Context())
	return sid
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
