package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/microip/storefront-backend/api/responses"
	"github.com/microip/storefront-backend/pkg/config"
	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/logger"
	"github.com/microip/storefront-backend/pkg/session"
)

// Session resolves the visitor session from the signed cookie. Requests without a valid
// cookie get a fresh session and a new cookie; nothing here ever rejects a visitor.
//
// A second, long-lived visitor cookie carries the id the wishlist is stored under. It is
// re-issued with the same id once half its lifetime has passed, so a returning visitor
// keeps the wishlist across any number of expired sessions.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return sessionWithClock(cfg, logg, time.Now)
}

func sessionWithClock(cfg config.SessionConfig, logg *logger.Logger, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sid string
			if cookie, err := r.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				claims, parseErr := session.Parse(cfg, cookie.Value)
				if parseErr == nil {
					sid = claims.SessionID
				} else if logg != nil {
					logg.Debug(logg.WithField(ctx, "reason", parseErr.Error()), "session.cookie_rejected")
				}
			}

			if sid == "" {
				token, claims, err := session.Mint(cfg, now(), "")
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "session unavailable"))
					return
				}
				sid = claims.SessionID
				setTokenCookie(w, cfg, cfg.CookieName, token, claims, cfg.TTL)
				if logg != nil {
					logg.Debug(logg.WithSessionID(ctx, sid), "session.minted")
				}
			}

			visitorID, err := resolveVisitor(ctx, w, r, cfg, logg, now())
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "session unavailable"))
				return
			}

			ctx = session.WithID(ctx, sid)
			ctx = session.WithVisitorID(ctx, visitorID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sid)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveVisitor returns the visitor id from the visitor cookie, minting a new one when the
// cookie is missing or invalid and re-issuing it when it is past half its lifetime.
func resolveVisitor(ctx context.Context, w http.ResponseWriter, r *http.Request, cfg config.SessionConfig, logg *logger.Logger, now time.Time) (string, error) {
	name := cfg.VisitorCookie()

	var current *session.Claims
	if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
		claims, parseErr := session.ParseVisitor(cfg, cookie.Value)
		if parseErr == nil {
			current = claims
		} else if logg != nil {
			logg.Debug(logg.WithField(ctx, "reason", parseErr.Error()), "session.visitor_cookie_rejected")
		}
	}
	if current != nil && !current.NeedsRenewal(now) {
		return current.SessionID, nil
	}

	var id string
	if current != nil {
		id = current.SessionID
	}
	token, claims, err := session.MintVisitor(cfg, now, id)
	if err != nil {
		return "", err
	}
	setTokenCookie(w, cfg, name, token, claims, cfg.VisitorLifetime())
	if logg != nil {
		event := "session.visitor_minted"
		if current != nil {
			event = "session.visitor_renewed"
		}
		logg.Debug(logg.WithField(ctx, "visitor_id", claims.SessionID), event)
	}
	return claims.SessionID, nil
}

func setTokenCookie(w http.ResponseWriter, cfg config.SessionConfig, name, token string, claims *session.Claims, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
