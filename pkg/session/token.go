package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/microip/storefront-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

var ErrInvalidToken = errors.New("invalid session token")

// Token audiences keep a session token from being replayed as a visitor token and back.
const (
	AudienceSession = "session"
	AudienceVisitor = "visitor"
)

// Claims identifies an anonymous visitor. For session tokens SessionID keys the cart,
// checkout and the consultation flag; for visitor tokens it is the long-lived visitor id
// the wishlist is stored under.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Mint issues a signed session token. An empty sessionID generates a fresh one.
func Mint(cfg config.SessionConfig, now time.Time, sessionID string) (string, *Claims, error) {
	return mint(cfg, now, sessionID, cfg.TTL, AudienceSession)
}

// MintVisitor issues a visitor token valid for cfg.VisitorLifetime().
func MintVisitor(cfg config.SessionConfig, now time.Time, visitorID string) (string, *Claims, error) {
	return mint(cfg, now, visitorID, cfg.VisitorLifetime(), AudienceVisitor)
}

// Parse validates a session token's signature, issuer, audience and expiry.
func Parse(cfg config.SessionConfig, tokenString string) (*Claims, error) {
	return parse(cfg, tokenString, AudienceSession)
}

// ParseVisitor is Parse for visitor tokens.
func ParseVisitor(cfg config.SessionConfig, tokenString string) (*Claims, error) {
	return parse(cfg, tokenString, AudienceVisitor)
}

func mint(cfg config.SessionConfig, now time.Time, id string, ttl time.Duration, audience string) (string, *Claims, error) {
	if cfg.Secret == "" {
		return "", nil, fmt.Errorf("session secret is required")
	}
	if ttl <= 0 {
		return "", nil, fmt.Errorf("%s ttl must be positive", audience)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	claims := &Claims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   id,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("signing %s token: %w", audience, err)
	}
	return signed, claims, nil
}

func parse(cfg config.SessionConfig, tokenString, audience string) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithAudience(audience),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return nil, fmt.Errorf("%w: missing sid", ErrInvalidToken)
	}
	return claims, nil
}

// NeedsRenewal reports whether less than half of the token's lifetime is left.
func (c *Claims) NeedsRenewal(now time.Time) bool {
	if c == nil || c.ExpiresAt == nil || c.IssuedAt == nil {
		return true
	}
	lifetime := c.ExpiresAt.Sub(c.IssuedAt.Time)
	return c.ExpiresAt.Sub(now) < lifetime/2
}
