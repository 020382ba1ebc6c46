package controllers

import (
	"context"

	pkgerrors "github.com/microip/storefront-backend/pkg/errors"
	"github.com/microip/storefront-backend/pkg/session"
)

func sessionID(ctx context.Context) (string, error) {
	sid, ok := session.IDFromContext(ctx)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "session context missing")
	}
	return sid, nil
}

func visitorID(ctx context.Context) (string, error) {
	id, ok := session.VisitorIDFromContext(ctx)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "visitor context missing")
	}
	return id, nil
}
