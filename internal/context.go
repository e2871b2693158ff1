package internal

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const SessionContextKey contextKey = "intake-session"

type Identity interface {
	GetID() uuid.UUID
}

// GetSessionIDFromContext extracts the intake session id from request context
func GetSessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	data := ctx.Value(SessionContextKey)
	if data == nil {
		return uuid.Nil, false
	}

	identity, ok := data.(Identity)
	if !ok {
		return uuid.Nil, false
	}

	return identity.GetID(), true
}
