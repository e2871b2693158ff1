package jwt

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/session"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Parser interface {
	Parse(ctx context.Context, tokenString string) (uuid.UUID, error)
}

type SessionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (session.Session, error)
}

type Middleware struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	parser        Parser
	sessions      SessionGetter
}

func NewMiddleware(logger *zap.Logger, problemWriter *problem.HttpWriter, parser Parser, sessions SessionGetter) *Middleware {
	return &Middleware{
		logger:        logger,
		tracer:        otel.Tracer("jwt/middleware"),
		problemWriter: problemWriter,
		parser:        parser,
		sessions:      sessions,
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", internal.ErrMissingAuthHeader
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", internal.ErrInvalidAuthHeaderFormat
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

func (m *Middleware) load(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	sessionID, err := m.parser.Parse(ctx, token)
	if err != nil {
		return nil, err
	}

	s, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AuthenticateMiddleware requires a valid session token and puts the session
// into the request context.
func (m *Middleware) AuthenticateMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "AuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		s, err := m.load(traceCtx, r)
		if err != nil {
			logger.Debug("Rejected request without a usable session", zap.Error(err))
			m.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		next(w, r.WithContext(session.WithSession(traceCtx, s)))
	}
}

// OptionalMiddleware attaches the session when one is present and valid and
// otherwise lets the request through untouched.
func (m *Middleware) OptionalMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "OptionalMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		s, err := m.load(traceCtx, r)
		if err != nil {
			if !errors.Is(err, internal.ErrMissingAuthHeader) {
				logger.Debug("Ignoring unusable session token", zap.Error(err))
			}
			next(w, r.WithContext(traceCtx))
			return
		}

		next(w, r.WithContext(session.WithSession(traceCtx, s)))
	}
}
