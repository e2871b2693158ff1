package jwt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"slimwell/intake-backend/internal"
	"slimwell/intake-backend/internal/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestService_NewAndParse(t *testing.T) {
	s := NewService(zap.NewNop(), "test-secret", time.Hour)
	id := uuid.New()

	token, err := s.New(context.Background(), id, "+919876543210")
	require.NoError(t, err)

	parsed, err := s.Parse(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestService_ParseErrors(t *testing.T) {
	issuer := NewService(zap.NewNop(), "test-secret", time.Hour)
	token, err := issuer.New(context.Background(), uuid.New(), "+919876543210")
	require.NoError(t, err)

	tests := []struct {
		name    string
		service *Service
		token   string
	}{
		{
			name:    "Malformed token",
			service: issuer,
			token:   "not-a-jwt",
		},
		{
			name:    "Wrong secret",
			service: NewService(zap.NewNop(), "other-secret", time.Hour),
			token:   token,
		},
		{
			name: "Expired token",
			service: func() *Service {
				s := NewService(zap.NewNop(), "test-secret", time.Hour)
				s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
				return s
			}(),
			token: token,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.service.Parse(context.Background(), tc.token)
			require.ErrorIs(t, err, internal.ErrInvalidJWTToken)
		})
	}
}

func TestMiddleware(t *testing.T) {
	logger := zap.NewNop()
	tokens := NewService(logger, "test-secret", time.Hour)
	store := session.NewMemoryStore(time.Hour)
	mw := NewMiddleware(logger, internal.NewProblemWriter(), tokens, store)

	s := session.New("+919876543210", "Asha Rao", "id-token")
	require.NoError(t, store.Save(context.Background(), s))
	token, err := tokens.New(context.Background(), s.ID, s.Phone)
	require.NoError(t, err)

	var seen *session.Session
	handler := func(w http.ResponseWriter, r *http.Request) {
		seen, _ = session.GetFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	tests := []struct {
		name           string
		middleware     func(http.HandlerFunc) http.HandlerFunc
		header         string
		expectedStatus int
		expectSession  bool
	}{
		{name: "Required with valid token", middleware: mw.AuthenticateMiddleware, header: "Bearer " + token, expectedStatus: http.StatusOK, expectSession: true},
		{name: "Required without header", middleware: mw.AuthenticateMiddleware, expectedStatus: http.StatusUnauthorized},
		{name: "Required with bad scheme", middleware: mw.AuthenticateMiddleware, header: "Basic abc", expectedStatus: http.StatusUnauthorized},
		{name: "Optional without header", middleware: mw.OptionalMiddleware, expectedStatus: http.StatusOK},
		{name: "Optional with garbage token", middleware: mw.OptionalMiddleware, header: "Bearer garbage", expectedStatus: http.StatusOK},
		{name: "Optional with valid token", middleware: mw.OptionalMiddleware, header: "Bearer " + token, expectedStatus: http.StatusOK, expectSession: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			tc.middleware(handler)(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectSession {
				require.NotNil(t, seen)
				require.Equal(t, s.ID, seen.ID)
			} else {
				require.Nil(t, seen)
			}
		})
	}
}

func TestMiddleware_HandlerRunsInsideMiddlewareSpan(t *testing.T) {
	logger := zap.NewNop()
	tokens := NewService(logger, "test-secret", time.Hour)
	store := session.NewMemoryStore(time.Hour)
	mw := NewMiddleware(logger, internal.NewProblemWriter(), tokens, store)
	mw.tracer = sdktrace.NewTracerProvider().Tracer("test")

	s := session.New("+919876543210", "Asha Rao", "id-token")
	require.NoError(t, store.Save(context.Background(), s))
	token, err := tokens.New(context.Background(), s.ID, s.Phone)
	require.NoError(t, err)

	for name, middleware := range map[string]func(http.HandlerFunc) http.HandlerFunc{
		"Required": mw.AuthenticateMiddleware,
		"Optional": mw.OptionalMiddleware,
	} {
		t.Run(name, func(t *testing.T) {
			var spanContext trace.SpanContext
			handler := func(w http.ResponseWriter, r *http.Request) {
				spanContext = trace.SpanFromContext(r.Context()).SpanContext()
				w.WriteHeader(http.StatusOK)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/quiz/session", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			middleware(handler)(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.True(t, spanContext.IsValid(), "handler context carries the middleware span")
		})
	}
}
