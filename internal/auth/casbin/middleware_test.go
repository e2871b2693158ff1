package casbin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"slimwell/intake-backend/internal"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

func newTestMiddleware(t *testing.T, adminToken string) *Middleware {
	t.Helper()
	enforcer, err := NewEnforcer(Config{ModelPath: "model.conf", PolicyPath: "policy.csv"})
	require.NoError(t, err)

	m := NewMiddleware(zap.NewNop(), internal.NewProblemWriter(), enforcer, adminToken)
	m.tracer = noop.NewTracerProvider().Tracer("test")
	return m
}

func TestMiddleware_Middleware(t *testing.T) {
	tests := []struct {
		name           string
		adminToken     string
		header         string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "Admin exports a submission", adminToken: "s3cret", header: "s3cret", method: http.MethodGet, path: "/api/quiz/submissions/5b0c7a0e-7f55-4d5c-9a55-06e8c9f1e001/export", expectedStatus: http.StatusOK},
		{name: "Admin inherits operator routes", adminToken: "s3cret", header: "s3cret", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
		{name: "Wrong token", adminToken: "s3cret", header: "guess", method: http.MethodGet, path: "/api/quiz/submissions/5b0c7a0e-7f55-4d5c-9a55-06e8c9f1e001/export", expectedStatus: http.StatusForbidden},
		{name: "No token configured", adminToken: "", header: "", method: http.MethodGet, path: "/api/quiz/submissions/5b0c7a0e-7f55-4d5c-9a55-06e8c9f1e001/export", expectedStatus: http.StatusForbidden},
		{name: "Method outside policy", adminToken: "s3cret", header: "s3cret", method: http.MethodDelete, path: "/api/quiz/submissions/5b0c7a0e-7f55-4d5c-9a55-06e8c9f1e001/export", expectedStatus: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMiddleware(t, tc.adminToken)

			called := false
			handler := m.Middleware(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set(AdminTokenHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)
			require.Equal(t, tc.expectedStatus == http.StatusOK, called)
		})
	}
}
