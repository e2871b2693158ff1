package casbin

import (
	"crypto/subtle"
	"net/http"

	"slimwell/intake-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/casbin/casbin/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	AdminTokenHeader = "X-Admin-Token"

	RoleAdmin     = "admin"
	RoleAnonymous = "anonymous"
)

// Middleware guards operator routes. The caller's role comes from the admin
// token header; the policy decides what each role may reach.
type Middleware struct {
	tracer        trace.Tracer
	logger        *zap.Logger
	enforcer      *casbin.Enforcer
	problemWriter *problem.HttpWriter
	adminToken    string
}

func NewMiddleware(
	logger *zap.Logger,
	problemWriter *problem.HttpWriter,
	enforcer *casbin.Enforcer,
	adminToken string,
) *Middleware {
	return &Middleware{
		tracer:        otel.Tracer("auth/middleware"),
		logger:        logger,
		enforcer:      enforcer,
		problemWriter: problemWriter,
		adminToken:    adminToken,
	}
}

func (m *Middleware) role(r *http.Request) string {
	token := r.Header.Get(AdminTokenHeader)
	if m.adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(m.adminToken)) == 1 {
		return RoleAdmin
	}
	return RoleAnonymous
}

func (m *Middleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "AccessMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		role := m.role(r)
		allowed, err := m.enforcer.Enforce(role, r.URL.Path, r.Method)
		if err != nil {
			logger.Error("casbin enforce error", zap.Error(err))
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInternalServerError, logger)
			return
		}

		if !allowed {
			logger.Warn("permission denied",
				zap.String("role", role),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)
			m.problemWriter.WriteError(traceCtx, w, internal.ErrForbiddenError, logger)
			return
		}

		next(w, r.WithContext(traceCtx))
	}
}
