package cors

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	allowHeaders = "Content-Type, Authorization, Accept, Origin, Cache-Control, X-Requested-With, X-Admin-Token"
	allowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

type Middleware struct {
	logger  *zap.Logger
	origins map[string]bool
	any     bool
}

func NewMiddleware(logger *zap.Logger, allowOrigins []string) *Middleware {
	origins := make(map[string]bool, len(allowOrigins))
	anyOrigin := false
	for _, o := range allowOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			anyOrigin = true
			continue
		}
		origins[o] = true
	}

	logger.Info("CORS middleware initialized", zap.Strings("allow_origins", allowOrigins))

	return &Middleware{
		logger:  logger,
		origins: origins,
		any:     anyOrigin,
	}
}

func (m *Middleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (m.any || m.origins[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.Header().Set("Access-Control-Allow-Methods", allowMethods)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}
