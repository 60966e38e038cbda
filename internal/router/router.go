package router

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/truthguard/service-core/internal/account"
	"github.com/truthguard/service-core/internal/analysis"
	"github.com/truthguard/service-core/internal/identity"
	"github.com/truthguard/service-core/internal/kvstore"
	"github.com/truthguard/service-core/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", lrw.Header().Get("X-Request-Id"),
			)
		})
	}
}

// RequestIDMiddleware assigns each request a snowflake id, echoed in the
// X-Request-Id response header and picked up by the logging middleware.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = utilities.NewSnowflakeID()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerAuth wraps a handler so it only runs with a verified principal in the
// request context. This is the single ownership chokepoint: handlers never
// read a user id from anywhere else.
func BearerAuth(provider identity.Provider, logger *zap.SugaredLogger) func(http.HandlerFunc) http.HandlerFunc {
	unauthorized := func(w http.ResponseWriter, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				unauthorized(w, "No access token provided")
				return
			}
			p, err := provider.VerifyToken(r.Context(), token)
			if err != nil {
				logger.Debugw("token verification failed", "err", err)
				unauthorized(w, "Invalid access token")
				return
			}
			next(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
		}
	}
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, store kvstore.Store, provider identity.Provider, setupKey string) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	requireAuth := BearerAuth(provider, logger)

	// account routes
	accountHandler := account.NewHandler(store, provider, setupKey, logger)
	mux.HandleFunc("GET /admin/exists", accountHandler.AdminExists)
	mux.HandleFunc("POST /auth/signup", accountHandler.Signup)
	mux.HandleFunc("POST /auth/admin/signup", accountHandler.AdminSignup)
	mux.HandleFunc("GET /auth/profile", requireAuth(accountHandler.Profile))
	mux.HandleFunc("POST /auth/update-login", requireAuth(accountHandler.UpdateLogin))

	// analysis history routes
	analysisHandler := analysis.NewHandler(store, logger)
	mux.HandleFunc("POST /analysis/history", requireAuth(analysisHandler.Save))
	mux.HandleFunc("GET /analysis/history", requireAuth(analysisHandler.List))

	// wrap with security headers, then request ids, then logging
	handler := LoggingMiddleware(logger)(RequestIDMiddleware()(SecurityHeadersMiddleware()(mux)))
	return handler
}
