package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"carrental-backend/internal/config"
	"carrental-backend/internal/domain"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/security"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// AuthMiddleware resolves the caller from the bearer token for every route
// that is not public.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routeLevel(r) == config.SecurityPublic {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractToken(r)
		if err != nil {
			writeUnauthenticated(w, err.Error())
			return
		}

		claims, err := m.tokenManager.ValidateAccessToken(token)
		if err != nil {
			writeUnauthenticated(w, "invalid token: "+err.Error())
			return
		}

		// Role is resolved per booking by the service.
		ctx := WithActor(r.Context(), domain.Actor{UserID: claims.UserID})
		ctx = logger.WithAttrs(ctx, "user_id", claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func routeLevel(r *http.Request) config.SecurityLevel {
	route := mux.CurrentRoute(r)
	if route == nil {
		return config.SecurityAccess
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return config.SecurityAccess
	}
	return config.GetSecurityLevel(r.Method + " " + tpl)
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("authorization token is not provided")
	}
	// Remove Bearer prefix if present
	if len(header) > 7 && strings.ToUpper(header[0:7]) == "BEARER " {
		header = header[7:]
	}
	return strings.TrimSpace(header), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware tags the request with an id, logs it, and turns handler
// panics into 500s.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(logger.WithAttrs(r.Context(), "request_id", requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		defer func() {
			log := logger.FromContext(r.Context())
			if p := recover(); p != nil {
				log.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p)
				http.Error(rec, "internal error", http.StatusInternalServerError)
			}
			log.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		}()
		next.ServeHTTP(rec, r)
	})
}
