package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"franchisee-hub/internal/common/auth"
	"franchisee-hub/internal/common/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID propagates the caller's request ID or assigns a new one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("handler panic", map[string]interface{}{
					"requestId": requestIDFromContext(r.Context()),
					"path":      r.URL.Path,
					"panic":     fmt.Sprint(rec),
				})
				writeEnvelope(w, http.StatusInternalServerError, false, "Internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument records request metrics by route pattern and logs each request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

		if route == "/metrics" || route == "/health" {
			return
		}
		s.logger.Info("request", map[string]interface{}{
			"requestId": requestIDFromContext(r.Context()),
			"method":    r.Method,
			"route":     route,
			"status":    status,
			"duration":  elapsed.String(),
		})
	})
}

// authenticate requires a valid bearer token and stores the actor.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeEnvelope(w, http.StatusUnauthorized, false, "Missing bearer token", nil)
			return
		}

		actor, err := s.tokens.Parse(token)
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid or expired token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	})
}

func (s *Server) requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := auth.ActorFromContext(r.Context())
			if actor == nil || actor.Role != role {
				writeEnvelope(w, http.StatusForbidden, false, role+" access required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// actor returns the authenticated caller. Only called behind authenticate.
func actor(r *http.Request) auth.Actor {
	if a := auth.ActorFromContext(r.Context()); a != nil {
		return *a
	}
	return auth.Actor{}
}
