package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"yourvocab/internal/logger"
	"yourvocab/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const LearnerContextKey ContextKey = "learner"

var (
	errUnauthorized = &APIError{Status: http.StatusUnauthorized, Kind: KindUnauthorized, Message: "Missing or invalid bearer token."}
	errRateLimited  = &APIError{Status: http.StatusTooManyRequests, Kind: KindRateLimited, Message: "Too many answers, slow down."}
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	jwtSecret []byte
	limiter   *security.RateLimiter
	log       *logger.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(jwtSecret []byte, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	return &Middleware{jwtSecret: jwtSecret, limiter: limiter, log: log}
}

// RequireLearner rejects requests without a valid bearer token and puts
// the learner id into the request context
func (m *Middleware) RequireLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondWithError(w, r, m.log, errUnauthorized)
			return
		}

		learnerID, err := security.ParseToken(m.jwtSecret, token)
		if err != nil {
			m.log.Debug("Token rejected", "error", err)
			respondWithError(w, r, m.log, errUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), LearnerContextKey, learnerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimit limits requests per learner. It must run after RequireLearner.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strconv.FormatInt(LearnerFromContext(r.Context()), 10)
		if !m.limiter.Allow(key) {
			respondWithError(w, r, m.log, errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Logging middleware logs HTTP requests
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		m.log.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// LearnerFromContext returns the authenticated learner id, 0 if none
func LearnerFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(LearnerContextKey).(int64)
	return id
}
