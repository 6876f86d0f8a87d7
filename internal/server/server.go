// Package server provides the HTTP REST API for the interview coach.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-coach/internal/conversation"
	"github.com/jonathan/interview-coach/internal/server/middleware"
	"github.com/jonathan/interview-coach/internal/server/ratelimit"
	"github.com/jonathan/interview-coach/internal/types"
)

// TurnController runs conversation turns and exposes persisted threads.
type TurnController interface {
	Invoke(ctx context.Context, req types.TurnRequest) (*types.TurnResponse, error)
	Thread(ctx context.Context, threadID string) (*types.ConversationState, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	controller      TurnController
	lister          conversation.Lister
	rateLimiter     *ratelimit.Limiter
	healthCheck     func(context.Context) error
	allowedOrigin   string
	shutdownTimeout time.Duration
	// authEnabled confines anonymous callers to generated thread ids.
	authEnabled bool
}

// AuthOptions enables bearer-token authentication on the interview routes.
type AuthOptions struct {
	Validator middleware.TokenValidator
	// Required rejects anonymous requests. Otherwise they are served without an identity.
	Required bool
}

// Config holds server configuration
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigin   string

	// RateLimit defaults to ratelimit.LoadConfig().
	RateLimit *ratelimit.Config
	// Auth is nil when authentication is disabled.
	Auth *AuthOptions
	// Lister enables GET /interview/threads when the store supports listing.
	Lister conversation.Lister
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
	// HealthCheck reports backend reachability for GET /health.
	HealthCheck func(context.Context) error
}

// New creates a new server instance
func New(cfg Config, controller TurnController) (*Server, error) {
	if controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.Auth != nil && cfg.Auth.Validator == nil {
		return nil, fmt.Errorf("auth enabled without a token validator")
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = ratelimit.LoadConfig()
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		controller:      controller,
		lister:          cfg.Lister,
		rateLimiter:     ratelimit.NewLimiter(cfg.RateLimit),
		healthCheck:     cfg.HealthCheck,
		allowedOrigin:   cfg.AllowedOrigin,
		shutdownTimeout: cfg.ShutdownTimeout,
		authEnabled:     cfg.Auth != nil,
	}

	auth := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.Auth != nil {
		mw := middleware.AuthMiddleware(cfg.Auth.Validator, cfg.Auth.Required)
		auth = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	mux := http.NewServeMux()
	mux.Handle("POST /interview/question", auth(s.handleQuestion))
	mux.Handle("GET /interview/threads", auth(s.handleListThreads))
	mux.Handle("GET /interview/threads/{thread_id}", auth(s.handleGetThread))
	mux.HandleFunc("GET /health", s.handleHealth)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  orDefault(cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(cfg.WriteTimeout, 300*time.Second), // Turns chain up to three generation calls
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves requests until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := log.Info()
		if rec.status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request completed")
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("health check failed")
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": errorCode(status), "message": message})
}

// writeError maps err to a status code and writes it.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if wait, ok := retryAfter(status); ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	log.Warn().Str("client", clientID).Int("limit", info.Limit).
		Time("reset", info.ResetTime).Msg("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
