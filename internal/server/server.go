// Package server provides the HTTP JSON API over the roster service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/config"
	"github.com/chrolicious/hoolgg-roster/internal/logging"
	"github.com/chrolicious/hoolgg-roster/internal/metrics"
	"github.com/chrolicious/hoolgg-roster/internal/roster"
	"github.com/chrolicious/hoolgg-roster/internal/server/middleware"
	"github.com/chrolicious/hoolgg-roster/internal/server/ratelimit"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 30 * time.Second
)

// Options configures a Server. Zero values disable the optional layers.
type Options struct {
	Addr        string
	CORSOrigins []string          // "*" or empty allows any origin
	RateLimit   *ratelimit.Config // nil disables rate limiting
	JWT         *config.JWTConfig // nil disables bearer auth on /api/
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	service     *roster.Service
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	corsOrigins []string
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// New creates a server for service. Call Close (or ListenAndServe) to release
// the rate limiter.
func New(service *roster.Service, opts Options) *Server {
	s := &Server{
		service:     service,
		corsOrigins: opts.CORSOrigins,
		logger:      logging.OrNop(opts.Logger).Named("http"),
		metrics:     opts.Metrics,
	}
	if opts.RateLimit != nil && opts.RateLimit.Enabled {
		s.rateLimiter = ratelimit.NewLimiter(opts.RateLimit)
	}
	if opts.JWT != nil {
		s.jwtService = NewJWTService(opts.JWT)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	s.api(mux, "GET /api/data", s.handleGetData)
	s.api(mux, "POST /api/meta", s.handleUpdateMeta)
	s.api(mux, "POST /api/reset-daily", s.handleResetDaily)

	s.api(mux, "POST /api/characters", s.handleAddCharacter)
	s.api(mux, "DELETE /api/characters/{id}", s.handleDeleteCharacter)
	s.api(mux, "POST /api/characters/reorder", s.handleReorderCharacters)
	s.api(mux, "PUT /api/characters/{id}/professions", characterUpdate(s, service.SetProfessions))

	s.api(mux, "GET /api/character/{id}", s.handleGetCharacter)
	s.api(mux, "POST /api/character/{id}/gear", characterUpdate(s, service.UpdateGear))
	s.api(mux, "POST /api/character/{id}/crests", characterUpdate(s, service.RecordCrests))
	s.api(mux, "POST /api/character/{id}/profession", characterUpdate(s, service.UpdateProfession))
	s.api(mux, "POST /api/character/{id}/tasks", characterUpdate(s, service.SetTask))
	s.api(mux, "POST /api/character/{id}/config", characterUpdate(s, service.UpdateCharacterConfig))
	s.api(mux, "POST /api/character/{id}/weekly-progress", s.handleUpdateWeeklyProgress)

	s.api(mux, "POST /api/character/{id}/bis", s.handleAddBis)
	s.api(mux, "PUT /api/character/{id}/bis/{bis_id}", s.handleUpdateBis)
	s.api(mux, "DELETE /api/character/{id}/bis/{bis_id}", s.handleDeleteBis)
	s.api(mux, "POST /api/character/{id}/talents", s.handleAddTalentBuild)
	s.api(mux, "PUT /api/character/{id}/talents/{talent_id}", s.handleUpdateTalentBuild)
	s.api(mux, "DELETE /api/character/{id}/talents/{talent_id}", s.handleDeleteTalentBuild)

	s.api(mux, "POST /api/character/{id}/sync", s.handleSyncCharacter)
	s.api(mux, "POST /api/sync-all", s.handleSyncAll)
	s.api(mux, "POST /api/sync-all/stream", s.handleSyncAllStream)
	s.api(mux, "POST /api/provider/config", s.handleUpdateCredentials)
	s.api(mux, "POST /api/blizzard/config", s.handleUpdateCredentials)
	s.api(mux, "GET /api/item/{item_id}/icon", s.handleItemIcon)
	s.api(mux, "GET /api/debug/character/{id}/stats", s.handleDebugStats)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withLogging(s.withCORS(s.withRateLimit(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // sync-all walks the whole roster
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// api registers an /api/ route, behind bearer auth when it is enabled.
func (s *Server) api(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.jwtService != nil {
		handler = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(handler)
	}
	mux.Handle(pattern, handler)
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	s.logger.Info("server stopped")
	return nil
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withCORS adds CORS headers and answers preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	anyOrigin := len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		if r.status == 0 {
			r.status = http.StatusOK
		}
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withLogging assigns a request id, writes the access log and records request metrics.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		elapsed := time.Since(start)
		s.metrics.ObserveHTTP(r.Method, rec.status, elapsed)
		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("remote", extractClientID(r)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response", zap.Error(err))
	}
}

// success writes {"success": true} plus the given fields.
func (s *Server) success(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	s.jsonResponse(w, status, body)
}

// errorResponse writes {"success": false, "error": ...} with the status HTTPStatus assigns.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	fields := []zap.Field{
		zap.String("request_id", w.Header().Get(RequestIDHeader)),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Debug("request rejected", fields...)
	}
	s.jsonResponse(w, status, map[string]any{"success": false, "error": errorMessage(err)})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return &ErrBadRequest{Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// pathID parses an integer path parameter.
func pathID(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ErrBadRequest{Message: fmt.Sprintf("invalid %s: %q", name, raw)}
	}
	return id, nil
}

// extractClientID returns the remote IP. Forwarded headers are not trusted.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"success":   false,
		"error":     "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.UTC().Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		// Round up so clients never retry early.
		seconds := int((info.RetryAfter + time.Second - 1) / time.Second)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
