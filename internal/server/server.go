// Package server exposes background generation over HTTP for clients that
// cannot hold a Replicate token themselves. Requests are rate limited per
// client IP and served from the prompt cache when possible.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/adibhanna/focusflow/internal/background"
	"github.com/adibhanna/focusflow/internal/metrics"
	"github.com/adibhanna/focusflow/internal/ratelimit"
)

const maxBodyBytes = 16 << 10

// Generator produces a background for a validated request.
type Generator interface {
	Generate(ctx context.Context, req background.Request) (background.Result, error)
}

// Limiter decides whether a caller may make another request.
type Limiter interface {
	Allow(ctx context.Context, id string) (ratelimit.Result, error)
	Config() ratelimit.Config
}

type Options struct {
	Addr      string
	Generator Generator
	Limiter   Limiter
	Metrics   *metrics.Metrics
	Redis     redis.UniversalClient // optional, checked by /healthz
}

type Server struct {
	addr    string
	gen     Generator
	limiter Limiter
	metrics *metrics.Metrics
	redis   redis.UniversalClient
}

func New(opts Options) (*Server, error) {
	if opts.Generator == nil {
		return nil, errors.New("generator is required")
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(nil, ratelimit.DefaultConfig())
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	return &Server{
		addr:    opts.Addr,
		gen:     opts.Generator,
		limiter: opts.Limiter,
		metrics: opts.Metrics,
		redis:   opts.Redis,
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-background", s.handleGenerate)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", ln.Addr().String()).Info("background server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("shutting down background server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error     string `json:"error"`
	ResetTime int64  `json:"resetTime,omitempty"`
}

type generateResponse struct {
	ImageURL string `json:"imageUrl"`
	Cached   bool   `json:"cached,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	log := logrus.WithField("client", ip)

	rl, err := s.limiter.Allow(r.Context(), ip)
	if err != nil {
		log.WithError(err).Warn("rate limit check failed")
	}
	setRateLimitHeaders(w, s.limiter.Config(), rl)
	if !rl.Allowed {
		s.metrics.Outcome(metrics.OutcomeRateLimited)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:     "Rate limit exceeded",
			ResetTime: rl.ResetAt.UnixMilli(),
		})
		return
	}

	var req background.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.metrics.Outcome(metrics.OutcomeInvalid)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	res, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		var verr *background.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
			return
		}
		log.WithError(err).Error("background generation error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to generate background image"})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{ImageURL: res.ImageURL, Cached: res.Cached})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "redis": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setRateLimitHeaders(w http.ResponseWriter, cfg ratelimit.Config, rl ratelimit.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(rl.ResetAt.UnixMilli(), 10))
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote host.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Debug("failed to write response")
	}
}
