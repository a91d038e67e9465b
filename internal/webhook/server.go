package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swxsoc/swxingest/internal/config"
	"github.com/swxsoc/swxingest/internal/trigger"
)

// EventHandler handles one trigger event. Satisfied by *dispatch.Handler.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev trigger.Event) trigger.Response
}

// ErrorResponse is the JSON body of a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP trigger.
type Server struct {
	listen          string
	secret          string
	signatureHeader string
	maxBodySize     int64

	handler  EventHandler
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	server   *http.Server
}

// New creates a server. A nil gatherer serves the default registry.
func New(cfg config.WebhookConfig, handler EventHandler, gatherer prometheus.Gatherer, logger *slog.Logger) (*Server, error) {
	maxBody, err := config.ParseByteSize(cfg.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("webhook max body size: %w", err)
	}
	header := cfg.SignatureHeader
	if header == "" {
		header = "X-Signature-256"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		listen:          cfg.Listen,
		secret:          cfg.Secret,
		signatureHeader: header,
		maxBodySize:     maxBody,
		handler:         handler,
		gatherer:        gatherer,
		logger:          logger,
	}, nil
}

// Start serves until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	if s.secret == "" {
		s.logger.Warn("webhook secret not set; events are accepted unsigned")
	}
	s.logger.Info("http trigger starting", "listen", s.listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http trigger shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http trigger shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("http trigger error: %w", err)
	}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/v1/events", s.handleEvent)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// loggingMiddleware logs requests without their bodies.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBodySize+1))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.maxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if s.secret != "" {
		if err := verifySignature(body, r.Header.Get(s.signatureHeader), s.secret); err != nil {
			s.logger.Warn("event signature rejected", "header", s.signatureHeader)
			s.respondError(w, http.StatusForbidden, "forbidden")
			return
		}
	}

	ev, err := trigger.ParseEvent(body)
	var resp trigger.Response
	if err != nil {
		resp = trigger.Failure(err)
	} else {
		resp = s.handler.HandleEvent(r.Context(), ev)
	}
	s.respondJSON(w, resp.StatusCode, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
