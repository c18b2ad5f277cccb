package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	commonerrors "github.com/ClipFinance/juice-bot-relay/common/errors"
	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/connectionmonitor"
	"github.com/ClipFinance/juice-bot-relay/relay"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	requestIDHeader = "X-Request-ID"
)

// InstantiateRequest is the body of POST /instantiate.
type InstantiateRequest struct {
	Sender string               `json:"sender"`
	Msg    types.InstantiateMsg `json:"msg"`
}

// ExecuteRequest is the body of POST /execute. The retry gate always runs on the server clock.
type ExecuteRequest struct {
	Sender string            `json:"sender"`
	Msg    *types.ExecuteMsg `json:"msg"`
}

// Server exposes the relay over HTTP
type Server struct {
	addr          string
	relay         *relay.Relay
	monitor       connectionmonitor.ConnectionMonitor
	logger        *logrus.Logger
	metricsAPIKey string
	now           func() time.Time
}

// NewServer creates a new relay HTTP server.
//
// Parameters:
// - addr: the listen address.
// - relay: the relay to serve.
// - monitor: the backend connection monitor, may be nil.
// - logger: the logger for logging events.
// - metricsAPIKey: the bearer token required on /metrics, none if empty.
//
// Returns:
// - *Server: the new server.
func NewServer(addr string, relay *relay.Relay, monitor connectionmonitor.ConnectionMonitor, logger *logrus.Logger, metricsAPIKey string) *Server {
	return &Server{
		addr:          addr,
		relay:         relay,
		monitor:       monitor,
		logger:        logger,
		metricsAPIKey: metricsAPIKey,
		now:           time.Now,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, _ *http.Request) {
		if s.monitor != nil && !s.monitor.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Store backend unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("POST /instantiate", s.handleInstantiate)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("POST /query", s.handleQuery)

	mux.HandleFunc("GET /job-id", func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.relay.QueryJobID(r.Context())
		s.respond(w, r, resp, err)
	})

	mux.HandleFunc("GET /retries", func(w http.ResponseWriter, r *http.Request) {
		records, err := s.relay.Retries(r.Context())
		s.respond(w, r, records, err)
	})

	mux.Handle("GET /metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return s.requestIDMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
//
// Parameters:
// - ctx: the context controlling the server lifetime.
//
// Returns:
// - error: an error if the listener fails.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).Info("HTTP server listening")
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	var req InstantiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, r, nil, errors.Wrap(commonerrors.ErrInvalidMessage, err.Error()))
		return
	}

	resp, err := s.relay.Instantiate(r.Context(), types.Invocation{Sender: req.Sender, BlockTime: s.blockTime()}, req.Msg)
	s.respond(w, r, resp, err)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, r, nil, errors.Wrap(commonerrors.ErrInvalidMessage, err.Error()))
		return
	}

	inv := types.Invocation{Sender: req.Sender, BlockTime: s.blockTime()}
	resp, err := s.relay.Execute(r.Context(), inv, req.Msg)
	s.respond(w, r, resp, err)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var msg types.QueryMsg
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.respond(w, r, nil, errors.Wrap(commonerrors.ErrInvalidMessage, err.Error()))
		return
	}

	resp, err := s.relay.Query(r.Context(), msg)
	s.respond(w, r, resp, err)
}

func (s *Server) blockTime() uint64 {
	return uint64(s.now().Unix())
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, body interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")

	if err != nil {
		status := statusCode(err)
		if status == http.StatusInternalServerError {
			s.logger.WithFields(logrus.Fields{
				"request_id": r.Header.Get(requestIDHeader),
				"path":       r.URL.Path,
			}).WithError(err).Error("Request failed")
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// statusCode maps relay errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, commonerrors.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, commonerrors.ErrNothingPending),
		errors.Is(err, commonerrors.ErrAlreadyInstantiated):
		return http.StatusConflict
	case errors.Is(err, commonerrors.ErrNotInstantiated):
		return http.StatusNotFound
	case errors.Is(err, commonerrors.ErrMalformedInput),
		errors.Is(err, commonerrors.ErrEmptyBatch),
		errors.Is(err, commonerrors.ErrInvalidMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requestIDMiddleware tags every request with an id, reusing the caller's X-Request-ID if set.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
			r.Header.Set(requestIDHeader, requestID)
		}
		w.Header().Set(requestIDHeader, requestID)

		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Debug("HTTP request")

		next.ServeHTTP(w, r)
	})
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
