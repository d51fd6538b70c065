package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/roach88/telemetryd/internal/ingest"
	"github.com/roach88/telemetryd/internal/query"
	"github.com/roach88/telemetryd/internal/registry"
)

// maxBodyBytes bounds a POST /messages body.
const maxBodyBytes = 1 << 20

// Server wires HTTP routes to the ingest service and its registry.
type Server struct {
	svc     *ingest.Service
	logger  *slog.Logger
	ids     RequestIDGenerator
	limiter *rate.Limiter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestIDs overrides the request id generator. Default: UUIDv7.
func WithRequestIDs(g RequestIDGenerator) Option {
	return func(s *Server) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithRateLimit limits POST /messages to r events per second with the
// given burst. r <= 0 disables limiting.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) {
		if r <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// NewServer creates a Server for svc.
func NewServer(svc *ingest.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: slog.Default(),
		ids:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /messages", s.rateLimit(http.HandlerFunc(s.handleMessage)))
	mux.HandleFunc("GET /rockets", s.handleList)
	mux.HandleFunc("GET /rockets/types", s.handleTypes)
	mux.HandleFunc("GET /rockets/{id}", s.handleGet)
	return s.requestID(s.accessLog(mux))
}

func (s *Server) registry() *registry.Registry {
	return s.svc.Registry()
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.badRequest(w, r, "json processing exception", err)
		return
	}

	ev, err := decodeMessage(body)
	if err != nil {
		s.badRequest(w, r, "json processing exception", err)
		return
	}

	ack, err := s.svc.Submit(r.Context(), ev)
	if err != nil {
		if registry.IsReject(err) {
			s.badRequest(w, r, "invalid message", err)
			return
		}
		s.logger.ErrorContext(r.Context(), "submit failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, r, http.StatusOK, ack)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := query.Params{
		Type:    q.Get("type"),
		SortBy:  q.Get("sortBy"),
		OrderBy: q.Get("orderBy"),
	}

	states := query.Apply(s.registry().Query(params.Filter()), params)
	views := make([]rocketView, 0, len(states))
	for _, st := range states {
		views = append(views, newRocketView(st))
	}
	s.writeJSON(w, r, http.StatusOK, views)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.registry().DistinctTypes())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, ok := s.registry().Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newRocketView(st))
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	s.logger.WarnContext(r.Context(), prefix,
		"request_id", ingest.RequestID(r.Context()),
		"error", err,
	)
	status := http.StatusBadRequest
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	http.Error(w, fmt.Sprintf("%s: %s", prefix, err), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(r.Context(), "encode response", "error", err)
	}
}
