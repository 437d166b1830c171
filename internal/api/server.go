package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/kanka-search/internal/config"
	"github.com/JakeFAU/kanka-search/internal/crawler"
	"github.com/JakeFAU/kanka-search/internal/metrics"
	"github.com/JakeFAU/kanka-search/internal/middleware"
	"github.com/JakeFAU/kanka-search/internal/pipeline"
	"github.com/JakeFAU/kanka-search/internal/search"
)

// Searcher is the part of the pipeline the API needs.
type Searcher interface {
	SearchN(ctx context.Context, query string, limit int) ([]search.Match, error)
	Refresh(ctx context.Context, force bool) (pipeline.RefreshReport, error)
}

// Server wires HTTP handlers to the search pipeline.
type Server struct {
	router   chi.Router
	searcher Searcher
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(searcher Searcher, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{searcher: searcher, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Metrics)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(middleware.APIKey(cfg.Auth.APIKey))
		}
		// A refresh can crawl every campaign, so it gets a longer deadline.
		r.With(timeout(30*time.Second)).Get("/search", s.search)
		r.With(timeout(5*time.Minute)).Post("/refresh", s.refresh)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server, wrapped so every
// request opens a trace span.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "kanka-search")
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type matchResponse struct {
	Name  string `json:"name"`
	Link  string `json:"link"`
	Score int    `json:"score"`
}

type searchResponse struct {
	Query   string          `json:"query"`
	Matches []matchResponse `json:"matches"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	matches, err := s.searcher.SearchN(r.Context(), query, limit)
	if err != nil {
		s.fail(w, r, "search", err)
		return
	}
	resp := searchResponse{Query: query, Matches: make([]matchResponse, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, matchResponse{Name: m.DisplayName, Link: m.Link, Score: m.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}

type failureResponse struct {
	Campaign string `json:"campaign"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

type refreshResponse struct {
	RunID      string            `json:"run_id"`
	Refreshed  bool              `json:"refreshed"`
	BuiltAt    *time.Time        `json:"built_at,omitempty"`
	Campaigns  int               `json:"campaigns"`
	Entries    int               `json:"entries"`
	Collisions int               `json:"collisions"`
	Failures   []failureResponse `json:"failures"`
	DurationMS int64             `json:"duration_ms"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	force := true
	if raw := r.URL.Query().Get("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "force must be a boolean")
			return
		}
		force = parsed
	}

	report, err := s.searcher.Refresh(r.Context(), force)
	if err != nil {
		s.fail(w, r, "refresh", err)
		return
	}
	resp := refreshResponse{
		RunID:      report.RunID,
		Refreshed:  report.Refreshed,
		Campaigns:  report.Campaigns,
		Entries:    report.Cache.Len(),
		Collisions: report.Stats.Collisions,
		Failures:   make([]failureResponse, 0, len(report.Failures)),
		DurationMS: report.Duration.Milliseconds(),
	}
	if report.Cache != nil && !report.Cache.BuiltAt.IsZero() {
		builtAt := report.Cache.BuiltAt
		resp.BuiltAt = &builtAt
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, failureResponse{Campaign: f.Campaign, Category: f.Category, Error: f.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logger.Error(op+" failed",
		zap.String("request_id", middleware.RequestIDFrom(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, crawler.ErrDirectoryUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
