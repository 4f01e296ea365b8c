package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/halfmovies/recsvc/internal/audit"
	"github.com/halfmovies/recsvc/internal/catalog"
	"github.com/halfmovies/recsvc/internal/config"
	"github.com/halfmovies/recsvc/internal/observability"
	"github.com/halfmovies/recsvc/internal/recommend"
)

type Server struct {
	cfg      config.Config
	cache    *recommend.Cache
	catalog  catalog.Facade
	feed     *audit.Feed
	metrics  *observability.Metrics
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func New(cfg config.Config, cache *recommend.Cache, facade catalog.Facade, feed *audit.Feed, metrics *observability.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		cache:   cache,
		catalog: facade,
		feed:    feed,
		metrics: metrics,
		logger:  logger.With().Str("component", "httpapi").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same origin
				// unless explicitly opened up. Non-browser clients omit Origin.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/v1/users/{id}/recommendations", s.handleRecommend)
	r.Delete("/v1/users/{id}/recommendations/cache", s.handleInvalidate)
	r.Get("/v1/ops/audit", s.handleRecentAudit)
	r.Get("/v1/ops/audit/ws", s.handleAuditWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ping(r.Context()); err != nil {
		s.logger.Error().Err(err).Msg("readiness ping failed")
		s.respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"cache_ttl": s.cfg.CacheTTL.String(),
	})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}

	result, err := s.cache.Get(r.Context(), userID)
	if err != nil {
		s.respondRecommendError(w, userID, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}

	s.cache.Invalidate(userID)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"invalidated": true,
	})
}

func (s *Server) handleRecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			s.respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := s.feed.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit query failed")
		s.respondError(w, http.StatusInternalServerError, "audit_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
	})
}

func (s *Server) respondRecommendError(w http.ResponseWriter, userID string, err error) {
	switch {
	case errors.Is(err, catalog.ErrUserNotFound):
		s.respondError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, catalog.ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", err.Error())
	default:
		s.logger.Error().Err(err).Str("user_id", userID).Msg("recommendation failed")
		s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to generate recommendations")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.metrics.RequestErrors.WithLabelValues(code).Inc()
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
