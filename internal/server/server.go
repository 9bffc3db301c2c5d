package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/ai"
	"github.com/mkobayashi/jobscout/internal/pipeline"
	"github.com/mkobayashi/jobscout/internal/store"
)

const maxRequestBodySize = 1 << 20 // 1MB

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Searcher runs searches: the AI pipeline and the plain filtered path.
type Searcher interface {
	RunPipeline(ctx context.Context, query, userID string) (*pipeline.SearchResult, error)
	PlainSearch(ctx context.Context, filters *store.JobFilters, offset, limit int) (*store.JobPage, error)
}

// Catalog is the slice of the persistence layer served over HTTP.
type Catalog interface {
	FindJob(ctx context.Context, id string) (*store.Job, error)
	AddFavorite(ctx context.Context, userID, jobID string) error
	RemoveFavorite(ctx context.Context, userID, jobID string) error
	ListFavorites(ctx context.Context, userID string) ([]*store.Job, error)
	ListSearches(ctx context.Context, userID string) ([]*store.SearchRecord, error)
}

// Deps aggregates the collaborators of the HTTP layer.
type Deps struct {
	Searcher Searcher
	Store    Catalog
	Logger   *zap.Logger
}

// NewHandler builds the HTTP API. All responses are JSON.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", handleAISearch(deps))
		r.Get("/search", handlePlainSearch(deps))
		r.Get("/jobs/{id}", handleGetJob(deps))
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/favorites", handleListFavorites(deps))
			r.Post("/favorites", handleAddFavorite(deps))
			r.Delete("/favorites/{jobID}", handleRemoveFavorite(deps))
			r.Get("/searches", handleListSearches(deps))
		})
	})

	return r
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

func handleAISearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		result, err := deps.Searcher.RunPipeline(r.Context(), req.Query, req.UserID)
		switch {
		case errors.Is(err, pipeline.ErrEmptyQuery):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		case errors.Is(err, ai.ErrBackendsExhausted):
			deps.Logger.Error("search unavailable", zap.Error(err))
			httpError(w, http.StatusBadGateway, "api_error", "search is temporarily unavailable")
			return
		case err != nil:
			deps.Logger.Error("search failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "search failed")
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func handlePlainSearch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		filters := &store.JobFilters{
			Locations: query["location"],
			Skills:    query["skill"],
			MinSalary: parseIntParam(r, "min_salary", 0, 0),
			MaxSalary: parseIntParam(r, "max_salary", 0, 0),
		}
		offset := parseIntParam(r, "offset", 0, 0)
		limit := parseIntParam(r, "limit", defaultPageSize, maxPageSize)

		page, err := deps.Searcher.PlainSearch(r.Context(), filters, offset, limit)
		if err != nil {
			deps.Logger.Error("plain search failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "search failed")
			return
		}

		if page.Jobs == nil {
			page.Jobs = []*store.Job{}
		}

		writeJSON(w, http.StatusOK, page)
	}
}

func handleGetJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		job, err := deps.Store.FindJob(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			deps.Logger.Error("fetching job failed", zap.String("job_id", id), zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "failed to fetch job")
			return
		}

		writeJSON(w, http.StatusOK, job)
	}
}

type favoriteRequest struct {
	JobID string `json:"job_id"`
}

func handleAddFavorite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		userID := chi.URLParam(r, "userID")

		var req favoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.JobID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "job_id is required")
			return
		}

		err := deps.Store.AddFavorite(r.Context(), userID, req.JobID)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		if err != nil {
			deps.Logger.Error("adding favorite failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save favorite")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func handleRemoveFavorite(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		jobID := chi.URLParam(r, "jobID")

		err := deps.Store.RemoveFavorite(r.Context(), userID, jobID)
		if errors.Is(err, store.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "favorite not found")
			return
		}
		if err != nil {
			deps.Logger.Error("removing favorite failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "failed to remove favorite")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

func handleListFavorites(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		jobs, err := deps.Store.ListFavorites(r.Context(), userID)
		if err != nil {
			deps.Logger.Error("listing favorites failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list favorites")
			return
		}

		if jobs == nil {
			jobs = []*store.Job{}
		}

		writeJSON(w, http.StatusOK, jobs)
	}
}

func handleListSearches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		records, err := deps.Store.ListSearches(r.Context(), userID)
		if err != nil {
			deps.Logger.Error("listing search history failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list searches")
			return
		}

		if records == nil {
			records = []*store.SearchRecord{}
		}

		writeJSON(w, http.StatusOK, records)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
