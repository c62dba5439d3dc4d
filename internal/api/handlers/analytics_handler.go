package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

const (
	defaultStatsLimit = 50
	defaultStatsHours = 24 * 7
	maxStatsHours     = 24 * 366
)

// RedirectStatsService reads aggregated redirect analytics
type RedirectStatsService interface {
	TopRedirects(ctx context.Context, since time.Time, limit int) ([]*entities.RedirectStat, error)
}

// RedirectStatsResponse is returned by TopRedirects
type RedirectStatsResponse struct {
	Since     time.Time                `json:"since"`
	Redirects []*entities.RedirectStat `json:"redirects"`
	Count     int                      `json:"count"`
}

// AnalyticsHandler serves redirect analytics
type AnalyticsHandler struct {
	service RedirectStatsService
}

// NewAnalyticsHandler creates a new analytics handler. A nil service means
// analytics is disabled.
func NewAnalyticsHandler(service RedirectStatsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// TopRedirects handles GET /_gateway/analytics/redirects?limit=&hours=
func (h *AnalyticsHandler) TopRedirects(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondWithAppError(w, apperrors.NewUnavailableError("redirect analytics is disabled"))
		return
	}

	limit, err := positiveIntParam(r, "limit", defaultStatsLimit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	hours, err := positiveIntParam(r, "hours", defaultStatsHours)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	if hours > maxStatsHours {
		hours = maxStatsHours
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	stats, err := h.service.TopRedirects(r.Context(), since, limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if stats == nil {
		stats = []*entities.RedirectStat{}
	}

	respondWithJSON(w, http.StatusOK, RedirectStatsResponse{
		Since:     since,
		Redirects: stats,
		Count:     len(stats),
	})
}

func positiveIntParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, apperrors.NewValidationError(name + " must be a positive integer")
	}
	return value, nil
}
