package handlers

import (
	"net/http"

	"github.com/zatekoja/hostportal/backend/internal/application/services"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

// ResolveResponse is a routing decision plus the Location a redirect would carry
type ResolveResponse struct {
	entities.RouteDecision
	Location string `json:"location,omitempty"`
	Status   int    `json:"status,omitempty"`
}

// ResolveHandler exposes routing decisions for debugging
type ResolveHandler struct {
	router         *services.PortalRouter
	scheme         string
	redirectStatus int
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(router *services.PortalRouter, scheme string, redirectStatus int) *ResolveHandler {
	return &ResolveHandler{
		router:         router,
		scheme:         scheme,
		redirectStatus: redirectStatus,
	}
}

// Resolve handles GET /_gateway/resolve?host=&path=
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	host := query.Get("host")
	if host == "" {
		respondWithAppError(w, apperrors.NewValidationError("host is required"))
		return
	}
	path := query.Get("path")
	if path == "" {
		path = "/"
	}
	if path[0] != '/' {
		respondWithAppError(w, apperrors.NewValidationError("path must start with /"))
		return
	}

	decision := h.router.Resolve(host, path)
	resp := ResolveResponse{RouteDecision: decision}
	if decision.IsRedirect() {
		resp.Location = decision.RedirectURL(h.scheme, "")
		resp.Status = h.redirectStatus
	}

	respondWithJSON(w, http.StatusOK, resp)
}
