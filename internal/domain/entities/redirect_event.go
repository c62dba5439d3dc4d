package entities

import (
	"time"

	"github.com/google/uuid"
)

// RedirectEvent records one redirect issued by the gateway
type RedirectEvent struct {
	ID           string      `json:"id"`
	RequestID    string      `json:"request_id,omitempty"`
	SourceHost   string      `json:"source_host"`
	SourcePortal Portal      `json:"source_portal"`
	TargetPortal Portal      `json:"target_portal"`
	Path         string      `json:"path"`
	TargetURL    string      `json:"target_url"`
	Reason       RouteReason `json:"reason"`
	Referer      string      `json:"referer,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewRedirectEvent builds an event from a redirect decision
func NewRedirectEvent(requestID, sourceHost, targetURL, referer string, decision RouteDecision) *RedirectEvent {
	return &RedirectEvent{
		ID:           uuid.New().String(),
		RequestID:    requestID,
		SourceHost:   sourceHost,
		SourcePortal: decision.Host.Portal,
		TargetPortal: decision.TargetPortal,
		Path:         decision.Path,
		TargetURL:    targetURL,
		Reason:       decision.Reason,
		Referer:      referer,
		CreatedAt:    time.Now().UTC(),
	}
}

// RedirectStat aggregates redirects by source portal, target portal and path
type RedirectStat struct {
	SourcePortal Portal    `json:"source_portal"`
	TargetPortal Portal    `json:"target_portal"`
	Path         string    `json:"path"`
	Count        int64     `json:"count"`
	LastSeen     time.Time `json:"last_seen"`
}
