package middleware

import (
	"context"

	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	decisionKey
)

// decisionSlot lets outer middleware read the decision made further down the chain
type decisionSlot struct {
	decision *entities.RouteDecision
}

func withDecisionSlot(ctx context.Context) (context.Context, *decisionSlot) {
	if slot, ok := ctx.Value(decisionKey).(*decisionSlot); ok {
		return ctx, slot
	}
	slot := &decisionSlot{}
	return context.WithValue(ctx, decisionKey, slot), slot
}

// RouteDecisionFromContext returns the routing decision for the request, if one was made
func RouteDecisionFromContext(ctx context.Context) (entities.RouteDecision, bool) {
	slot, ok := ctx.Value(decisionKey).(*decisionSlot)
	if !ok || slot.decision == nil {
		return entities.RouteDecision{}, false
	}
	return *slot.decision, true
}

// RequestIDFromContext returns the request ID set by RequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// decisionLabels returns low-cardinality portal and action labels
func decisionLabels(ctx context.Context) (string, string) {
	decision, ok := RouteDecisionFromContext(ctx)
	if !ok {
		return string(entities.PortalNone), "gateway"
	}
	return string(decision.Host.Portal), string(decision.Action)
}
