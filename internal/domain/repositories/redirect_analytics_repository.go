package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
)

// RedirectAnalyticsRepository persists redirect events
type RedirectAnalyticsRepository interface {
	// EnsureSchema creates the backing table when missing
	EnsureSchema(ctx context.Context) error

	// LogEvent stores one redirect event
	LogEvent(ctx context.Context, event *entities.RedirectEvent) error

	// TopRedirects aggregates events since the given time, most frequent first
	TopRedirects(ctx context.Context, since time.Time, limit int) ([]*entities.RedirectStat, error)

	// DeleteBefore removes events older than cutoff and returns how many were removed
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
