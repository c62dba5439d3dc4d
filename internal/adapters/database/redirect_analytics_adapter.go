package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/hostportal/backend/internal/domain/entities"
	"github.com/zatekoja/hostportal/backend/internal/domain/repositories"
	"github.com/zatekoja/hostportal/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/hostportal/backend/pkg/errors"
)

const redirectTable = "portal_redirects"

const redirectSchema = `
CREATE TABLE IF NOT EXISTS portal_redirects (
	id            UUID PRIMARY KEY,
	request_id    TEXT,
	source_host   TEXT NOT NULL,
	source_portal TEXT NOT NULL,
	target_portal TEXT NOT NULL,
	path          TEXT NOT NULL,
	target_url    TEXT NOT NULL,
	reason        TEXT NOT NULL,
	referer       TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_portal_redirects_created_at ON portal_redirects (created_at);
`

// RedirectAnalyticsAdapter implements redirect analytics persistence in Postgres.
type RedirectAnalyticsAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewRedirectAnalyticsAdapter creates a new redirect analytics adapter.
func NewRedirectAnalyticsAdapter(client *postgres.Client) repositories.RedirectAnalyticsRepository {
	return &RedirectAnalyticsAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// EnsureSchema creates the portal_redirects table and index when missing.
func (a *RedirectAnalyticsAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, redirectSchema); err != nil {
		return apperrors.NewInternalError("failed to create redirect analytics schema", err)
	}
	return nil
}

// LogEvent inserts a redirect event.
func (a *RedirectAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.RedirectEvent) error {
	if event == nil {
		return apperrors.NewInternalError("redirect event is nil", fmt.Errorf("redirect event is nil"))
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	record := goqu.Record{
		"id":            event.ID,
		"request_id":    sql.NullString{String: event.RequestID, Valid: event.RequestID != ""},
		"source_host":   event.SourceHost,
		"source_portal": string(event.SourcePortal),
		"target_portal": string(event.TargetPortal),
		"path":          event.Path,
		"target_url":    event.TargetURL,
		"reason":        string(event.Reason),
		"referer":       sql.NullString{String: event.Referer, Valid: event.Referer != ""},
		"created_at":    event.CreatedAt,
	}

	// every replica receives each bus event; the first insert wins
	query, args, err := a.db.Insert(redirectTable).
		Rows(record).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build redirect insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to log redirect event", err)
	}

	return nil
}

// TopRedirects returns the most frequent redirects since the given time.
func (a *RedirectAnalyticsAdapter) TopRedirects(ctx context.Context, since time.Time, limit int) ([]*entities.RedirectStat, error) {
	if limit <= 0 {
		limit = 50
	}

	query, args, err := a.db.From(redirectTable).
		Select(
			goqu.C("source_portal"),
			goqu.C("target_portal"),
			goqu.C("path"),
			goqu.COUNT(goqu.Star()).As("count"),
			goqu.MAX("created_at").As("last_seen"),
		).
		Where(goqu.C("created_at").Gte(since)).
		GroupBy(goqu.C("source_portal"), goqu.C("target_portal"), goqu.C("path")).
		Order(goqu.I("count").Desc(), goqu.C("path").Asc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build redirect stats query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query redirect stats", err)
	}
	defer rows.Close()

	stats := make([]*entities.RedirectStat, 0, limit)
	for rows.Next() {
		var (
			stat         entities.RedirectStat
			sourcePortal string
			targetPortal string
		)
		if err := rows.Scan(&sourcePortal, &targetPortal, &stat.Path, &stat.Count, &stat.LastSeen); err != nil {
			return nil, apperrors.NewInternalError("failed to scan redirect stat", err)
		}
		stat.SourcePortal = entities.Portal(sourcePortal)
		stat.TargetPortal = entities.Portal(targetPortal)
		stats = append(stats, &stat)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate redirect stats", err)
	}

	return stats, nil
}

// DeleteBefore removes redirect events older than cutoff.
func (a *RedirectAnalyticsAdapter) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := a.db.Delete(redirectTable).
		Where(goqu.C("created_at").Lt(cutoff)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build redirect retention query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to delete old redirect events", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read deleted row count", err)
	}
	return deleted, nil
}
