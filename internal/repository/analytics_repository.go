package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type AnalyticsRepository interface {
	Upsert(ctx context.Context, pa *models.PlatformAnalytics) error
	ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformAnalytics, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Upsert(ctx context.Context, pa *models.PlatformAnalytics) error {
	query := `
		INSERT INTO post_analytics (post_id, platform, likes, shares, comments, impressions, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (post_id, platform) DO UPDATE
		SET likes = EXCLUDED.likes,
			shares = EXCLUDED.shares,
			comments = EXCLUDED.comments,
			impressions = EXCLUDED.impressions,
			synced_at = EXCLUDED.synced_at
	`
	_, err := r.db.ExecContext(ctx, query, pa.PostID, pa.Platform, pa.Metrics.Likes, pa.Metrics.Shares,
		pa.Metrics.Comments, pa.Metrics.Impressions, pa.SyncedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *analyticsRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformAnalytics, error) {
	query := `
		SELECT post_id, platform, likes, shares, comments, impressions, synced_at
		FROM post_analytics
		WHERE post_id = $1
		ORDER BY platform
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var out []*models.PlatformAnalytics
	for rows.Next() {
		var pa models.PlatformAnalytics
		if err := rows.Scan(&pa.PostID, &pa.Platform, &pa.Metrics.Likes, &pa.Metrics.Shares,
			&pa.Metrics.Comments, &pa.Metrics.Impressions, &pa.SyncedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		out = append(out, &pa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return out, nil
}
