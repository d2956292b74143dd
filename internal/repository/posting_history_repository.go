package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PostingHistoryRepository interface {
	Create(ctx context.Context, ph *models.PostingHistory) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error)
	LatestSuccessful(ctx context.Context, postID int64) ([]*models.PostingHistory, error)
}

const postingHistoryColumns = `id, attempt_id, user_id, post_id, platform, account_id, success, external_id, error_message, created_at`

type postingHistoryRepository struct {
	db *sql.DB
}

func NewPostingHistoryRepository(db *sql.DB) PostingHistoryRepository {
	return &postingHistoryRepository{db: db}
}

func (r *postingHistoryRepository) Create(ctx context.Context, ph *models.PostingHistory) (int64, error) {
	query := `
		INSERT INTO posting_history (attempt_id, user_id, post_id, platform, account_id, success, external_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, ph.AttemptID, ph.UserID, ph.PostID, ph.Platform,
		ph.AccountID, ph.Success, ph.ExternalID, ph.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postingHistoryRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	query := `SELECT ` + postingHistoryColumns + ` FROM posting_history WHERE post_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, postID)
}

// LatestSuccessful returns, per platform, the newest successful row of the post.
func (r *postingHistoryRepository) LatestSuccessful(ctx context.Context, postID int64) ([]*models.PostingHistory, error) {
	query := `SELECT DISTINCT ON (platform) ` + postingHistoryColumns + ` FROM posting_history
		WHERE post_id = $1 AND success
		ORDER BY platform, created_at DESC, id DESC`
	return r.list(ctx, query, postID)
}

func (r *postingHistoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostingHistory, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var phs []*models.PostingHistory
	for rows.Next() {
		var ph models.PostingHistory
		err := rows.Scan(&ph.ID, &ph.AttemptID, &ph.UserID, &ph.PostID, &ph.Platform, &ph.AccountID,
			&ph.Success, &ph.ExternalID, &ph.ErrorMessage, &ph.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		phs = append(phs, &ph)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return phs, nil
}
