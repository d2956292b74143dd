package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

// PostRepository is the Post Store. Every status change is a conditional
// update on the current status; callers learn from the returned bool whether
// they won the transition.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ListByUserAndStatus(ctx context.Context, userID int64, status string, limit, offset int) ([]*models.Post, error)
	CountByUserAndStatus(ctx context.Context, userID int64, status string) (int, error)
	ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error)
	ListUpdatedSince(ctx context.Context, userID int64, since time.Time) ([]*models.Post, error)
	FindDuePosts(ctx context.Context, now time.Time, limit int) ([]*models.Post, error)
	TryClaim(ctx context.Context, id int64, from, to string) (bool, error)
	ClaimDue(ctx context.Context, id int64, now time.Time) (bool, error)
	SetTerminalStatus(ctx context.Context, id int64, status string, publishedAt *time.Time, lastError models.PlatformResults) (bool, error)
	Schedule(ctx context.Context, id int64, from []string, when time.Time) (bool, error)
	Cancel(ctx context.Context, id int64) (bool, error)
	FailStale(ctx context.Context, olderThan time.Time, message string) ([]int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
}

const postColumns = `id, user_id, content, media_urls, platforms, status, scheduled_at, published_at, last_error, created_at, updated_at`

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.UserID, &post.Content, &post.MediaURLs, &post.Platforms, &post.Status,
		&post.ScheduledAt, &post.PublishedAt, &post.LastError, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (user_id, content, media_urls, platforms, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	mediaURLs := post.MediaURLs
	if mediaURLs == nil {
		mediaURLs = pq.StringArray{}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Content, mediaURLs, post.Platforms, post.Status, post.ScheduledAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) ListByUserAndStatus(ctx context.Context, userID int64, status string, limit, offset int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE user_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	return r.queryPosts(ctx, query, userID, status, limit, offset)
}

func (r *postRepository) CountByUserAndStatus(ctx context.Context, userID int64, status string) (int, error) {
	query := `SELECT COUNT(*) FROM posts WHERE user_id = $1 AND ($2::text = '' OR status = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID, status).Scan(&total); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return total, nil
}

func (r *postRepository) ListScheduled(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE user_id = $1 AND status = $2
		ORDER BY scheduled_at ASC, id ASC`
	return r.queryPosts(ctx, query, userID, models.PostStatusScheduled)
}

func (r *postRepository) ListUpdatedSince(ctx context.Context, userID int64, since time.Time) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at ASC, id ASC`
	return r.queryPosts(ctx, query, userID, since)
}

func (r *postRepository) FindDuePosts(ctx context.Context, now time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at ASC, id ASC
		LIMIT $3`
	return r.queryPosts(ctx, query, models.PostStatusScheduled, now, limit)
}

func (r *postRepository) TryClaim(ctx context.Context, id int64, from, to string) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	return r.exec(ctx, query, id, from, to)
}

func (r *postRepository) ClaimDue(ctx context.Context, id int64, now time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = $3 AND scheduled_at <= $4
	`
	return r.exec(ctx, query, id, models.PostStatusPublishing, models.PostStatusScheduled, now)
}

func (r *postRepository) SetTerminalStatus(ctx context.Context, id int64, status string, publishedAt *time.Time, lastError models.PlatformResults) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			published_at = $3,
			last_error = $4,
			updated_at = NOW()
		WHERE id = $1 AND status = $5
	`
	return r.exec(ctx, query, id, status, publishedAt, lastError, models.PostStatusPublishing)
}

func (r *postRepository) Schedule(ctx context.Context, id int64, from []string, when time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			scheduled_at = $3,
			published_at = NULL,
			last_error = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)
	`
	return r.exec(ctx, query, id, models.PostStatusScheduled, when, pq.Array(from))
}

func (r *postRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE posts
		SET status = $2,
			scheduled_at = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	return r.exec(ctx, query, id, models.PostStatusDraft, models.PostStatusScheduled)
}

func (r *postRepository) FailStale(ctx context.Context, olderThan time.Time, message string) ([]int64, error) {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = NULL,
			last_error = (
				SELECT jsonb_agg(jsonb_build_object('platform', p, 'success', false, 'message', $2::text))
				FROM unnest(platforms) AS p
			),
			updated_at = NOW()
		WHERE status = $3 AND updated_at < $4
		RETURNING id
	`
	rows, err := r.db.QueryContext(ctx, query, models.PostStatusFailed, message, models.PostStatusPublishing, olderThan)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM posts WHERE id = $1 AND status <> $2`
	return r.exec(ctx, query, id, models.PostStatusPublishing)
}
