package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostRepository(t *testing.T) (PostRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostRepository(db), mock
}

var postRowColumns = []string{"id", "user_id", "content", "media_urls", "platforms", "status",
	"scheduled_at", "published_at", "last_error", "created_at", "updated_at"}

func TestPostRepositoryTryClaim(t *testing.T) {
	repo, mock := newMockPostRepository(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE posts\s+SET status = \$3`).
		WithArgs(int64(7), models.PostStatusScheduled, models.PostStatusPublishing).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE posts\s+SET status = \$3`).
		WithArgs(int64(7), models.PostStatusScheduled, models.PostStatusPublishing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.TryClaim(ctx, 7, models.PostStatusScheduled, models.PostStatusPublishing)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.TryClaim(ctx, 7, models.PostStatusScheduled, models.PostStatusPublishing)
	require.NoError(t, err)
	assert.False(t, won)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryGetByIDMissing(t *testing.T) {
	repo, mock := newMockPostRepository(t)

	mock.ExpectQuery(`SELECT .+ FROM posts WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	post, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, post)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryFindDuePosts(t *testing.T) {
	repo, mock := newMockPostRepository(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)

	rows := sqlmock.NewRows(postRowColumns).
		AddRow(int64(1), int64(9), "Hello", "{}", "{twitter,facebook}", models.PostStatusScheduled,
			due, nil, nil, now, now)

	mock.ExpectQuery(`FROM posts\s+WHERE status = \$1 AND scheduled_at <= \$2\s+ORDER BY scheduled_at ASC, id ASC\s+LIMIT \$3`).
		WithArgs(models.PostStatusScheduled, now, 100).
		WillReturnRows(rows)

	posts, err := repo.FindDuePosts(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].ID)
	assert.Equal(t, []string{"twitter", "facebook"}, []string(posts[0].Platforms))
	assert.Empty(t, posts[0].MediaURLs)
	require.NotNil(t, posts[0].ScheduledAt)
	assert.True(t, posts[0].ScheduledAt.Equal(due))
	assert.Nil(t, posts[0].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryScanLastError(t *testing.T) {
	repo, mock := newMockPostRepository(t)
	now := time.Now()

	rows := sqlmock.NewRows(postRowColumns).
		AddRow(int64(3), int64(9), "Hello", "{}", "{instagram}", models.PostStatusFailed,
			nil, nil, []byte(`[{"platform":"instagram","success":false,"message":"media required"}]`), now, now)
	mock.ExpectQuery(`SELECT .+ FROM posts WHERE id = \$1`).WithArgs(int64(3)).WillReturnRows(rows)

	post, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, models.PlatformResults{{Platform: "instagram", Message: "media required"}}, post.LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositorySetTerminalStatusRequiresPublishing(t *testing.T) {
	repo, mock := newMockPostRepository(t)
	publishedAt := time.Now()

	mock.ExpectExec(`UPDATE posts\s+SET status = \$2,\s+published_at = \$3,\s+last_error = \$4,.+WHERE id = \$1 AND status = \$5`).
		WithArgs(int64(5), models.PostStatusPublished, sqlmock.AnyArg(), nil, models.PostStatusPublishing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SetTerminalStatus(context.Background(), 5, models.PostStatusPublished, &publishedAt, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositorySchedule(t *testing.T) {
	repo, mock := newMockPostRepository(t)
	when := time.Now().Add(time.Hour)

	mock.ExpectExec(`WHERE id = \$1 AND status = ANY\(\$4\)`).
		WithArgs(int64(5), models.PostStatusScheduled, when, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Schedule(context.Background(), 5, []string{models.PostStatusDraft, models.PostStatusFailed}, when)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryFailStale(t *testing.T) {
	repo, mock := newMockPostRepository(t)
	cutoff := time.Now().Add(-15 * time.Minute)

	mock.ExpectQuery(`UPDATE posts.+unnest\(platforms\).+RETURNING id`).
		WithArgs(models.PostStatusFailed, "publish interrupted", models.PostStatusPublishing, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)).AddRow(int64(8)))

	ids, err := repo.FailStale(context.Background(), cutoff, "publish interrupted")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 8}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepositoryCreate(t *testing.T) {
	repo, mock := newMockPostRepository(t)

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(int64(9), "Hello", sqlmock.AnyArg(), sqlmock.AnyArg(), models.PostStatusDraft, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	id, err := repo.Create(context.Background(), &models.Post{
		UserID:    9,
		Content:   "Hello",
		Platforms: []string{"twitter"},
		Status:    models.PostStatusDraft,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSocialAccountRepositoryCreateUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewSocialAccountRepository(db)

	expires := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO social_accounts(?s:.*)ON CONFLICT \(user_id, platform, account_id\) DO UPDATE`).
		WithArgs(int64(1), "twitter", "tw", "", "", "", "enc-access", "", expires, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	id, err := repo.Create(context.Background(), &models.SocialAccount{
		UserID:         1,
		Platform:       "twitter",
		AccountID:      "tw",
		AccessToken:    "enc-access",
		TokenExpiresAt: expires,
		IsActive:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
