package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const snapshotPostLimit = 50

// SyncService serves offline clients: a snapshot of recent state and the
// posts changed since the client last synced.
type SyncService interface {
	Snapshot(ctx context.Context, userID int64) (*transfer.SyncSnapshot, error)
	Conflicts(ctx context.Context, userID int64, since time.Time) (*transfer.SyncConflicts, error)
}

type syncService struct {
	pr  repository.PostRepository
	ar  repository.AnalyticsRepository
	sa  repository.SocialAccountRepository
	now func() time.Time
}

func NewSyncService(pr repository.PostRepository, ar repository.AnalyticsRepository, sa repository.SocialAccountRepository) SyncService {
	return &syncService{pr: pr, ar: ar, sa: sa, now: time.Now}
}

func (s *syncService) Snapshot(ctx context.Context, userID int64) (*transfer.SyncSnapshot, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}

	syncedAt := s.now().UTC()

	posts, err := s.pr.ListByUserAndStatus(ctx, userID, "", snapshotPostLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	for _, post := range posts {
		rows, err := s.ar.ListByPostID(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("error getting analytics of post %d: %w", post.ID, err)
		}
		if len(rows) > 0 {
			post.Analytics = models.AggregateAnalytics(post.ID, rows)
		}
	}

	accounts, err := s.sa.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}

	if posts == nil {
		posts = []*models.Post{}
	}
	if accounts == nil {
		accounts = []*models.SocialAccount{}
	}
	return &transfer.SyncSnapshot{Posts: posts, Accounts: accounts, SyncedAt: syncedAt}, nil
}

func (s *syncService) Conflicts(ctx context.Context, userID int64, since time.Time) (*transfer.SyncConflicts, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}
	if since.IsZero() {
		return nil, fmt.Errorf("%w: since is required", ErrInvalidInput)
	}

	posts, err := s.pr.ListUpdatedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("error listing changed posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return &transfer.SyncConflicts{Since: since, Posts: posts}, nil
}
