package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
)

type AnalyticsService interface {
	Sync(ctx context.Context, userID, postID int64) (*models.PostAnalytics, error)
}

type analyticsService struct {
	pr        repository.PostRepository
	ph        repository.PostingHistoryRepository
	sa        repository.SocialAccountRepository
	ar        repository.AnalyticsRepository
	registry  *platform.Registry
	secretKey []byte
	timeout   time.Duration
	now       func() time.Time
}

func NewAnalyticsService(
	pr repository.PostRepository,
	ph repository.PostingHistoryRepository,
	sa repository.SocialAccountRepository,
	ar repository.AnalyticsRepository,
	registry *platform.Registry,
	secretKey string,
	timeout time.Duration) AnalyticsService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &analyticsService{
		pr:        pr,
		ph:        ph,
		sa:        sa,
		ar:        ar,
		registry:  registry,
		secretKey: []byte(secretKey),
		timeout:   timeout,
		now:       time.Now,
	}
}

// Sync refreshes the metrics of a published post from every platform it was
// published to. A platform that fails keeps its previously stored values.
// Posts that are not published only return what is stored.
func (s *analyticsService) Sync(ctx context.Context, userID, postID int64) (*models.PostAnalytics, error) {
	if userID == 0 || postID == 0 {
		return nil, fmt.Errorf("%w: user and post are required", ErrInvalidInput)
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		return nil, ErrNotFound
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post %d: %w", postID, err)
	}
	if post == nil {
		return nil, ErrNotFound
	}

	if post.Status == models.PostStatusPublished {
		if err := s.refresh(ctx, post); err != nil {
			return nil, err
		}
	}

	rows, err := s.ar.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting analytics of post %d: %w", postID, err)
	}
	return models.AggregateAnalytics(postID, rows), nil
}

func (s *analyticsService) refresh(ctx context.Context, post *models.Post) error {
	published, err := s.ph.LatestSuccessful(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("error getting posting history of post %d: %w", post.ID, err)
	}

	for _, ph := range published {
		metrics, err := s.fetch(ctx, ph)
		if err != nil {
			slog.Info("skipping analytics of platform", "post_id", post.ID, "platform", ph.Platform, "error", err)
			continue
		}

		pa := &models.PlatformAnalytics{
			PostID:   post.ID,
			Platform: ph.Platform,
			Metrics:  *metrics,
			SyncedAt: s.now().UTC(),
		}
		if err := s.ar.Upsert(ctx, pa); err != nil {
			return fmt.Errorf("error saving %s analytics of post %d: %w", ph.Platform, post.ID, err)
		}
	}
	return nil
}

func (s *analyticsService) fetch(ctx context.Context, ph *models.PostingHistory) (*models.Metrics, error) {
	adapter, ok := s.registry.Get(ph.Platform)
	if !ok {
		return nil, errors.New(MsgPlatformNotSupported)
	}
	if ph.ExternalID == "" {
		return nil, errors.New("no external post id recorded")
	}

	account, err := s.sa.GetByID(ctx, ph.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive {
		return nil, ErrAccountNotConnected
	}

	creds, err := DecryptCredentials(account, s.secretKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	metrics, err := adapter.FetchAnalytics(ctx, ph.ExternalID, creds)
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		return nil, errors.New("adapter returned no metrics")
	}
	return metrics, nil
}
