package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DueNotifier is told about every post that becomes scheduled so it can be
// published on time instead of waiting for the next scheduler tick.
type DueNotifier interface {
	EnqueueDue(ctx context.Context, postID int64, at time.Time) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*PublishOutcome, error)
	SchedulePost(ctx context.Context, userID, postID int64, when time.Time) (*models.Post, error)
	CancelScheduledPost(ctx context.Context, userID, postID int64) (*models.Post, error)
	ReschedulePost(ctx context.Context, userID, postID int64, when time.Time) (*models.Post, error)
	PublishNow(ctx context.Context, userID, postID int64) (*PublishOutcome, error)
	GetScheduledPosts(ctx context.Context, userID int64) ([]*models.Post, error)
	List(ctx context.Context, userID int64, status string, limit, offset int) (*transfer.PostList, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	pr        repository.PostRepository
	ar        repository.AnalyticsRepository
	registry  *platform.Registry
	publisher *Publisher
	notifier  DueNotifier
}

func NewPostService(
	pr repository.PostRepository,
	ar repository.AnalyticsRepository,
	registry *platform.Registry,
	publisher *Publisher,
	notifier DueNotifier) PostService {
	return &postService{
		pr:        pr,
		ar:        ar,
		registry:  registry,
		publisher: publisher,
		notifier:  notifier,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*PublishOutcome, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}
	if pc == nil {
		return nil, fmt.Errorf("%w: post creation data is nil", ErrInvalidInput)
	}
	if err := pc.Validate(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	platforms, err := s.normalizePlatforms(pc.Platforms)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:    userID,
		Content:   pc.Content,
		MediaURLs: append([]string{}, pc.MediaURLs...),
		Platforms: platforms,
		Status:    models.PostStatusDraft,
	}
	switch {
	case pc.PublishNow:
		post.Status = models.PostStatusPublishing
	case pc.ScheduledAt != nil:
		at := pc.ScheduledAt.UTC()
		post.Status = models.PostStatusScheduled
		post.ScheduledAt = &at
	}

	postID, err := s.pr.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	slog.Info("post created", "post_id", postID, "status", post.Status)

	if post.Status == models.PostStatusPublishing {
		// The row is already claimed. Publish the inserted copy so a failed
		// re-read cannot strand it in publishing.
		now := time.Now().UTC()
		post.ID = postID
		post.CreatedAt = now
		post.UpdatedAt = now
		return s.publisher.Publish(ctx, post)
	}

	created, err := s.get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if created.Status == models.PostStatusScheduled {
		s.notifyDue(ctx, postID, *created.ScheduledAt)
	}
	return &PublishOutcome{Post: created}, nil
}

// normalizePlatforms lowercases and dedupes the identifiers, keeping first
// occurrence order, and rejects platforms without a registered adapter.
func (s *postService) normalizePlatforms(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		id := strings.ToLower(strings.TrimSpace(p))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if !s.registry.Supports(id) {
			return nil, fmt.Errorf("%w: platform %q is not supported", ErrInvalidInput, p)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one platform is required", ErrInvalidInput)
	}
	return out, nil
}

func (s *postService) SchedulePost(ctx context.Context, userID, postID int64, when time.Time) (*models.Post, error) {
	return s.schedule(ctx, userID, postID, when, "schedule",
		[]string{models.PostStatusDraft, models.PostStatusFailed})
}

func (s *postService) ReschedulePost(ctx context.Context, userID, postID int64, when time.Time) (*models.Post, error) {
	return s.schedule(ctx, userID, postID, when, "reschedule",
		[]string{models.PostStatusScheduled, models.PostStatusFailed})
}

func (s *postService) schedule(ctx context.Context, userID, postID int64, when time.Time, action string, from []string) (*models.Post, error) {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return nil, err
	}
	if when.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrInvalidInput)
	}
	when = when.UTC()

	ok, err := s.pr.Schedule(ctx, postID, from, when)
	if err != nil {
		return nil, fmt.Errorf("error scheduling post %d: %w", postID, err)
	}
	if !ok {
		_, err := s.transitionError(ctx, postID, action)
		return nil, err
	}

	slog.Info("post scheduled", "post_id", postID, "scheduled_at", when)
	s.notifyDue(ctx, postID, when)
	return s.get(ctx, postID)
}

func (s *postService) CancelScheduledPost(ctx context.Context, userID, postID int64) (*models.Post, error) {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return nil, err
	}

	ok, err := s.pr.Cancel(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error cancelling post %d: %w", postID, err)
	}
	if ok {
		slog.Info("post cancelled", "post_id", postID)
		return s.get(ctx, postID)
	}

	post, err := s.transitionError(ctx, postID, "cancel")
	if post != nil && post.Status == models.PostStatusDraft {
		return post, nil
	}
	return nil, err
}

// transitionError re-reads a post whose conditional update matched nothing
// and explains why. The post is returned when it still exists.
func (s *postService) transitionError(ctx context.Context, postID int64, action string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, fmt.Errorf("%w: cannot %s a %s post", ErrInvalidTransition, action, post.Status)
}

func (s *postService) PublishNow(ctx context.Context, userID, postID int64) (*PublishOutcome, error) {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return nil, err
	}

	post, err := s.get(ctx, postID)
	if err != nil {
		return nil, err
	}

	switch post.Status {
	case models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusFailed:
	case models.PostStatusPublishing:
		return nil, ErrClaimConflict
	default:
		return nil, fmt.Errorf("%w: cannot publish a %s post", ErrInvalidTransition, post.Status)
	}

	claimed, err := s.pr.TryClaim(ctx, postID, post.Status, models.PostStatusPublishing)
	if err != nil {
		return nil, fmt.Errorf("error claiming post %d: %w", postID, err)
	}
	if !claimed {
		slog.Info("publish now lost the claim", "post_id", postID)
		return nil, ErrClaimConflict
	}

	post.Status = models.PostStatusPublishing
	return s.publisher.Publish(ctx, post)
}

func (s *postService) GetScheduledPosts(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListScheduled(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing scheduled posts: %w", err)
	}
	return posts, nil
}

func (s *postService) List(ctx context.Context, userID int64, status string, limit, offset int) (*transfer.PostList, error) {
	if status != "" && !models.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	posts, err := s.pr.ListByUserAndStatus(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	total, err := s.pr.CountByUserAndStatus(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("error counting posts: %w", err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}

	return &transfer.PostList{Posts: posts, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return nil, err
	}

	post, err := s.get(ctx, postID)
	if err != nil {
		return nil, err
	}

	rows, err := s.ar.ListByPostID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting analytics of post %d: %w", postID, err)
	}
	if len(rows) > 0 {
		post.Analytics = models.AggregateAnalytics(postID, rows)
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	if err := s.checkOwner(ctx, userID, postID); err != nil {
		return err
	}

	ok, err := s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("error removing post %d: %w", postID, err)
	}
	if !ok {
		_, err := s.transitionError(ctx, postID, "remove")
		return err
	}
	return nil
}

func (s *postService) checkOwner(ctx context.Context, userID, postID int64) error {
	if userID == 0 {
		return fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}
	if postID == 0 {
		return fmt.Errorf("%w: post id is not valid", ErrInvalidInput)
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		slog.Info("post doesn't exist", "post_id", postID, "user_id", userID)
		return ErrNotFound
	}
	return nil
}

func (s *postService) get(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post %d: %w", postID, err)
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

func (s *postService) notifyDue(ctx context.Context, postID int64, at time.Time) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueueDue(ctx, postID, at); err != nil {
		slog.Error("error enqueueing due post, scheduler tick will pick it up", "post_id", postID, "error", err)
	}
}
