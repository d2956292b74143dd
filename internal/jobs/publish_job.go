package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

type PublishJobConfig struct {
	BatchSize   int
	Concurrency int
	StaleAfter  time.Duration
}

// PublishJob is the scheduler loop. Every run claims the due posts one by
// one and publishes the ones it won. Losing a claim is a silent skip.
type PublishJob struct {
	pr          repository.PostRepository
	publisher   *service.Publisher
	batchSize   int
	concurrency int
	staleAfter  time.Duration
	now         func() time.Time
}

func NewPublishJob(pr repository.PostRepository, publisher *service.Publisher, cfg PublishJobConfig) *PublishJob {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	// The sweeper must never fail a post whose attempt is still running.
	if longest := publisher.MaxAttemptDuration(); cfg.StaleAfter <= longest {
		slog.Warn("stale publishing threshold is shorter than an attempt, raising it",
			"stale_after", cfg.StaleAfter, "max_attempt", longest, "using", 2*longest)
		cfg.StaleAfter = 2 * longest
	}
	return &PublishJob{
		pr:          pr,
		publisher:   publisher,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		staleAfter:  cfg.StaleAfter,
		now:         time.Now,
	}
}

// PublishDuePosts is the cron entry point.
func (j *PublishJob) PublishDuePosts() {
	n, err := j.Run(context.Background())
	if err != nil {
		slog.Error("scheduler run failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("scheduler run finished", "published", n)
	}
}

// Run processes one batch of due posts and returns how many this run claimed.
func (j *PublishJob) Run(ctx context.Context) (int, error) {
	now := j.now()

	posts, err := j.pr.FindDuePosts(ctx, now, j.batchSize)
	if err != nil {
		return 0, fmt.Errorf("error finding due posts: %w", err)
	}

	var (
		wg      sync.WaitGroup
		claimed atomic.Int64
	)
	semaphore := make(chan struct{}, j.concurrency)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.Post) {
			defer wg.Done()
			defer func() { <-semaphore }()

			won, err := j.pr.ClaimDue(ctx, post.ID, now)
			if err != nil {
				slog.Error("error claiming post", "post_id", post.ID, "error", err)
				return
			}
			if !won {
				slog.Debug("post already claimed", "post_id", post.ID)
				return
			}
			claimed.Add(1)

			post.Status = models.PostStatusPublishing
			if _, err := j.publisher.Publish(ctx, post); err != nil {
				slog.Error("error publishing post", "post_id", post.ID, "error", err)
			}
		}(post)
	}

	wg.Wait()
	return int(claimed.Load()), nil
}

// PublishPost publishes a single post if it is still scheduled and due. It
// backs the delayed queue task, which may fire after the scheduler already
// took the post.
func (j *PublishJob) PublishPost(ctx context.Context, postID int64) error {
	// Read before claiming so nothing that can fail sits between the claim
	// and the publish. ClaimDue re-checks status and time.
	post, err := j.pr.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("error getting post %d: %w", postID, err)
	}
	if post == nil {
		return nil
	}

	won, err := j.pr.ClaimDue(ctx, postID, j.now())
	if err != nil {
		return fmt.Errorf("error claiming post %d: %w", postID, err)
	}
	if !won {
		slog.Info("post not due or already claimed", "post_id", postID)
		return nil
	}

	post.Status = models.PostStatusPublishing
	_, err = j.publisher.Publish(ctx, post)
	return err
}

// FailStalePosts resolves posts stuck in publishing, which only happens when
// a process died between claim and terminal write.
func (j *PublishJob) FailStalePosts() {
	ids, err := j.pr.FailStale(context.Background(), j.now().Add(-j.staleAfter), service.MsgInternalError)
	if err != nil {
		slog.Error("error failing stale posts", "error", err)
		return
	}
	if len(ids) > 0 {
		slog.Warn("failed posts stuck in publishing", "post_ids", ids)
	}
}
