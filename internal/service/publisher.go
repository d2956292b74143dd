package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const (
	MsgPlatformNotSupported = "platform not supported"
	MsgAccountNotConnected  = "account not connected"
	MsgPublishTimedOut      = "publish timed out"
	MsgInternalError        = "internal error while publishing"

	terminalWriteTimeout = 10 * time.Second
)

var errPublishTimedOut = errors.New(MsgPublishTimedOut)

type PublisherConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// PublishOutcome is the post after its terminal write together with the
// per-platform results of the attempt, in the order of post.Platforms.
type PublishOutcome struct {
	Post    *models.Post            `json:"post"`
	Results models.PlatformResults `json:"results,omitempty"`
}

// Publisher fans a claimed post out to the platform adapters and writes the
// aggregated terminal status.
type Publisher struct {
	posts       repository.PostRepository
	history     repository.PostingHistoryRepository
	registry    *platform.Registry
	resolver    CredentialResolver
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

func NewPublisher(
	posts repository.PostRepository,
	history repository.PostingHistoryRepository,
	registry *platform.Registry,
	resolver CredentialResolver,
	cfg PublisherConfig) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	return &Publisher{
		posts:       posts,
		history:     history,
		registry:    registry,
		resolver:    resolver,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
}

// MaxAttemptDuration is the longest a single attempt can keep a post in
// publishing when it targets every registered platform.
func (p *Publisher) MaxAttemptDuration() time.Duration {
	platforms := len(p.registry.Platforms())
	if platforms == 0 {
		platforms = 1
	}
	rounds := (platforms + p.concurrency - 1) / p.concurrency
	return time.Duration(rounds)*p.timeout + terminalWriteTimeout
}

// Publish runs one attempt for a post the caller has already claimed into
// publishing. Per-platform failures are reported in the outcome; the
// returned error is only set when the terminal write itself failed.
func (p *Publisher) Publish(ctx context.Context, post *models.Post) (outcome *PublishOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publish attempt panicked", "post_id", post.ID, "panic", r)
			outcome, err = p.Fail(ctx, post, MsgInternalError)
		}
	}()

	attemptID := uuid.NewString()
	slog.Info("publishing post", "post_id", post.ID, "attempt_id", attemptID, "platforms", []string(post.Platforms))

	results := p.fanOut(ctx, post, attemptID)
	return p.finish(ctx, post, results)
}

// Fail resolves a claimed post to failed with the same message for every platform.
func (p *Publisher) Fail(ctx context.Context, post *models.Post, message string) (*PublishOutcome, error) {
	results := make(models.PlatformResults, 0, len(post.Platforms))
	for _, id := range post.Platforms {
		results = append(results, models.PlatformResult{Platform: id, Message: message})
	}
	return p.finish(ctx, post, results)
}

func (p *Publisher) fanOut(ctx context.Context, post *models.Post, attemptID string) models.PlatformResults {
	results := make(models.PlatformResults, len(post.Platforms))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.concurrency)

	for i, id := range post.Platforms {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			results[i] = p.publishOne(ctx, post, id, attemptID)
		}(i, id)
	}

	wg.Wait()
	return results
}

func (p *Publisher) publishOne(ctx context.Context, post *models.Post, platformID, attemptID string) (res models.PlatformResult) {
	res = models.PlatformResult{Platform: platformID}
	var accountID int64

	defer func() {
		if r := recover(); r != nil {
			slog.Error("platform publish panicked", "post_id", post.ID, "platform", platformID, "panic", r)
			res = models.PlatformResult{Platform: platformID, Message: MsgInternalError}
		}
		p.record(ctx, post, attemptID, accountID, res)
	}()

	adapter, ok := p.registry.Get(platformID)
	if !ok {
		res.Message = MsgPlatformNotSupported
		return res
	}

	if err := platform.CheckRequirements(adapter.Requirements(), post.Content, post.MediaURLs); err != nil {
		res.Message = err.Error()
		return res
	}

	account, err := p.resolver.Resolve(ctx, post.UserID, platformID)
	if err != nil {
		slog.Error("error resolving account", "post_id", post.ID, "platform", platformID, "error", err)
		res.Message = err.Error()
		return res
	}
	if account == nil {
		res.Message = MsgAccountNotConnected
		return res
	}
	accountID = account.Account.ID

	published, err := p.callAdapter(ctx, adapter, platform.PublishRequest{
		Content:     post.Content,
		MediaURLs:   append([]string(nil), post.MediaURLs...),
		Credentials: account.Credentials,
	})
	if err != nil {
		slog.Info("platform publish failed", "post_id", post.ID, "platform", platformID, "error", err)
		res.Message = err.Error()
		return res
	}

	res.Success = true
	res.ExternalID = published.ExternalID
	res.URL = published.URL
	return res
}

// callAdapter runs Publish in its own goroutine so an adapter that ignores
// ctx still cannot hold the attempt past the timeout.
func (p *Publisher) callAdapter(ctx context.Context, adapter platform.Adapter, req platform.PublishRequest) (*platform.PublishResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type reply struct {
		res *platform.PublishResult
		err error
	}
	done := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		res, err := adapter.Publish(ctx, req)
		done <- reply{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return nil, errPublishTimedOut
			}
			return nil, r.err
		}
		if r.res == nil {
			return nil, errors.New("adapter returned no result")
		}
		return r.res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errPublishTimedOut
		}
		return nil, ctx.Err()
	}
}

func (p *Publisher) record(ctx context.Context, post *models.Post, attemptID string, accountID int64, res models.PlatformResult) {
	if p.history == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("saving posting history panicked", "post_id", post.ID, "platform", res.Platform, "panic", r)
		}
	}()

	ph := &models.PostingHistory{
		AttemptID:    attemptID,
		UserID:       post.UserID,
		PostID:       post.ID,
		Platform:     res.Platform,
		AccountID:    accountID,
		Success:      res.Success,
		ExternalID:   res.ExternalID,
		ErrorMessage: res.Message,
	}
	if _, err := p.history.Create(context.WithoutCancel(ctx), ph); err != nil {
		slog.Error("error saving posting history", "post_id", post.ID, "platform", res.Platform, "error", err)
	}
}

// finish writes the aggregated status. The write is detached from ctx so a
// cancelled caller cannot leave the post in publishing.
func (p *Publisher) finish(ctx context.Context, post *models.Post, results models.PlatformResults) (*PublishOutcome, error) {
	status := models.PostStatusFailed
	var publishedAt *time.Time
	lastError := results

	if results.AllSucceeded() {
		now := p.now()
		status = models.PostStatusPublished
		publishedAt = &now
		lastError = nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	ok, err := p.posts.SetTerminalStatus(writeCtx, post.ID, status, publishedAt, lastError)
	if err != nil {
		return nil, fmt.Errorf("error writing status of post %d: %w", post.ID, err)
	}

	if !ok {
		slog.Warn("post left publishing before the terminal write", "post_id", post.ID)
		current, err := p.posts.GetByID(writeCtx, post.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrNotFound
		}
		return &PublishOutcome{Post: current, Results: results}, nil
	}

	slog.Info("post publish finished", "post_id", post.ID, "status", status, "failed_platforms", results.FailedPlatforms())

	updated := post.Clone()
	updated.Status = status
	updated.PublishedAt = publishedAt
	updated.LastError = lastError
	return &PublishOutcome{Post: updated, Results: results}, nil
}
