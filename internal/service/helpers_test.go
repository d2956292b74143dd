package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	testUserID = int64(7)
)

type dueCall struct {
	postID int64
	at     time.Time
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []dueCall
}

func (n *recordingNotifier) EnqueueDue(_ context.Context, postID int64, at time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, dueCall{postID: postID, at: at})
	return nil
}

func (n *recordingNotifier) Calls() []dueCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]dueCall(nil), n.calls...)
}

type testEnv struct {
	store     *repository.MemoryStore
	registry  *platform.Registry
	twitter   *platform.FakeAdapter
	facebook  *platform.FakeAdapter
	instagram *platform.FakeAdapter
	publisher *Publisher
	notifier  *recordingNotifier
	posts     PostService
	accounts  PlatformService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repository.NewMemoryStore()

	tw := platform.NewFakeAdapter(platform.Twitter)
	tw.Reqs = platform.Requirements{MaxContentLength: 280}
	fb := platform.NewFakeAdapter(platform.Facebook)
	ig := platform.NewFakeAdapter(platform.Instagram)
	ig.Reqs = platform.Requirements{MediaRequired: true, MaxContentLength: 2200}
	registry := platform.NewRegistry(tw, fb, ig)

	resolver := NewFirstActiveResolver(store.Accounts(), testSecret)
	publisher := NewPublisher(store.Posts(), store.PostingHistory(), registry, resolver,
		PublisherConfig{Timeout: time.Second, Concurrency: 4})
	notifier := &recordingNotifier{}

	return &testEnv{
		store:     store,
		registry:  registry,
		twitter:   tw,
		facebook:  fb,
		instagram: ig,
		publisher: publisher,
		notifier:  notifier,
		posts:     NewPostService(store.Posts(), store.Analytics(), registry, publisher, notifier),
		accounts:  NewPlatformService(store.Accounts(), registry, testSecret),
	}
}

func (e *testEnv) connect(t *testing.T, platformID string) *models.SocialAccount {
	t.Helper()
	acc, err := e.accounts.Connect(context.Background(), testUserID, &transfer.AccountConnection{
		Platform:    platformID,
		AccountID:   platformID + "-account",
		AccessToken: platformID + "-token",
	})
	require.NoError(t, err)
	return acc
}

func (e *testEnv) createPost(t *testing.T, status string, platforms ...string) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:    testUserID,
		Content:   "hello world",
		Platforms: platforms,
		Status:    status,
	}
	if status == models.PostStatusScheduled {
		at := time.Now().Add(-time.Minute)
		post.ScheduledAt = &at
	}
	id, err := e.store.Posts().Create(context.Background(), post)
	require.NoError(t, err)

	created, err := e.store.Posts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return created
}

func (e *testEnv) reload(t *testing.T, id int64) *models.Post {
	t.Helper()
	post, err := e.store.Posts().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, post)
	return post
}

// assertStatusInvariants checks the fields every status implies.
func assertStatusInvariants(t *testing.T, post *models.Post) {
	t.Helper()
	switch post.Status {
	case models.PostStatusPublished:
		assert.NotNil(t, post.PublishedAt)
		assert.Nil(t, post.LastError)
	case models.PostStatusFailed:
		assert.Nil(t, post.PublishedAt)
		assert.NotEmpty(t, post.LastError)
	case models.PostStatusScheduled:
		assert.NotNil(t, post.ScheduledAt)
	case models.PostStatusDraft:
		assert.Nil(t, post.ScheduledAt)
	}
}
