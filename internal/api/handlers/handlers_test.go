package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	app     *fiber.App
	store   *repository.MemoryStore
	twitter *platform.FakeAdapter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := repository.NewMemoryStore()
	tw := platform.NewFakeAdapter(platform.Twitter)
	registry := platform.NewRegistry(tw, platform.NewFakeAdapter(platform.Facebook))
	publisher := service.NewPublisher(store.Posts(), store.PostingHistory(), registry,
		service.NewFirstActiveResolver(store.Accounts(), testSecret), service.PublisherConfig{})

	posts := NewPostHandler(
		service.NewPostService(store.Posts(), store.Analytics(), registry, publisher, nil),
		service.NewAnalyticsService(store.Posts(), store.PostingHistory(), store.Accounts(), store.Analytics(), registry, testSecret, 0),
	)
	accounts := NewPlatformHandler(service.NewPlatformService(store.Accounts(), registry, testSecret))
	sync := NewSyncHandler(service.NewSyncService(store.Posts(), store.Analytics(), store.Accounts()))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "5")
		return c.Next()
	})
	app.Post("/posts/create", posts.CreatePost)
	app.Get("/posts", posts.ListPosts)
	app.Get("/posts/scheduled", posts.ScheduledPosts)
	app.Post("/posts/schedule", posts.SchedulePost)
	app.Post("/posts/publish", posts.PublishNow)
	app.Post("/posts/remove", posts.RemovePost)
	app.Get("/posts/analytics", posts.Analytics)
	app.Get("/accounts", accounts.ListSocialAccounts)
	app.Post("/accounts/connect", accounts.ConnectSocialAccount)
	app.Post("/accounts/remove", accounts.DeleteSocialAccount)
	app.Get("/sync/conflicts", sync.Conflicts)

	return &testServer{app: app, store: store, twitter: tw}
}

func (s *testServer) do(t *testing.T, method, target string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestCreateAndSchedulePost(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/posts/create", map[string]any{
		"content":   "hello",
		"platforms": []string{"twitter"},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var created service.PublishOutcome
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, models.PostStatusDraft, created.Post.Status)

	at := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	status, body = s.do(t, http.MethodPost, "/posts/schedule", map[string]any{
		"post_id":      created.Post.ID,
		"action":       "schedule",
		"scheduled_at": at,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = s.do(t, http.MethodGet, "/posts/scheduled", nil)
	require.Equal(t, http.StatusOK, status)

	var scheduled []*models.Post
	require.NoError(t, json.Unmarshal(body, &scheduled))
	require.Len(t, scheduled, 1)
	assert.True(t, at.Equal(*scheduled[0].ScheduledAt))

	status, _ = s.do(t, http.MethodPost, "/posts/schedule", map[string]any{
		"post_id": created.Post.ID,
		"action":  "cancel",
	})
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/posts?status=draft", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"total":1`)
}

func TestCreatePostValidation(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/posts/create", map[string]any{
		"content":   "hello",
		"platforms": []string{"myspace"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "not supported")

	status, _ = s.do(t, http.MethodPost, "/posts/schedule", map[string]any{"post_id": 1, "action": "explode"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPublishNowEndpoint(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/accounts/connect", map[string]any{
		"platform": "twitter", "account_id": "tw-1", "access_token": "token",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.NotContains(t, string(body), "access_token")

	status, body = s.do(t, http.MethodPost, "/posts/create", map[string]any{
		"content":   "hello",
		"platforms": []string{"twitter", "facebook"},
	})
	require.Equal(t, http.StatusOK, status)
	var created service.PublishOutcome
	require.NoError(t, json.Unmarshal(body, &created))

	status, body = s.do(t, http.MethodPost, "/posts/publish?id="+itoa(created.Post.ID), nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var outcome service.PublishOutcome
	require.NoError(t, json.Unmarshal(body, &outcome))
	assert.Equal(t, models.PostStatusFailed, outcome.Post.Status)
	assert.Equal(t, models.PlatformResults{
		{Platform: platform.Twitter, Success: true, ExternalID: "twitter-1"},
		{Platform: platform.Facebook, Message: service.MsgAccountNotConnected},
	}, outcome.Results)

	status, _ = s.do(t, http.MethodPost, "/posts/remove?id="+itoa(created.Post.ID), nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestErrorStatusCodes(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/posts/schedule", map[string]any{"post_id": 99, "action": "cancel"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := s.do(t, http.MethodPost, "/posts/create", map[string]any{
		"content": "x", "platforms": []string{"twitter"}, "publish_now": true,
	})
	require.Equal(t, http.StatusOK, status)
	var created service.PublishOutcome
	require.NoError(t, json.Unmarshal(body, &created))

	status, _ = s.do(t, http.MethodPost, "/posts/schedule", map[string]any{
		"post_id": created.Post.ID, "action": "reschedule", "scheduled_at": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/posts/schedule", map[string]any{
		"post_id": created.Post.ID, "action": "schedule", "scheduled_at": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.do(t, http.MethodGet, "/sync/conflicts?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodGet, "/posts/analytics?id="+itoa(created.Post.ID), nil)
	assert.Equal(t, http.StatusOK, status)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
