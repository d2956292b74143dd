package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacebookPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/page-1/feed", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["message"])
		assert.Equal(t, "page-token", body["access_token"])
		assert.Equal(t, "https://cdn/a.jpg", body["link"])

		w.Write([]byte(`{"id":"page-1_99"}`))
	}))
	defer srv.Close()

	fb := NewFacebook("", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := fb.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		MediaURLs:   []string{"https://cdn/a.jpg"},
		Credentials: Credentials{AccountID: "page-1", AccessToken: "page-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "page-1_99", res.ExternalID)
}

func TestFacebookFetchAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/page-1_99", r.URL.Path)
		assert.Equal(t, "page-token", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"likes":{"summary":{"total_count":12}},"shares":{"count":3},"comments":{"summary":{"total_count":4}}}`))
	}))
	defer srv.Close()

	fb := NewFacebook("v19.0", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	m, err := fb.FetchAnalytics(context.Background(), "page-1_99", Credentials{AccessToken: "page-token"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), m.Likes)
	assert.Equal(t, int64(3), m.Shares)
	assert.Equal(t, int64(4), m.Comments)
}

func TestInstagramSinglePublish(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case "/v21.0/ig-1/media":
			assert.Equal(t, "https://cdn/a.jpg", body["image_url"])
			assert.Equal(t, "Hello", body["caption"])
			w.Write([]byte(`{"id":"container-1"}`))
		case "/v21.0/ig-1/media_publish":
			assert.Equal(t, "container-1", body["creation_id"])
			w.Write([]byte(`{"id":"media-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ig := NewInstagram(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := ig.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		MediaURLs:   []string{"https://cdn/a.jpg"},
		Credentials: Credentials{AccountID: "ig-1", AccessToken: "ig-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "media-1", res.ExternalID)
	assert.Equal(t, []string{"/v21.0/ig-1/media", "/v21.0/ig-1/media_publish"}, calls)
}

func TestInstagramCarouselPublish(t *testing.T) {
	var mu sync.Mutex
	var children []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch {
		case r.URL.Path == "/v21.0/ig-1/media" && body["is_carousel_item"] == true:
			if body["media_type"] == "REELS" {
				assert.Equal(t, "https://cdn/b.mp4", body["video_url"])
				w.Write([]byte(`{"id":"item-video"}`))
				return
			}
			w.Write([]byte(`{"id":"item-image"}`))
		case r.URL.Path == "/v21.0/ig-1/media":
			assert.Equal(t, "CAROUSEL", body["media_type"])
			children = body["children"].([]any)
			w.Write([]byte(`{"id":"carousel"}`))
		case r.URL.Path == "/v21.0/ig-1/media_publish":
			assert.Equal(t, "carousel", body["creation_id"])
			w.Write([]byte(`{"id":"media-2"}`))
		}
	}))
	defer srv.Close()

	ig := NewInstagram(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := ig.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		MediaURLs:   []string{"https://cdn/a.jpg", "https://cdn/b.mp4"},
		Credentials: Credentials{AccountID: "ig-1", AccessToken: "ig-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "media-2", res.ExternalID)
	assert.Equal(t, []any{"item-image", "item-video"}, children)
}

func TestInstagramPublishRequiresMedia(t *testing.T) {
	ig := NewInstagram(WithBaseURL("http://127.0.0.1:1"))
	_, err := ig.Publish(context.Background(), PublishRequest{Content: "Hello"})
	assert.ErrorIs(t, err, ErrMediaRequired)
}

func TestInstagramContainerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Only photo or video can be accepted as media type.","type":"OAuthException","code":9004}}`))
	}))
	defer srv.Close()

	ig := NewInstagram(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := ig.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		MediaURLs:   []string{"https://cdn/a.gif"},
		Credentials: Credentials{AccountID: "ig-1"},
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, err.Error(), "Only photo or video can be accepted as media type.")
}

func TestInstagramRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh_access_token", r.URL.Path)
		assert.Equal(t, "ig_refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "long-lived", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"access_token":"renewed","token_type":"bearer","expires_in":5184000}`))
	}))
	defer srv.Close()

	ig := NewInstagram(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	token, err := ig.(TokenRefresher).RefreshToken(context.Background(), "long-lived")
	require.NoError(t, err)
	assert.Equal(t, "renewed", token.AccessToken)
	assert.Equal(t, "renewed", token.RefreshToken)
}
