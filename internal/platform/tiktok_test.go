package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokPublishVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/post/publish/video/init/", r.URL.Path)
		assert.Equal(t, "Bearer tt-token", r.Header.Get("Authorization"))

		var body transfer.TiktokVideoUploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PULL_FROM_URL", body.SourceInfo.Source)
		assert.Equal(t, "https://cdn/v.mp4", body.SourceInfo.VideoURL)
		assert.Equal(t, "Hello", body.PostInfo.Title)

		w.Write([]byte(`{"data":{"publish_id":"v_pub_1"},"error":{"code":"ok","message":""}}`))
	}))
	defer srv.Close()

	tt := NewTiktok(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := tt.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		MediaURLs:   []string{"https://cdn/v.mp4"},
		Credentials: Credentials{AccessToken: "tt-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "v_pub_1", res.ExternalID)
}

func TestTiktokPublishPhotos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/post/publish/content/init/", r.URL.Path)

		var body transfer.TiktokPhotoUploadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PHOTO", body.MediaType)
		assert.Equal(t, []string{"https://cdn/a.jpg", "https://cdn/b.png"}, body.SourceInfo.PhotoImages)

		w.Write([]byte(`{"data":{"publish_id":"p_pub_1"},"error":{"code":"ok"}}`))
	}))
	defer srv.Close()

	tt := NewTiktok(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := tt.Publish(context.Background(), PublishRequest{
		Content:   "Hello",
		MediaURLs: []string{"https://cdn/a.jpg", "https://cdn/b.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p_pub_1", res.ExternalID)
}

func TestTiktokPublishErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"error":{"code":"spam_risk_too_many_posts","message":"too many posts"}}`))
	}))
	defer srv.Close()

	tt := NewTiktok(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := tt.Publish(context.Background(), PublishRequest{MediaURLs: []string{"https://cdn/v.mp4"}})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "too many posts", apiErr.Message)
}

func TestTiktokAnalyticsUnsupported(t *testing.T) {
	_, err := NewTiktok(OAuthApp{}).FetchAnalytics(context.Background(), "v_pub_1", Credentials{})
	assert.ErrorIs(t, err, ErrAnalyticsUnsupported)
}

func TestTiktokRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/oauth/token/", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-key", r.PostForm.Get("client_key"))
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt-1", r.PostForm.Get("refresh_token"))
		w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":86400,"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	tt := NewTiktok(OAuthApp{ClientID: "client-key", ClientSecret: "s"}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	token, err := tt.(TokenRefresher).RefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", token.AccessToken)
	assert.Equal(t, "rt-2", token.RefreshToken)
}
