package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwitterPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["text"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1790","text":"Hello"}}`))
	}))
	defer srv.Close()

	tw := NewTwitter(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := tw.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		Credentials: Credentials{AccessToken: "user-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1790", res.ExternalID)
	assert.Equal(t, "https://x.com/i/web/status/1790", res.URL)
}

func TestTwitterPublishAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"title":"Forbidden","detail":"You are not allowed to create a Tweet with duplicate content."}`))
	}))
	defer srv.Close()

	tw := NewTwitter(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := tw.Publish(context.Background(), PublishRequest{Content: "Hello"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "You are not allowed to create a Tweet with duplicate content.", apiErr.Message)
}

func TestTwitterFetchAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/1790", r.URL.Path)
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		w.Write([]byte(`{"data":{"id":"1790","public_metrics":{"like_count":5,"retweet_count":2,"reply_count":1,"impression_count":100}}}`))
	}))
	defer srv.Close()

	tw := NewTwitter(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	m, err := tw.FetchAnalytics(context.Background(), "1790", Credentials{AccessToken: "user-token"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.Likes)
	assert.Equal(t, int64(2), m.Shares)
	assert.Equal(t, int64(1), m.Comments)
	assert.Equal(t, int64(100), m.Impressions)
}

func TestTwitterRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/oauth2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))

		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"bearer","expires_in":7200}`))
	}))
	defer srv.Close()

	tw := NewTwitter(OAuthApp{ClientID: "client-id", ClientSecret: "secret"}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	token, err := tw.(TokenRefresher).RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, "new-refresh", token.RefreshToken)
	assert.False(t, token.Expiry.IsZero())
}
