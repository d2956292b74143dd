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

func TestLinkedInPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/ugcPosts", r.URL.Path)
		assert.Equal(t, "2.0.0", r.Header.Get("X-Restli-Protocol-Version"))
		assert.Equal(t, "Bearer li-token", r.Header.Get("Authorization"))

		var body linkedInUGCPost
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "urn:li:person:abc", body.Author)
		share := body.SpecificContent["com.linkedin.ugc.ShareContent"]
		assert.Equal(t, "Hello", share.ShareCommentary.Text)
		assert.Equal(t, "NONE", share.ShareMediaCategory)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"urn:li:share:123"}`))
	}))
	defer srv.Close()

	li := NewLinkedIn(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	res, err := li.Publish(context.Background(), PublishRequest{
		Content:     "Hello",
		Credentials: Credentials{AccountID: "abc", AccessToken: "li-token"},
	})
	require.NoError(t, err)
	assert.Equal(t, "urn:li:share:123", res.ExternalID)
}

func TestLinkedInFetchAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/socialActions/urn:li:share:123", r.URL.Path)
		w.Write([]byte(`{"likesSummary":{"totalLikes":7},"commentsSummary":{"totalFirstLevelComments":2,"aggregatedTotalComments":3}}`))
	}))
	defer srv.Close()

	li := NewLinkedIn(OAuthApp{}, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	m, err := li.FetchAnalytics(context.Background(), "urn:li:share:123", Credentials{AccessToken: "li-token"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.Likes)
	assert.Equal(t, int64(3), m.Comments)
}
