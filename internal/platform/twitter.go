package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
)

const twitterAPIURL = "https://api.twitter.com"

var twitterEndpoint = oauth2.Endpoint{
	AuthURL:   "https://twitter.com/i/oauth2/authorize",
	TokenURL:  "https://api.twitter.com/2/oauth2/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

type twitterAdapter struct {
	opts clientOptions
	app  OAuthApp
}

func NewTwitter(app OAuthApp, opts ...Option) Adapter {
	return &twitterAdapter{opts: buildOptions(twitterAPIURL, opts), app: app}
}

func (t *twitterAdapter) Platform() string { return Twitter }

func (t *twitterAdapter) Requirements() Requirements {
	return Requirements{MaxContentLength: 280}
}

type tweetResponse struct {
	Data struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		PublicMetrics struct {
			LikeCount       int64 `json:"like_count"`
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// Publish posts the text as a tweet. Media URLs are not uploaded.
func (t *twitterAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	httpReq, err := newJSONRequest(ctx, http.MethodPost, t.opts.baseURL+"/2/tweets", map[string]string{
		"text": req.Content,
	})
	if err != nil {
		return nil, err
	}

	var resp tweetResponse
	if err := doJSON(t.opts.bearer(ctx, req.Credentials.AccessToken), httpReq, Twitter, &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, fmt.Errorf("no tweet ID returned from Twitter")
	}

	return &PublishResult{
		ExternalID: resp.Data.ID,
		URL:        "https://x.com/i/web/status/" + resp.Data.ID,
	}, nil
}

func (t *twitterAdapter) FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error) {
	reqURL := fmt.Sprintf("%s/2/tweets/%s?tweet.fields=public_metrics", t.opts.baseURL, url.PathEscape(externalID))
	httpReq, err := newJSONRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp tweetResponse
	if err := doJSON(t.opts.bearer(ctx, creds.AccessToken), httpReq, Twitter, &resp); err != nil {
		return nil, err
	}

	m := resp.Data.PublicMetrics
	return &models.Metrics{
		Likes:       m.LikeCount,
		Shares:      m.RetweetCount,
		Comments:    m.ReplyCount,
		Impressions: m.ImpressionCount,
	}, nil
}

func (t *twitterAdapter) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     t.app.ClientID,
		ClientSecret: t.app.ClientSecret,
		Endpoint:     twitterEndpoint,
	}
	if t.opts.baseURL != twitterAPIURL {
		conf.Endpoint.TokenURL = t.opts.baseURL + "/2/oauth2/token"
	}
	return t.opts.refresh(ctx, conf, refreshToken)
}
