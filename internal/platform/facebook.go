package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	facebookGraphURL       = "https://graph.facebook.com"
	defaultGraphAPIVersion = "v21.0"
)

// facebookAdapter publishes to a page feed. Page access tokens do not expire,
// so it does not implement TokenRefresher.
type facebookAdapter struct {
	opts    clientOptions
	version string
}

func NewFacebook(graphVersion string, opts ...Option) Adapter {
	if graphVersion == "" {
		graphVersion = defaultGraphAPIVersion
	}
	return &facebookAdapter{opts: buildOptions(facebookGraphURL, opts), version: graphVersion}
}

func (f *facebookAdapter) Platform() string { return Facebook }

func (f *facebookAdapter) Requirements() Requirements {
	return Requirements{MaxContentLength: 63206}
}

func (f *facebookAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	pageID := req.Credentials.AccountID
	if pageID == "" {
		pageID = "me"
	}

	payload := map[string]string{
		"message":      req.Content,
		"access_token": req.Credentials.AccessToken,
	}
	if len(req.MediaURLs) > 0 {
		payload["link"] = req.MediaURLs[0]
	}

	reqURL := fmt.Sprintf("%s/%s/%s/feed", f.opts.baseURL, f.version, url.PathEscape(pageID))
	httpReq, err := newJSONRequest(ctx, http.MethodPost, reqURL, payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := doJSON(f.opts.httpClient, httpReq, Facebook, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("no post ID returned from Facebook")
	}

	return &PublishResult{
		ExternalID: resp.ID,
		URL:        "https://www.facebook.com/" + resp.ID,
	}, nil
}

func (f *facebookAdapter) FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error) {
	query := url.Values{}
	query.Set("fields", "likes.summary(true),shares,comments.summary(true)")
	query.Set("access_token", creds.AccessToken)
	reqURL := fmt.Sprintf("%s/%s/%s?%s", f.opts.baseURL, f.version, url.PathEscape(externalID), query.Encode())

	httpReq, err := newJSONRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
	}
	if err := doJSON(f.opts.httpClient, httpReq, Facebook, &resp); err != nil {
		return nil, err
	}

	return &models.Metrics{
		Likes:    resp.Likes.Summary.TotalCount,
		Shares:   resp.Shares.Count,
		Comments: resp.Comments.Summary.TotalCount,
	}, nil
}
