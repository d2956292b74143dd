package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const linkedInAPIURL = "https://api.linkedin.com"

type linkedInAdapter struct {
	opts clientOptions
	app  OAuthApp
}

func NewLinkedIn(app OAuthApp, opts ...Option) Adapter {
	return &linkedInAdapter{opts: buildOptions(linkedInAPIURL, opts), app: app}
}

func (l *linkedInAdapter) Platform() string { return LinkedIn }

func (l *linkedInAdapter) Requirements() Requirements {
	return Requirements{MaxContentLength: 3000}
}

type linkedInMedia struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

type linkedInShareContent struct {
	ShareCommentary struct {
		Text string `json:"text"`
	} `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []linkedInMedia `json:"media,omitempty"`
}

type linkedInUGCPost struct {
	Author          string                          `json:"author"`
	LifecycleState  string                          `json:"lifecycleState"`
	SpecificContent map[string]linkedInShareContent `json:"specificContent"`
	Visibility      map[string]string               `json:"visibility"`
}

func (l *linkedInAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	share := linkedInShareContent{ShareMediaCategory: "NONE"}
	share.ShareCommentary.Text = req.Content
	if len(req.MediaURLs) > 0 {
		share.ShareMediaCategory = "ARTICLE"
		for _, u := range req.MediaURLs {
			share.Media = append(share.Media, linkedInMedia{Status: "READY", OriginalURL: u})
		}
	}

	post := linkedInUGCPost{
		Author:          "urn:li:person:" + req.Credentials.AccountID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]linkedInShareContent{"com.linkedin.ugc.ShareContent": share},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, l.opts.baseURL+"/v2/ugcPosts", post)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var resp struct {
		ID string `json:"id"`
	}
	if err := doJSON(l.opts.bearer(ctx, req.Credentials.AccessToken), httpReq, LinkedIn, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("no post ID returned from LinkedIn")
	}

	return &PublishResult{
		ExternalID: resp.ID,
		URL:        "https://www.linkedin.com/feed/update/" + resp.ID,
	}, nil
}

func (l *linkedInAdapter) FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error) {
	reqURL := fmt.Sprintf("%s/v2/socialActions/%s", l.opts.baseURL, url.PathEscape(externalID))
	httpReq, err := newJSONRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalFirstLevelComments int64 `json:"totalFirstLevelComments"`
			AggregatedTotalComments int64 `json:"aggregatedTotalComments"`
		} `json:"commentsSummary"`
	}
	if err := doJSON(l.opts.bearer(ctx, creds.AccessToken), httpReq, LinkedIn, &resp); err != nil {
		return nil, err
	}

	comments := resp.CommentsSummary.AggregatedTotalComments
	if comments == 0 {
		comments = resp.CommentsSummary.TotalFirstLevelComments
	}
	return &models.Metrics{
		Likes:    resp.LikesSummary.TotalLikes,
		Comments: comments,
	}, nil
}

func (l *linkedInAdapter) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     l.app.ClientID,
		ClientSecret: l.app.ClientSecret,
		Endpoint:     linkedin.Endpoint,
	}
	return l.opts.refresh(ctx, conf, refreshToken)
}
