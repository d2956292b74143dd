package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"golang.org/x/oauth2"
)

const (
	tiktokAPIURL       = "https://open.tiktokapis.com"
	tiktokPrivacyLevel = "PUBLIC_TO_EVERYONE"
)

// tiktokAdapter uses the content posting API with PULL_FROM_URL sources.
// The returned publish_id is not a video id, so analytics are unsupported.
type tiktokAdapter struct {
	opts clientOptions
	app  OAuthApp
}

func NewTiktok(app OAuthApp, opts ...Option) Adapter {
	return &tiktokAdapter{opts: buildOptions(tiktokAPIURL, opts), app: app}
}

func (t *tiktokAdapter) Platform() string { return TikTok }

func (t *tiktokAdapter) Requirements() Requirements {
	return Requirements{MediaRequired: true, MaxContentLength: 2200}
}

func (t *tiktokAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if len(req.MediaURLs) == 0 {
		return nil, ErrMediaRequired
	}

	var (
		path    string
		payload any
	)
	if isVideoURL(req.MediaURLs[0]) {
		path = "/v2/post/publish/video/init/"
		payload = transfer.TiktokVideoUploadRequest{
			PostInfo: transfer.TiktokVideoPostInfo{
				Title:                 req.Content,
				PrivacyLevel:          tiktokPrivacyLevel,
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.TiktokVideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: req.MediaURLs[0],
			},
		}
	} else {
		path = "/v2/post/publish/content/init/"
		payload = transfer.TiktokPhotoUploadRequest{
			PostInfo: transfer.TiktokPhotoPostInfo{
				Title:        req.Content,
				PrivacyLevel: tiktokPrivacyLevel,
				AutoAddMusic: true,
			},
			SourceInfo: transfer.TiktokPhotoSourceInfo{
				Source:      "PULL_FROM_URL",
				PhotoImages: req.MediaURLs,
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, t.opts.baseURL+path, payload)
	if err != nil {
		return nil, err
	}

	var resp transfer.TiktokPublishResponse
	if err := doJSON(t.opts.bearer(ctx, req.Credentials.AccessToken), httpReq, TikTok, &resp); err != nil {
		return nil, err
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return nil, &APIError{Platform: TikTok, StatusCode: http.StatusOK, Message: resp.Error.Message}
	}
	if resp.Data.PublishID == "" {
		return nil, fmt.Errorf("no publish ID returned from TikTok")
	}

	return &PublishResult{ExternalID: resp.Data.PublishID}, nil
}

func (t *tiktokAdapter) FetchAnalytics(context.Context, string, Credentials) (*models.Metrics, error) {
	return nil, ErrAnalyticsUnsupported
}

func (t *tiktokAdapter) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	data := url.Values{}
	data.Set("client_key", t.app.ClientID)
	data.Set("client_secret", t.app.ClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.baseURL+"/v2/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp transfer.TiktokTokenResponse
	if err := doJSON(t.opts.httpClient, httpReq, TikTok, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("no access token returned from TikTok")
	}

	return &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Expiry:       time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}
