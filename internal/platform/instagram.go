package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
)

const (
	instagramGraphURL   = "https://graph.instagram.com"
	instagramAPIVersion = "v21.0"
	instagramMaxItems   = 10
)

type instagramAdapter struct {
	opts clientOptions
}

func NewInstagram(opts ...Option) Adapter {
	return &instagramAdapter{opts: buildOptions(instagramGraphURL, opts)}
}

func (ig *instagramAdapter) Platform() string { return Instagram }

func (ig *instagramAdapter) Requirements() Requirements {
	return Requirements{MediaRequired: true, MaxContentLength: 2200}
}

type instagramIDResponse struct {
	ID string `json:"id"`
}

// Publish creates a media container (a carousel for several URLs) and
// publishes it.
func (ig *instagramAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if len(req.MediaURLs) == 0 {
		return nil, ErrMediaRequired
	}
	if len(req.MediaURLs) > instagramMaxItems {
		return nil, fmt.Errorf("instagram accepts at most %d media items", instagramMaxItems)
	}

	creds := req.Credentials
	var containerID string
	var err error

	if len(req.MediaURLs) == 1 {
		payload := mediaPayload(req.MediaURLs[0], creds.AccessToken)
		payload["caption"] = req.Content
		containerID, err = ig.createContainer(ctx, creds.AccountID, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to create media container: %w", err)
		}
	} else {
		children := make([]string, 0, len(req.MediaURLs))
		for _, mediaURL := range req.MediaURLs {
			payload := mediaPayload(mediaURL, creds.AccessToken)
			payload["is_carousel_item"] = true
			id, err := ig.createContainer(ctx, creds.AccountID, payload)
			if err != nil {
				return nil, fmt.Errorf("failed to create carousel item: %w", err)
			}
			children = append(children, id)
		}

		containerID, err = ig.createContainer(ctx, creds.AccountID, map[string]any{
			"media_type":   "CAROUSEL",
			"caption":      req.Content,
			"children":     children,
			"access_token": creds.AccessToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create carousel container: %w", err)
		}
	}

	mediaID, err := ig.publishContainer(ctx, creds.AccountID, containerID, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	return &PublishResult{ExternalID: mediaID}, nil
}

func mediaPayload(mediaURL, accessToken string) map[string]any {
	payload := map[string]any{"access_token": accessToken}
	if isVideoURL(mediaURL) {
		payload["media_type"] = "REELS"
		payload["video_url"] = mediaURL
	} else {
		payload["image_url"] = mediaURL
	}
	return payload
}

func (ig *instagramAdapter) createContainer(ctx context.Context, accountID string, payload map[string]any) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/%s/media", ig.opts.baseURL, instagramAPIVersion, url.PathEscape(accountID))
	httpReq, err := newJSONRequest(ctx, http.MethodPost, reqURL, payload)
	if err != nil {
		return "", err
	}

	var resp instagramIDResponse
	if err := doJSON(ig.opts.httpClient, httpReq, Instagram, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("no media ID returned from Instagram")
	}
	return resp.ID, nil
}

func (ig *instagramAdapter) publishContainer(ctx context.Context, accountID, containerID, accessToken string) (string, error) {
	reqURL := fmt.Sprintf("%s/%s/%s/media_publish", ig.opts.baseURL, instagramAPIVersion, url.PathEscape(accountID))
	httpReq, err := newJSONRequest(ctx, http.MethodPost, reqURL, map[string]string{
		"creation_id":  containerID,
		"access_token": accessToken,
	})
	if err != nil {
		return "", err
	}

	var resp instagramIDResponse
	if err := doJSON(ig.opts.httpClient, httpReq, Instagram, &resp); err != nil {
		return "", fmt.Errorf("failed to publish media: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("no published media ID returned from Instagram")
	}
	return resp.ID, nil
}

func (ig *instagramAdapter) FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error) {
	query := url.Values{}
	query.Set("fields", "like_count,comments_count")
	query.Set("access_token", creds.AccessToken)
	reqURL := fmt.Sprintf("%s/%s/%s?%s", ig.opts.baseURL, instagramAPIVersion, url.PathEscape(externalID), query.Encode())

	httpReq, err := newJSONRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		LikeCount     int64 `json:"like_count"`
		CommentsCount int64 `json:"comments_count"`
	}
	if err := doJSON(ig.opts.httpClient, httpReq, Instagram, &resp); err != nil {
		return nil, err
	}

	return &models.Metrics{Likes: resp.LikeCount, Comments: resp.CommentsCount}, nil
}

// RefreshToken extends a long-lived token. Instagram uses the access token
// itself as the refresh credential.
func (ig *instagramAdapter) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	query := url.Values{}
	query.Set("grant_type", "ig_refresh_token")
	query.Set("access_token", refreshToken)

	httpReq, err := newJSONRequest(ctx, http.MethodGet, ig.opts.baseURL+"/refresh_access_token?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := doJSON(ig.opts.httpClient, httpReq, Instagram, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("no access token returned from Instagram")
	}

	return &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.AccessToken,
		Expiry:       time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}
