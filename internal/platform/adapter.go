package platform

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
)

const (
	Twitter   = "twitter"
	Facebook  = "facebook"
	LinkedIn  = "linkedin"
	Instagram = "instagram"
	YouTube   = "youtube"
	TikTok    = "tiktok"
)

var (
	ErrMediaRequired        = errors.New("media required")
	ErrContentTooLong       = errors.New("content too long")
	ErrAnalyticsUnsupported = errors.New("analytics not supported")
)

// Credentials are the decrypted tokens of one connected account.
type Credentials struct {
	AccountID    string
	AccessToken  string
	RefreshToken string
}

type PublishRequest struct {
	Content     string
	MediaURLs   []string
	Credentials Credentials
}

type PublishResult struct {
	ExternalID string
	URL        string
}

// Requirements are checked by the caller before Publish is invoked.
type Requirements struct {
	MediaRequired    bool
	MaxContentLength int
}

// Adapter publishes to and reads metrics from one social network.
// Implementations must return when ctx is done.
type Adapter interface {
	Platform() string
	Requirements() Requirements
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
	FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error)
}

// TokenRefresher is implemented by adapters whose access tokens expire.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuthApp holds the client credentials of a registered developer app.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
}

// APIError is a non-2xx answer from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Platform, e.StatusCode, e.Message)
}

// CheckRequirements fails fast on content the platform would reject.
func CheckRequirements(reqs Requirements, content string, mediaURLs []string) error {
	if reqs.MediaRequired && len(mediaURLs) == 0 {
		return ErrMediaRequired
	}
	if reqs.MaxContentLength > 0 && utf8.RuneCountInString(content) > reqs.MaxContentLength {
		return fmt.Errorf("%w: %d characters allowed", ErrContentTooLong, reqs.MaxContentLength)
	}
	return nil
}
