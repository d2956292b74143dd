package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const youtubeTitleLimit = 100

// youtubeAdapter uploads the first media URL as a video. The content's first
// line becomes the title and the whole content the description.
type youtubeAdapter struct {
	opts clientOptions
	app  OAuthApp
}

func NewYoutube(app OAuthApp, opts ...Option) Adapter {
	return &youtubeAdapter{opts: buildOptions("", opts), app: app}
}

func (y *youtubeAdapter) Platform() string { return YouTube }

func (y *youtubeAdapter) Requirements() Requirements {
	return Requirements{MediaRequired: true, MaxContentLength: 5000}
}

func (y *youtubeAdapter) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	clientOpts := []option.ClientOption{option.WithHTTPClient(y.opts.bearer(ctx, accessToken))}
	if y.opts.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(y.opts.baseURL+"/"))
	}
	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube service: %w", err)
	}
	return service, nil
}

func (y *youtubeAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if len(req.MediaURLs) == 0 {
		return nil, ErrMediaRequired
	}

	service, err := y.service(ctx, req.Credentials.AccessToken)
	if err != nil {
		return nil, err
	}

	tempFile, err := y.download(ctx, req.MediaURLs[0])
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		return nil, fmt.Errorf("error opening video file: %w", err)
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(req.Content),
			Description: req.Content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	response, err := service.Videos.Insert([]string{"snippet", "status"}, video).Media(file).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("error uploading video: %w", err)
	}

	return &PublishResult{
		ExternalID: response.Id,
		URL:        "https://youtu.be/" + response.Id,
	}, nil
}

func videoTitle(content string) string {
	title, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if title == "" {
		title = "Untitled"
	}
	for utf8.RuneCountInString(title) > youtubeTitleLimit {
		_, size := utf8.DecodeLastRuneInString(title)
		title = title[:len(title)-size]
	}
	return title
}

// download copies the media at mediaURL into a temporary file and returns its path.
func (y *youtubeAdapter) download(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	response, err := y.opts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading video: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	tempFile, err := os.CreateTemp("", "video-*")
	if err != nil {
		return "", fmt.Errorf("error creating temporary file: %w", err)
	}
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, response.Body); err != nil {
		if rmErr := os.Remove(tempFile.Name()); rmErr != nil {
			slog.Info(rmErr.Error())
		}
		return "", fmt.Errorf("error saving video to temporary file: %w", err)
	}

	return tempFile.Name(), nil
}

func (y *youtubeAdapter) FetchAnalytics(ctx context.Context, externalID string, creds Credentials) (*models.Metrics, error) {
	service, err := y.service(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}

	response, err := service.Videos.List([]string{"statistics"}).Id(externalID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(response.Items) == 0 || response.Items[0].Statistics == nil {
		return nil, fmt.Errorf("video %s not found", externalID)
	}

	stats := response.Items[0].Statistics
	return &models.Metrics{
		Likes:       int64(stats.LikeCount),
		Comments:    int64(stats.CommentCount),
		Impressions: int64(stats.ViewCount),
	}, nil
}

func (y *youtubeAdapter) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	conf := &oauth2.Config{
		ClientID:     y.app.ClientID,
		ClientSecret: y.app.ClientSecret,
		Scopes:       []string{youtube.YoutubeUploadScope},
		Endpoint:     google.Endpoint,
	}
	return y.opts.refresh(ctx, conf, refreshToken)
}
