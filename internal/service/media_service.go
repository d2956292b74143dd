package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	cfg "github.com/maheshrc27/crosspost/configs"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxUploadFiles = 10

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {},
}

// ObjectStorage stores uploaded media under a key.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type r2Storage struct {
	client *s3.Client
	bucket string
}

// NewR2Storage returns Cloudflare R2 storage through its S3 compatible API.
func NewR2Storage(ctx context.Context, r2 cfg.R2) (ObjectStorage, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return &r2Storage{client: client, bucket: r2.BucketName}, nil
}

func (r *r2Storage) Put(ctx context.Context, key string, body []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}

	if _, err := r.client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]string, error)
}

type mediaService struct {
	storage   ObjectStorage
	publicURL string
}

func NewMediaService(storage ObjectStorage, publicURL string) MediaService {
	return &mediaService{
		storage:   storage,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Upload stores every file and returns their public URLs in input order.
// Posts reference media by these URLs.
func (s *mediaService) Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]string, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is not valid", ErrInvalidInput)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrInvalidInput)
	}
	if len(files) > maxUploadFiles {
		return nil, fmt.Errorf("%w: at most %d files can be uploaded at once", ErrInvalidInput, maxUploadFiles)
	}

	urls := make([]string, 0, len(files))
	for _, file := range files {
		content, err := readFile(file)
		if err != nil {
			return nil, err
		}

		url, err := s.store(ctx, userID, content)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func readFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return content, nil
}

func (s *mediaService) store(ctx context.Context, userID int64, content []byte) (string, error) {
	kind, err := filetype.Match(content)
	if err != nil || kind == types.Unknown {
		return "", fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return "", fmt.Errorf("%w: file type %s is not allowed", ErrInvalidInput, kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)

	if err := s.storage.Put(ctx, key, content, kind.MIME.Value); err != nil {
		return "", fmt.Errorf("error uploading file: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.publicURL, key), nil
}
