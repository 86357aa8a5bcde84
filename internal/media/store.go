// Package media uploads avatar and cover images to object storage.
package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "videotube/internal/config"
	"videotube/internal/utils"
)

// Asset is an uploaded object.
type Asset struct {
	URL string
	Key string
}

// Store is the media binding used by the session service.
type Store interface {
	// Upload sends the local file and removes it afterwards, whatever the outcome.
	Upload(ctx context.Context, localPath string) (*Asset, error)
	Delete(ctx context.Context, url string) error
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store talks to any S3 compatible endpoint (AWS, MinIO, R2).
type S3Store struct {
	client    objectAPI
	bucket    string
	publicURL string
	prefix    string
}

// NewS3Store builds a path-style client with static credentials.
func NewS3Store(ctx context.Context, cfg *appconfig.StorageConfig, optFns ...func(*s3.Options)) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %v", err)
	}

	opts := append([]func(*s3.Options){func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
		// MinIO and friends choke on the streaming checksum trailer
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	}}, optFns...)

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Store{
		client:    s3.NewFromConfig(awsCfg, opts...),
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		prefix:    "avatars",
	}, nil
}

// storageKey spreads objects by upload date.
func (s *S3Store) storageKey(localPath string) string {
	d := time.Now().UTC()
	ext := strings.ToLower(filepath.Ext(localPath))
	return fmt.Sprintf("%s/%d/%02d/%02d/%s%s", s.prefix, d.Year(), d.Month(), d.Day(), uuid.NewString(), ext)
}

func (s *S3Store) Upload(ctx context.Context, localPath string) (*Asset, error) {
	defer os.Remove(localPath)

	if localPath == "" {
		return nil, utils.NewAppError(utils.ErrMediaUploadFailed, "no file to upload", nil)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrMediaUploadFailed, "failed to open upload", err)
	}
	defer f.Close()

	key := s.storageKey(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, utils.NewAppError(utils.ErrMediaUploadFailed, "failed to upload media", err)
	}

	return &Asset{URL: s.publicURL + "/" + key, Key: key}, nil
}

// KeyFromURL maps a public URL back to its object key.
func (s *S3Store) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Delete removes the object behind url. An empty url is a no-op.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	if url == "" {
		return nil
	}
	key, ok := s.KeyFromURL(url)
	if !ok {
		return utils.NewValidationError("media url does not belong to this store: " + url)
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return utils.NewAppError(utils.ErrInternal, "failed to delete media", err)
	}
	return nil
}
