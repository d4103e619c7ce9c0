package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// MaxImageSize is the maximum allowed image upload (10MB).
	MaxImageSize = 10 * 1024 * 1024
	// FolderEvents is the S3 prefix for event images.
	FolderEvents = "events"
	// FolderTeams is the S3 prefix for team images.
	FolderTeams = "teams"
)

var (
	// ErrImageTooLarge is returned for uploads above MaxImageSize.
	ErrImageTooLarge = errors.New("image file too large, maximum size is 10MB")
	// ErrUnsupportedImage is returned for content types outside AllowedImageTypes.
	ErrUnsupportedImage = errors.New("unsupported file type, only JPG, PNG and HEIC are allowed")
)

// AllowedImageTypes maps accepted MIME types to their canonical stored content type.
var AllowedImageTypes = map[string]string{
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
	"image/png":  "image/png",
	"image/heic": "image/heic",
	"image/heif": "image/heif",
}

// allowedImageExtensions is the fallback when the client sends no content type.
var allowedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".heic": "image/heic",
	".heif": "image/heif",
}

// ValidateImage checks size and type and returns the content type to store the object with.
func ValidateImage(contentType, filename string, size int64) (string, error) {
	if size > MaxImageSize {
		return "", ErrImageTooLarge
	}
	if ct, ok := AllowedImageTypes[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return ct, nil
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if ct, ok := allowedImageExtensions[strings.ToLower(path.Ext(filename))]; ok {
			return ct, nil
		}
	}
	return "", ErrUnsupportedImage
}

// ImageKey returns the object key for an image: {folder}/{unix_ms}_{filename}.
func ImageKey(folder, filename string, now time.Time) string {
	name := strings.ReplaceAll(path.Base(filename), " ", "_")
	return path.Join(folder, fmt.Sprintf("%d_%s", now.UnixMilli(), name))
}

// KeyFromURL extracts the object key from a public object URL produced by PublicObjectURL.
func KeyFromURL(url string) string {
	if i := strings.Index(url, ".amazonaws.com/"); i >= 0 {
		return url[i+len(".amazonaws.com/"):]
	}
	return ""
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImagesBucket    string
}

// S3 stores event and team images.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region), zap.String("bucket", cfg.ImagesBucket))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// PublicObjectURL returns the public URL for an object in the images bucket.
func (s *S3) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.ImagesBucket, s.cfg.Region, key)
}

// UploadImage streams an image into the images bucket and returns its public URL.
func (s *S3) UploadImage(ctx context.Context, folder, filename, contentType string, body io.Reader, size int64) (string, error) {
	key := ImageKey(folder, filename, time.Now())
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.ImagesBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("image uploaded", zap.String("key", key))
	return s.PublicObjectURL(key), nil
}

// DeleteImage removes the object behind a public image URL. Unknown URLs are ignored.
func (s *S3) DeleteImage(ctx context.Context, url string) error {
	key := KeyFromURL(url)
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.ImagesBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
