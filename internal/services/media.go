package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"silver-social-backend/internal/apperrors"
	appconfig "silver-social-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const presignExpiry = 5 * time.Minute

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// MediaService stores profile and gallery images in S3
type MediaService struct {
	putter    objectPutter
	presigner objectPresigner
	bucket    string
	region    string
	baseURL   string
	prefix    string
	maxBytes  int64
}

// NewMediaService creates an S3 client from the aws section of the config
func NewMediaService(ctx context.Context, cfg appconfig.AWSConfig) (*MediaService, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newMediaService(client, s3.NewPresignClient(client), cfg), nil
}

func newMediaService(putter objectPutter, presigner objectPresigner, cfg appconfig.AWSConfig) *MediaService {
	return &MediaService{
		putter:    putter,
		presigner: presigner,
		bucket:    cfg.S3Bucket,
		region:    cfg.Region,
		baseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		prefix:    strings.Trim(cfg.UploadPrefix, "/"),
		maxBytes:  cfg.MaxUploadBytes(),
	}
}

// MaxBytes is the upload size limit
func (s *MediaService) MaxBytes() int64 {
	return s.maxBytes
}

// UploadResult is the durable location of a stored object
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Upload stores an image for userID and returns its durable URL
func (s *MediaService) Upload(ctx context.Context, userID, filename, contentType string, size int64, body io.Reader) (*UploadResult, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}
	if size <= 0 {
		return nil, apperrors.Validation("file is empty")
	}
	if size > s.maxBytes {
		return nil, apperrors.Validation("file exceeds %d bytes", s.maxBytes)
	}

	key, err := s.objectKey(userID, filename, contentType)
	if err != nil {
		return nil, err
	}

	_, err = s.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(normalizeContentType(contentType)),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object: %w", err)
	}

	log.Info().Str("user_id", userID).Str("key", key).Int64("size", size).Msg("Media uploaded")

	return &UploadResult{URL: s.publicURL(key), Key: key}, nil
}

// PresignRequest represents a request for a direct-to-S3 upload URL
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType" validate:"required"`
}

// PresignResult carries the pre-signed PUT URL and the URL the object will have
type PresignResult struct {
	UploadURL string `json:"uploadUrl"`
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// Presign generates a pre-signed URL for uploading an image directly to S3
func (s *MediaService) Presign(ctx context.Context, userID string, req PresignRequest) (*PresignResult, error) {
	if userID == "" {
		return nil, apperrors.Authentication("login required")
	}

	key, err := s.objectKey(userID, req.Filename, req.ContentType)
	if err != nil {
		return nil, err
	}

	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(normalizeContentType(req.ContentType)),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate pre-signed URL: %w", err)
	}

	return &PresignResult{
		UploadURL: request.URL,
		URL:       s.publicURL(key),
		Key:       key,
		ExpiresIn: int(presignExpiry.Seconds()),
	}, nil
}

// objectKey builds <prefix>/<user>/<uuid><ext>
func (s *MediaService) objectKey(userID, filename, contentType string) (string, error) {
	ct := normalizeContentType(contentType)
	ext, ok := imageExtensions[ct]
	if !ok {
		return "", apperrors.Validation("unsupported content type: %s", contentType)
	}
	if fileExt := strings.ToLower(path.Ext(filename)); fileExt == ".jpeg" || fileExt == ".jpg" {
		ext = fileExt
	}

	key := fmt.Sprintf("%s/%s%s", userID, uuid.New().String(), ext)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key, nil
}

func (s *MediaService) publicURL(key string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}
