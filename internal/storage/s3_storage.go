package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"smartliving/site/internal/config"
)

// ErrObjectNotFound is returned by GetObject for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// IS3Storage is the image bucket.
type IS3Storage interface {
	// GeneratePresignedPutURL returns an upload URL and the object key it writes to.
	GeneratePresignedPutURL(ctx context.Context, folder, filename, contentType string) (string, string, error)
	GetObject(ctx context.Context, key string) ([]byte, string, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	// PublicURL is the address the site serves the object from.
	PublicURL(key string) string
}

type s3Storage struct {
	bucket        string
	baseURL       string
	urlTTL        time.Duration
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates the bucket client from static credentials in cfg.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	if cfg.AwsS3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET is not configured")
	}
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	baseURL := cfg.ImageBaseS3URL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AwsS3Bucket, cfg.AwsRegion)
	}
	ttl := cfg.UploadURLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &s3Storage{
		bucket:        cfg.AwsS3Bucket,
		baseURL:       baseURL,
		urlTTL:        ttl,
		s3Client:      client,
		presignClient: s3.NewPresignClient(client),
	}, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectKey builds a collision-free key under folder from a client filename.
func ObjectKey(folder, filename string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.TrimSpace(filename)), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s_%s", strings.Trim(folder, "/"), uuid.NewString(), name)
}

func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, folder, filename, contentType string) (string, string, error) {
	key := ObjectKey(folder, filename)
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", key, err)
	}
	log.Printf("storage: presigned upload for %s", key)
	return req.URL, key, nil
}

func (s *s3Storage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("%s: %w", key, ErrObjectNotFound)
		}
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, aws.ToString(out.ContentType), nil
}

func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) DeleteObject(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *s3Storage) PublicURL(key string) string {
	return s.baseURL + "/" + key
}
