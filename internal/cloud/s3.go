// Package cloud holds the remote stores the engine can mirror files to:
// an S3-compatible bucket and OneDrive via the Microsoft Graph API, plus
// the sync manager that mirrors user configuration.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config configures an S3-compatible store. A custom endpoint supports
// MinIO, Wasabi and similar services.
type S3Config struct {
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Bucket          string `yaml:"bucket" json:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	AccessKeyID     string `yaml:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" json:"-"`
	UseSSL          bool   `yaml:"use_ssl" json:"use_ssl"`
}

// Validate checks if the configuration is valid.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 store: bucket is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("s3 store: access_key_id is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("s3 store: secret_access_key is required")
	}
	return nil
}

// S3Store mirrors files into an S3-compatible bucket.
type S3Store struct {
	cfg    S3Config
	client *s3.Client
	logger zerolog.Logger
}

// NewS3Store builds a store from the given configuration.
func NewS3Store(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 store: failed to load config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		endpoint := cfg.Endpoint
		if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
		}
		endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		cfg:    cfg,
		client: s3.NewFromConfig(awsCfg, clientOpts...),
		logger: logger.With().Str("component", "s3_store").Logger(),
	}, nil
}

// IsAuthenticated reports whether the store holds credentials. Actual
// access is only proven by TestConnection or an upload.
func (s *S3Store) IsAuthenticated() bool {
	return s.client != nil
}

// key prepends the configured prefix to a remote path.
func (s *S3Store) key(remotePath string) string {
	if s.cfg.Prefix != "" {
		return s.cfg.Prefix + "/" + remotePath
	}
	return remotePath
}

// Upload copies a local file to the given remote path in the bucket.
func (s *S3Store) Upload(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("s3 store: open %s: %w", localPath, err)
	}
	defer f.Close()

	key := s.key(remotePath)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("s3 store: put %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Msg("uploaded object")
	return nil
}

// Download copies a remote object to the given local path.
func (s *S3Store) Download(ctx context.Context, remotePath, localPath string) error {
	key := s.key(remotePath)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 store: get %s: %w", key, err)
	}
	defer out.Body.Close()

	return writeLocal(localPath, out.Body)
}

// TestConnection verifies bucket access with a head request.
func (s *S3Store) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.Bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 store: failed to access bucket: %w", err)
	}
	return nil
}
