package s3

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/dfryer1193/ndar/imaging/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

const defaultEndpoint = "s3.amazonaws.com"

type S3Config struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	UseSSL   bool   `yaml:"use_ssl"`
}

var (
	_ domain.ObjectStoreDialer = (*Dialer)(nil)
	_ domain.ObjectStore       = (*Store)(nil)
)

// Dialer opens S3 sessions with per-call credentials
type Dialer struct {
	cfg S3Config
}

// NewDialer returns a Dialer for the configured endpoint; an empty endpoint means AWS S3
func NewDialer(cfg S3Config) *Dialer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	return &Dialer{cfg: cfg}
}

// Dial creates a client for creds. Buckets are addressed path-style.
func (d *Dialer) Dial(ctx context.Context, creds domain.Credentials) (domain.ObjectStore, error) {
	client, err := minio.New(d.cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure:       d.cfg.UseSSL,
		Region:       d.cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: creating client for %s: %w", d.cfg.Endpoint, err)
	}

	return &Store{client: client}, nil
}

// Store is an S3 session
type Store struct {
	client *minio.Client
}

// Exists reports whether bucket/key exists. A missing bucket counts as a missing object.
func (s *Store) Exists(ctx context.Context, bucket string, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	if isNotFound(err) {
		return false, nil
	}

	return false, handleS3Error(fmt.Sprintf("checking s3://%s/%s", bucket, key), err)
}

// FetchTo downloads bucket/key to localPath
func (s *Store) FetchTo(ctx context.Context, bucket string, key string, localPath string) error {
	op := fmt.Sprintf("downloading s3://%s/%s", bucket, key)

	if err := s.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		os.Remove(localPath)
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, op)
		}
		return handleS3Error(op, err)
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Str("path", localPath).Msg("Fetched object")
	return nil
}

// Close releases the session. minio clients hold no per-session resources.
func (s *Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}

// handleS3Error adds the operation and, when available, the S3 error code to err
func handleS3Error(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code != "" {
		return fmt.Errorf("s3: %s failed with %s (status %d): %w", op, resp.Code, resp.StatusCode, err)
	}
	return fmt.Errorf("s3: %s failed: %w", op, err)
}
