package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectConfig addresses an S3-compatible bucket for plan artifacts.
type ObjectConfig struct {
	Endpoint  string // host[:port], no scheme
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	Region    string
	UseSSL    bool
}

// DefaultBucket is used when ObjectConfig.Bucket is empty.
const DefaultBucket = "pipeplan-plans"

// ObjectStore uploads artifacts to a bucket, creating it on first use.
type ObjectStore struct {
	client *minio.Client
	bucket string
	prefix string
	region string

	mu      sync.Mutex
	ensured bool
}

func NewObjectStore(cfg ObjectConfig) (*ObjectStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	if strings.Contains(endpoint, "://") {
		return nil, fmt.Errorf("object store endpoint %q must not include a scheme", endpoint)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &ObjectStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		region: cfg.Region,
	}, nil
}

// Upload encodes a and stores it as <prefix>/<file name>. It returns the
// s3:// URL of the object.
func (s *ObjectStore) Upload(ctx context.Context, a Artifact, format Format) (string, error) {
	name, err := FileName(a.Model, a.Tag, format)
	if err != nil {
		return "", err
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, a, format); err != nil {
		return "", err
	}
	key := path.Join(s.prefix, name)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()),
		minio.PutObjectOptions{ContentType: contentType(format)})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *ObjectStore) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	s.ensured = true
	return nil
}

func contentType(format Format) string {
	if format == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}
