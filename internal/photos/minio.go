package photos

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	// BaseURL overrides the public URL prefix, e.g. a CDN in front of the bucket.
	BaseURL string
}

// Minio stores photos in an S3 compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	base   string
}

// NewMinio connects and creates the bucket if it doesn't exist yet.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create minio client")
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "check bucket %s", cfg.Bucket)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, errors.Wrapf(err, "create bucket %s", cfg.Bucket)
		}
	}

	base := cfg.BaseURL
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket, base: base}, nil
}

func (m *Minio) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error) {
	options := minio.PutObjectOptions{ContentType: contentType}
	if len(metadata) > 0 {
		options.UserMetadata = metadata
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), options)
	if err != nil {
		return "", errors.Wrapf(err, "put object %s", key)
	}
	return joinURL(m.base, key), nil
}
