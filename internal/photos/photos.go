// Package photos stores candidate pictures and hands back a public URL.
package photos

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kennygrant/sanitize"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
)

const keyPrefix = "candidate-photos/"

// Backend persists an object and returns the URL it can be fetched from.
type Backend interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (string, error)
}

type Uploader struct {
	backend  Backend
	maxBytes int64
	log      *logrus.Entry
}

func NewUploader(backend Backend, maxBytes int64, log logrus.FieldLogger) *Uploader {
	return &Uploader{backend: backend, maxBytes: maxBytes, log: logging.Module(log, "photos")}
}

// Open picks the backend named by cfg.PhotoBackend.
func Open(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Uploader, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.PhotoBackend {
	case config.PhotosMinio:
		backend, err = NewMinio(ctx, MinioConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
			BaseURL:   cfg.PhotoBaseURL,
		})
	default:
		backend, err = NewDir(cfg.PhotoDir, cfg.PhotoBaseURL)
	}
	if err != nil {
		return nil, err
	}
	return NewUploader(backend, cfg.PhotoMaxBytes, log), nil
}

// Key is the object name a candidate's photo is stored under.
func Key(candidateID string) string {
	return keyPrefix + sanitize.BaseName(candidateID)
}

// Upload validates data as an image and stores it as the candidate's photo,
// replacing any earlier one.
func (u *Uploader) Upload(ctx context.Context, candidateID string, data []byte) (string, error) {
	var v apperr.Validation
	switch {
	case len(data) == 0:
		v.Add("photo", "is required")
	case u.maxBytes > 0 && int64(len(data)) > u.maxBytes:
		v.Add("photo", fmt.Sprintf("must be at most %d bytes", u.maxBytes))
	}
	if err := v.Err(); err != nil {
		return "", err
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		v.Add("photo", "must be an image, got "+mtype.String())
		return "", v.Err()
	}

	key := Key(candidateID)
	url, err := u.backend.Put(ctx, key, data, mtype.String(), map[string]string{
		"candidate-id": candidateID,
	})
	if err != nil {
		return "", apperr.Unavailable(err, "store photo")
	}

	u.log.WithFields(logrus.Fields{
		"candidate_id": candidateID,
		"key":          key,
		"type":         mtype.String(),
		"bytes":        len(data),
	}).Info("photo uploaded")
	return url, nil
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + strings.Trim(p, "/")
	}
	return out
}
