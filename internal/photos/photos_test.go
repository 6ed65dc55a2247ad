package photos

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/ballotbox/backend/internal/apperr"
	"github.com/emilythestrangee/ballotbox/backend/internal/config"
	"github.com/emilythestrangee/ballotbox/backend/internal/logging"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type failingBackend struct{}

func (failingBackend) Put(context.Context, string, []byte, string, map[string]string) (string, error) {
	return "", errors.New("bucket offline")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "candidate-photos/abc-123", Key("abc-123"))
	assert.NotContains(t, Key("../../etc/passwd"), "/etc/")
}

func TestUploadToDir(t *testing.T) {
	root := t.TempDir()
	up, err := Open(context.Background(), config.Config{
		PhotoBackend:  config.PhotosLocal,
		PhotoDir:      root,
		PhotoBaseURL:  "https://api.example.com",
		PhotoMaxBytes: 1 << 20,
	}, logging.Discard())
	require.NoError(t, err)

	data := pngBytes(t)
	url, err := up.Upload(context.Background(), "cand-1", data)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/media/candidate-photos/cand-1", url)

	stored, err := os.ReadFile(filepath.Join(root, "candidate-photos", "cand-1"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)

	// A second upload replaces the first.
	_, err = up.Upload(context.Background(), "cand-1", data)
	require.NoError(t, err)
}

func TestUploadRejects(t *testing.T) {
	dir, err := NewDir(t.TempDir(), "")
	require.NoError(t, err)
	up := NewUploader(dir, 64, logging.Discard())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", []byte("hello, plain text")},
		{"too large", bytes.Repeat([]byte{0x89}, 65)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := up.Upload(context.Background(), "cand-1", tt.data)
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Contains(t, apperr.FieldErrors(err), "photo")
		})
	}
}

func TestUploadBackendFailure(t *testing.T) {
	up := NewUploader(failingBackend{}, 0, logging.Discard())

	_, err := up.Upload(context.Background(), "cand-1", pngBytes(t))
	assert.ErrorIs(t, err, apperr.ErrBackendUnavailable)
}

func TestDirRelativeURL(t *testing.T) {
	dir, err := NewDir(t.TempDir(), "")
	require.NoError(t, err)

	url, err := dir.Put(context.Background(), Key("c9"), []byte("x"), "image/png", nil)
	require.NoError(t, err)
	assert.Equal(t, "/media/candidate-photos/c9", url)
}
