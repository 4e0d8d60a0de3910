package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *Storage {
	t.Helper()

	backend, err := NewLocalStorage(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	s := NewStorage(backend)
	require.NoError(t, s.EnsureBucket(context.Background()))
	return s
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	require.NoError(t, s.Put(ctx, "casa.jpg", strings.NewReader("jpeg-bytes"), 10, "image/jpeg"))

	rc, err := s.Get(ctx, "casa.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, s.Delete(ctx, "casa.jpg"))

	_, err = s.Get(ctx, "casa.jpg")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "casa.jpg"), ErrObjectNotFound)
}

func TestLocalStorage_RejectsPathTraversal(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)

	for _, key := range []string{"", "..", "../secret", "a/b.jpg"} {
		err := s.Put(ctx, key, strings.NewReader("x"), 1, "")
		assert.Error(t, err, "key %q", key)
	}
}

func TestNewLocalStorage_RequiresDir(t *testing.T) {
	_, err := NewLocalStorage("  ")
	assert.Error(t, err)
}

func TestImageUploader_Upload(t *testing.T) {
	ctx := context.Background()
	s := newLocal(t)
	uploader := NewImageUploader(s, 16)

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr error
	}{
		{"jpeg accepted", "frente.JPG", "small", nil},
		{"webp accepted", "frente.webp", "small", nil},
		{"gif rejected", "frente.gif", "small", ErrUnsupportedImage},
		{"no extension", "frente", "small", ErrUnsupportedImage},
		{"too large", "frente.png", strings.Repeat("x", 17), ErrImageTooLarge},
		{"empty", "frente.png", "", ErrEmptyImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, err := uploader.Upload(ctx, tt.file, strings.NewReader(tt.body), int64(len(tt.body)))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, name)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(filepath.Ext(tt.file)), filepath.Ext(name))
			assert.NotContains(t, name, "frente")

			rc, err := s.Get(ctx, name)
			require.NoError(t, err)
			_ = rc.Close()
		})
	}
}

func TestUploadBodyLimit(t *testing.T) {
	assert.Zero(t, UploadBodyLimit(0))
	assert.Equal(t, int64(1024+64<<10), UploadBodyLimit(1024))

	uploader := NewImageUploader(nil, 2048)
	assert.Equal(t, UploadBodyLimit(2048), uploader.BodyLimit())
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFor("a.jpeg"))
	assert.Equal(t, "image/png", ContentTypeFor("A.PNG"))
	assert.Equal(t, "", ContentTypeFor("a.txt"))
}
