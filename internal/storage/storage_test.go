package storage

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

func TestDecodeDataURL(t *testing.T) {
	img, err := DecodeDataURL(pngDataURL())
	require.NoError(t, err)
	assert.Equal(t, "png", img.Ext)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngBytes, img.Data)
}

func TestDecodeDataURLJPEGExtension(t *testing.T) {
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	img, err := DecodeDataURL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg))
	require.NoError(t, err)
	assert.Equal(t, "jpg", img.Ext)
}

func TestDecodeDataURLRejects(t *testing.T) {
	cases := map[string]string{
		"no prefix":   base64.StdEncoding.EncodeToString(pngBytes),
		"not image":   "data:text/plain;base64,aGVsbG8=",
		"unsupported": "data:image/tiff;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		"bad base64":  "data:image/png;base64,!!!",
		"not png":     "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text")),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDataURL(payload)
			assert.Error(t, err)
		})
	}
}

func TestNewKey(t *testing.T) {
	key := NewKey(AvatarPrefix, "avatar", "png")
	assert.True(t, strings.HasPrefix(key, "users/avatars/avatar_"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(key, "users/avatars/avatar_"), ".png"), 32)
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "/media/")
	ctx := context.Background()

	url, err := s.Save(ctx, "recipes/images/x.png", pngBytes, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/recipes/images/x.png", url)

	data, err := os.ReadFile(filepath.Join(root, "recipes", "images", "x.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, s.Delete(ctx, "recipes/images/x.png"))
	require.NoError(t, s.Delete(ctx, "recipes/images/x.png"))
	_, err = os.Stat(filepath.Join(root, "recipes", "images", "x.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageKeepsKeysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "/media")

	_, err := s.Save(context.Background(), "../../escape.png", pngBytes, "image/png")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "escape.png"))
	assert.NoError(t, err)
}
