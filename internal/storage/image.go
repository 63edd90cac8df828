package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxImageBytes bounds a decoded upload.
const MaxImageBytes = 5 << 20

var (
	ErrInvalidImage     = errors.New("invalid image payload")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image is too large")
)

// extensions maps accepted MIME subtypes to file extensions.
var extensions = map[string]string{
	"png":  "png",
	"jpeg": "jpg",
	"jpg":  "jpg",
	"gif":  "gif",
	"webp": "webp",
}

// Image is a decoded inline upload.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// DecodeDataURL decodes "data:image/<type>;base64,<payload>".
func DecodeDataURL(payload string) (*Image, error) {
	header, body, ok := strings.Cut(strings.TrimSpace(payload), ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidImage
	}

	subtype := strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64")
	ext, ok := extensions[strings.ToLower(subtype)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, subtype)
	}

	if base64.StdEncoding.DecodedLen(len(body)) > MaxImageBytes+3 {
		return nil, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content is %s", ErrInvalidImage, contentType)
	}

	return &Image{Data: data, ContentType: contentType, Ext: ext}, nil
}

// NewKey builds a unique object key such as users/avatars/avatar_<hex>.png.
func NewKey(prefix, name, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if name != "" {
		id = name + "_" + id
	}
	return path.Join(prefix, id+"."+ext)
}
