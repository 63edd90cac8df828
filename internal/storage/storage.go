// Package storage persists uploaded images and decodes inline base64 image
// payloads.
package storage

import (
	"context"
)

// ImageStorage stores image bytes under a key and returns a public URL.
type ImageStorage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

const (
	AvatarPrefix = "users/avatars"
	RecipePrefix = "recipes/images"
)
