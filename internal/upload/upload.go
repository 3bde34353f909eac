package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/infotcjeff2-droid/properties2/internal/store"
	"github.com/infotcjeff2-droid/properties2/pkg/config"
)

// ErrUnsupportedType is returned for files outside the image allow-list
var ErrUnsupportedType = errors.New("unsupported file type")

var allowedTypes = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/svg+xml": "svg",
	"image/webp":    "webp",
}

// Allowed reports whether contentType may be uploaded
func Allowed(contentType string) bool {
	_, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

// Object describes a stored upload
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// Store writes uploaded files somewhere they can be served from
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error)
	Driver() string
}

// FileName builds "<kind>-<unix millis>-<7 base36 chars>.<ext>". The extension always
// follows the accepted content type, never the client's file name.
func FileName(kind, contentType string, now time.Time) string {
	kind = sanitizeSegment(kind)
	if kind == "" {
		kind = "image"
	}
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		ext = "bin"
	}
	return fmt.Sprintf("%s-%d-%s.%s", kind, now.UnixMilli(), store.RandomSuffix(7), ext)
}

func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Open selects the upload store named by cfg.Driver
func Open(ctx context.Context, cfg *config.UploadConfig) (Store, error) {
	switch cfg.Driver {
	case "", "fs":
		return NewFilesystem(cfg.Dir, cfg.PublicPrefix)
	case "s3":
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PublicURL:       cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown upload driver %s", cfg.Driver)
	}
}
