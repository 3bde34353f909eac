package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Filesystem stores uploads under a directory served at a public URL prefix
type Filesystem struct {
	root   string
	prefix string
}

func NewFilesystem(root, publicPrefix string) (*Filesystem, error) {
	if root == "" {
		root = filepath.Join("public", "uploads")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if publicPrefix == "" {
		publicPrefix = "/uploads"
	}
	return &Filesystem{root: root, prefix: strings.TrimRight(publicPrefix, "/")}, nil
}

func (f *Filesystem) Driver() string { return "fs" }

// Root is the directory files are written to
func (f *Filesystem) Root() string { return f.root }

func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return key, nil
}

func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader, contentType string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	k, err := sanitizeKey(key)
	if err != nil {
		return Object{}, err
	}
	dst := filepath.Join(f.root, k)

	tmp, err := os.CreateTemp(f.root, ".upload-*")
	if err != nil {
		return Object{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, fmt.Errorf("store upload: %w", err)
	}

	return Object{
		Key:         k,
		URL:         path.Join(f.prefix, k),
		Size:        size,
		ContentType: contentType,
	}, nil
}
