package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDataURL is returned when a value is not a base64 data URL.
var ErrNotDataURL = errors.New("storage: not a base64 data url")

// MaxDataURLBytes bounds decoded reference images.
const MaxDataURLBytes = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// FileStore persists assets onto the local filesystem and serves them under a
// public base URL.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore initializes a FileStore rooted at basePath. baseURL is the
// public prefix the files are served under and may be empty.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if !filepath.IsAbs(basePath) {
		if abs, err := filepath.Abs(basePath); err == nil {
			basePath = abs
		}
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists the provided bytes at the given relative key and returns the
// canonicalized storage key. Keys are cleaned to prevent directory traversal.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Read returns the bytes stored at key.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if s == nil {
		return nil, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

// PublicURL returns the URL a stored key is served under.
func (s *FileStore) PublicURL(key string) string {
	if s == nil || s.baseURL == "" {
		return "/static/" + key
	}
	return s.baseURL + "/" + key
}

// KeyFromURL maps a public URL produced by PublicURL back to its key.
func (s *FileStore) KeyFromURL(ref string) (string, bool) {
	if s == nil {
		return "", false
	}
	prefix := s.baseURL + "/"
	if s.baseURL == "" {
		prefix = "/static/"
	}
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	key, err := sanitizeKey(strings.TrimPrefix(ref, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}

// SaveDataURL decodes a base64 image data URL and stores it under
// <dir>/<name>.<ext>. It returns the stored key.
func (s *FileStore) SaveDataURL(ctx context.Context, dir, name, dataURL string) (string, error) {
	mime, payload, ok := parseDataURL(dataURL)
	if !ok {
		return "", ErrNotDataURL
	}
	ext, ok := imageExtensions[mime]
	if !ok {
		return "", fmt.Errorf("storage: unsupported image type %q", mime)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxDataURLBytes {
		return "", fmt.Errorf("storage: image exceeds %d bytes", MaxDataURLBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("storage: decode image: %w", err)
	}
	return s.Write(ctx, dir+"/"+name+"."+ext, data)
}

// IsDataURL reports whether v looks like a data URL.
func IsDataURL(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), "data:")
}

func parseDataURL(v string) (mime, payload string, ok bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "data:") {
		return "", "", false
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(v, "data:"), ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSuffix(header, ";base64")), payload, true
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
