package objstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Keys of the generated output tree. Keys always use forward slashes.
const (
	SearchIndexKey  = "search/index.json"
	SearchConfigKey = "search/config.json"
	DatabaseKey     = "metadata.db"
	SiteManifestKey = "site.json"
	LockKey         = ".anytron.lock"
)

// FrameKey is the key of the full frame for an episode at ts milliseconds.
func FrameKey(episode string, ts uint64) string {
	return fmt.Sprintf("img/frames/%s/%d.jpg", episode, ts)
}

// ThumbKey is the key of the thumbnail for an episode at ts milliseconds.
func ThumbKey(episode string, ts uint64) string {
	return fmt.Sprintf("img/thumbs/%s/%d.jpg", episode, ts)
}

var ErrInvalidKey = errors.New("invalid object key")

type ObjectReader interface {
	Open(key string) (io.ReadCloser, error)
}

type ObjectWriter interface {
	Create(key string) (io.WriteCloser, error)
}

// LocalFS stores objects as files under a base directory.
type LocalFS struct {
	basePath string
}

func NewLocalFS(basePath string) *LocalFS {
	return &LocalFS{basePath: basePath}
}

// CleanKey normalizes key and rejects keys that would escape the store.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// Path returns the filesystem path of key.
func (s *LocalFS) Path(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleaned)), nil
}

func (s *LocalFS) Open(key string) (io.ReadCloser, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Create opens key for writing, creating parent directories as needed.
func (s *LocalFS) Create(key string) (io.WriteCloser, error) {
	p, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return nil, err
	}
	return os.Create(p)
}

// Exists reports whether key is a regular file.
func (s *LocalFS) Exists(key string) bool {
	p, err := s.Path(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
