package app

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/terangapay/backoffice/internal/domain"
)

// MaxAvatarBytes is the upload size ceiling for avatar images.
const MaxAvatarBytes = 2 << 20 // 2 MB

// allowedAvatarTypes maps accepted content types to the stored extension.
var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AvatarStore writes avatar images under <dir>/avatars and serves them
// back via the /uploads static route.
type AvatarStore struct {
	dir string
}

// NewAvatarStore creates the avatars directory if needed.
func NewAvatarStore(dir string) (*AvatarStore, error) {
	avatarDir := filepath.Join(dir, "avatars")
	if err := os.MkdirAll(avatarDir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar dir: %w", err)
	}
	return &AvatarStore{dir: dir}, nil
}

// Dir returns the root upload directory, for static file serving.
func (s *AvatarStore) Dir() string { return s.dir }

// Save writes the image to disk under a timestamp-random name and returns
// the public URL path for the stored file. Files over MaxAvatarBytes are
// rejected and nothing is left on disk.
func (s *AvatarStore) Save(contentType string, r io.Reader) (string, error) {
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported avatar content type %q", contentType)
	}
	name := fmt.Sprintf("%d-%09d%s", time.Now().UnixMilli(), rand.Intn(1_000_000_000), ext)
	dst := filepath.Join(s.dir, "avatars", name)

	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	// Copy one byte past the cap so an oversize file is detectable.
	written, err := io.Copy(f, io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		os.Remove(dst)
		return "", err
	}
	if written > MaxAvatarBytes {
		os.Remove(dst)
		return "", domain.Validation("file too large (max 2 MB)")
	}
	return path.Join("/uploads", "avatars", name), nil
}

// Remove deletes a previously stored avatar given its public URL path.
// Unknown or already-missing files are ignored.
func (s *AvatarStore) Remove(urlPath string) {
	if !strings.HasPrefix(urlPath, "/uploads/") {
		return
	}
	rel := strings.TrimPrefix(urlPath, "/uploads/")
	os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
}
