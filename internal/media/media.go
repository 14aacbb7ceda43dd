// Package media stores uploaded train images on local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/AntonKrinichnyi/trainstation/internal/apperr"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload in bytes.
const MaxImageSize = 5 << 20

// TrainDir is the subdirectory train images are stored under.
const TrainDir = "trains"

// allowed maps accepted image MIME types to the extension files get.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectImage sniffs data and returns the extension for an accepted image
// type. Anything else is a validation error on the image field.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.Validation("image", "no file was submitted")
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowed[m.String()]; ok {
			return ext, nil
		}
	}
	return "", apperr.Validation("image", fmt.Sprintf("upload a valid image; %s is not supported", mt.String()))
}

// Slugify lowercases s and collapses every run of non-alphanumerics into
// a single dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// TrainImageName builds a unique stored path for an image of the named train.
func TrainImageName(trainName, ext string) string {
	slug := Slugify(trainName)
	if slug == "" {
		slug = "train"
	}
	return path.Join(TrainDir, fmt.Sprintf("%s-%s%s", slug, uuid.NewString(), ext))
}

// LocalStore keeps files under Dir and serves them under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
}

// abs resolves a stored path, refusing anything that escapes Dir.
func (s *LocalStore) abs(stored string) (string, error) {
	clean := path.Clean("/" + stored)
	if clean == "/" {
		return "", fmt.Errorf("media: empty path")
	}
	return filepath.Join(s.Dir, filepath.FromSlash(clean)), nil
}

// Save writes data at the stored path name, creating directories.
func (s *LocalStore) Save(name string, r io.Reader) error {
	p, err := s.abs(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("media: create dir for %s: %w", name, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("media: create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("media: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("media: close %s: %w", name, err)
	}
	return nil
}

// Remove deletes the stored file. Removing a missing file is not an error.
func (s *LocalStore) Remove(name string) error {
	p, err := s.abs(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("media: remove %s: %w", name, err)
	}
	return nil
}

// URL returns the public URL of a stored path, or "" for an empty path.
func (s *LocalStore) URL(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(name, "/")
}

// ModTime returns the last modification time of a stored file.
func (s *LocalStore) ModTime(name string) (time.Time, error) {
	p, err := s.abs(name)
	if err != nil {
		return time.Time{}, err
	}
	fi, err := os.Stat(p)
	if err != nil {
		return time.Time{}, fmt.Errorf("media: stat %s: %w", name, err)
	}
	return fi.ModTime(), nil
}

// List returns the stored paths under dir, relative to the store root.
func (s *LocalStore) List(dir string) ([]string, error) {
	root := filepath.Join(s.Dir, filepath.FromSlash(dir))
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("media: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, path.Join(dir, e.Name()))
		}
	}
	return out, nil
}
