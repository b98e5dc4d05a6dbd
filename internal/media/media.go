// Package media stores uploaded post images on an afero filesystem.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// UploadDir is the directory, relative to the media root, that post images go to.
const UploadDir = "posts"

var (
	// ErrNotImage is returned when an upload is not a decodable image.
	ErrNotImage = errors.New("upload a valid image: the file is either not an image or corrupted")
	// ErrTooLarge is returned when an upload exceeds the configured limit.
	ErrTooLarge = errors.New("uploaded file is too large")
)

var extensions = map[string]string{
	"image/gif":  ".gif",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

// Store saves and serves media files.
type Store struct {
	fs       afero.Fs
	maxBytes int64
}

// NewStore roots the store at fs. maxBytes <= 0 disables the size limit.
func NewStore(fs afero.Fs, maxBytes int64) *Store {
	return &Store{fs: fs, maxBytes: maxBytes}
}

// NewOSStore stores files under dir on the local disk, creating it if needed.
func NewOSStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return NewStore(afero.NewBasePathFs(afero.NewOsFs(), dir), maxBytes), nil
}

// Save validates r as a gif, png or jpeg image and writes it under
// UploadDir with a fresh name. It returns the path relative to the media root.
func (s *Store) Save(r io.Reader) (string, error) {
	limit := s.maxBytes
	if limit <= 0 {
		limit = 1<<63 - 1
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", ErrTooLarge
	}

	ext, ok := extensions[http.DetectContentType(data)]
	if !ok {
		return "", ErrNotImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", ErrNotImage
	}

	if err := s.fs.MkdirAll(abs(UploadDir), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := path.Join(UploadDir, uuid.NewString()+ext)
	if err := afero.WriteFile(s.fs, abs(name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return name, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(name string) error {
	if name == "" {
		return nil
	}
	err := s.fs.Remove(abs(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether name is stored.
func (s *Store) Exists(name string) (bool, error) {
	return afero.Exists(s.fs, abs(name))
}

// Handler serves stored files. Mount it with http.StripPrefix.
func (s *Store) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs))
}

// abs anchors name at the filesystem root so it can never climb out of it.
func abs(name string) string {
	return path.Clean("/" + name)
}
