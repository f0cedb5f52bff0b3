// Package media stores uploaded product images and videos on disk and
// derives image thumbnails for the catalog listing.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ErrUnsupportedType rejects uploads whose extension is outside the
// whitelist.
var ErrUnsupportedType = errors.New("media: unsupported file type")

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true,
}

const thumbWidth = 400

// Store writes uploads under a single directory. Stored names are
// timestamp plus uuid, so uploads never collide and never carry
// user-controlled path fragments.
type Store struct {
	dir    string
	logger *log.Logger
}

// NewStore creates the upload directory if needed.
func NewStore(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Store{dir: dir, logger: logger.With("component", "media")}, nil
}

// SaveImage stores an image upload and writes a thumb_ prefixed
// thumbnail beside it. It returns the stored filename. origName is only
// consulted for its extension.
func (s *Store) SaveImage(origName string, r io.Reader) (string, error) {
	name, err := s.save(origName, r, imageExts)
	if err != nil {
		return "", err
	}
	s.thumbnail(name)
	return name, nil
}

// SaveVideo stores a video upload. No thumbnail is derived.
func (s *Store) SaveVideo(origName string, r io.Reader) (string, error) {
	return s.save(origName, r, videoExts)
}

func (s *Store) save(origName string, r io.Reader, allowed map[string]bool) (string, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	if !allowed[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	name := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102150405"), uuid.New().String(), ext)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("storing upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("storing upload: %w", err)
	}
	return name, nil
}

// thumbnail is best effort: a stored image that fails to decode keeps
// its original and simply has no thumbnail.
func (s *Store) thumbnail(name string) {
	img, err := imaging.Open(filepath.Join(s.dir, name))
	if err != nil {
		s.logger.Warn("cannot decode stored image, skipping thumbnail", "file", name, "err", err)
		return
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(s.dir, "thumb_"+name)); err != nil {
		s.logger.Warn("cannot write thumbnail", "file", name, "err", err)
	}
}

// Remove deletes stored files and their thumbnails. Missing files are
// ignored; removal runs when products are edited or deleted and the old
// media may already be gone.
func (s *Store) Remove(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		name = filepath.Base(name)
		os.Remove(filepath.Join(s.dir, name))
		os.Remove(filepath.Join(s.dir, "thumb_"+name))
	}
}

// Path resolves a stored name to its on-disk path, stripping any
// directory components a crafted request might carry.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Dir returns the storage directory, for static file serving.
func (s *Store) Dir() string {
	return s.dir
}
