package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/media-subtitle-translator/internal/subtitle"
	"github.com/MimeLyc/media-subtitle-translator/pkg/file"
	"github.com/gofrs/flock"
)

// ErrNotFound is returned by Open when no artifact exists for the pair.
var ErrNotFound = errors.New("subtitle file not found")

const lockRetryDelay = 50 * time.Millisecond

// Store keeps subtitle artifacts in one directory, named
// "<video stem>_<language>.srt".
type Store struct {
	Dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Name is the artifact file name for a video and language.
func (s *Store) Name(videoName, language string) string {
	return file.Stem(videoName) + "_" + sanitizeLabel(language) + ".srt"
}

// Path is the full artifact path for a video and language.
func (s *Store) Path(videoName, language string) string {
	return filepath.Join(s.Dir, s.Name(videoName, language))
}

// Write serializes track to the artifact path and returns that path. An
// existing artifact for the same pair is replaced. Concurrent writers of the
// same path are serialized through "<path>.lock".
func (s *Store) Write(ctx context.Context, videoName, language string, track *subtitle.File) (string, error) {
	if track == nil {
		return "", fmt.Errorf("subtitle track is nil")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := s.Path(videoName, language)
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: not acquired", path)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := subtitle.Marshal(track)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.Dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("publish artifact: %w", err)
	}

	return path, nil
}

// Open opens the artifact for reading. The caller closes the file.
func (s *Store) Open(videoName, language string) (*os.File, error) {
	f, err := os.Open(s.Path(videoName, language))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, ErrNotFound
	}
	return f, nil
}

// sanitizeLabel keeps a language label from introducing path separators.
func sanitizeLabel(language string) string {
	language = strings.TrimSpace(language)
	return strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(language)
}
