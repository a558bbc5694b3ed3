// Package artifact owns the on-disk layout of downloaded archives.
//
//	{appId}_{versionId}.ipa      finished artifact (written by the downloader)
//	{appId}_{versionId}.json     sidecar metadata (written by the extractor)
//	{appId}_{versionId}.ipa.tmp  partial download
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

const (
	SidecarExt = ".json"
	PartialExt = ".tmp"
)

// trackedExts are the extensions Clear sweeps.
var trackedExts = []string{domain.ArtifactExt, SidecarExt, PartialExt}

// File is one artifact found on disk.
type File struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"sizeBytes"`
	ModifiedAt time.Time `json:"modifiedAt"`
	HasSidecar bool      `json:"hasMetadata"`
}

// Store maps artifact names to paths inside one directory.
type Store struct {
	dir string
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the artifact path for a file name.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// PartialPath returns the in-progress download path.
func (s *Store) PartialPath(name string) string { return s.Path(name) + PartialExt }

// SidecarPath returns the metadata file path.
func (s *Store) SidecarPath(name string) string {
	return filepath.Join(s.dir, domain.ArtifactBase(name)+SidecarExt)
}

// Exists reports whether the finished artifact is on disk.
func (s *Store) Exists(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// NormalizeName accepts "123_456" or "123_456.ipa" and returns the
// artifact file name. Anything that could escape the directory is rejected.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidArtifactName, name)
	}
	base := domain.ArtifactBase(name)
	if base == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidArtifactName, name)
	}
	return base + domain.ArtifactExt, nil
}

// Remove deletes the artifact, its sidecar and any partial file.
// Missing files are not an error.
func (s *Store) Remove(name string) error {
	var errs []error
	for _, p := range []string{s.Path(name), s.SidecarPath(name), s.PartialPath(name)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear deletes every tracked-extension file in the directory, whether or
// not a task ever referenced it. Returns how many files were removed.
func (s *Store) Clear() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read artifact dir: %w", err)
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !isTracked(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// List returns finished artifacts, newest first.
func (s *Store) List() ([]File, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != domain.ArtifactExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		_, sidecarErr := os.Stat(s.SidecarPath(e.Name()))
		files = append(files, File{
			Name:       e.Name(),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
			HasSidecar: sidecarErr == nil,
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModifiedAt.After(files[j].ModifiedAt)
	})
	return files, nil
}

func isTracked(name string) bool {
	for _, ext := range trackedExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
