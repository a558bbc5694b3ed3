// Package metadata reads app metadata out of a downloaded .ipa and caches
// it in a JSON sidecar next to the artifact.
package metadata

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"howett.net/plist"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
	"github.com/ij369/ipa-harbor-sub000/internal/infra/artifact"
)

// maxPlistBytes bounds how much of Info.plist is read.
const maxPlistBytes = 8 * 1024 * 1024

// infoPlist is the subset of Info.plist keys we surface.
type infoPlist struct {
	BundleIdentifier string `plist:"CFBundleIdentifier"`
	DisplayName      string `plist:"CFBundleDisplayName"`
	BundleName       string `plist:"CFBundleName"`
	ShortVersion     string `plist:"CFBundleShortVersionString"`
	BundleVersion    string `plist:"CFBundleVersion"`
	MinimumOSVersion string `plist:"MinimumOSVersion"`
}

// Extractor implements domain.MetadataExtractor.
type Extractor struct {
	mu    sync.Mutex
	store *artifact.Store
}

// NewExtractor creates an extractor over an artifact store.
func NewExtractor(store *artifact.Store) *Extractor {
	return &Extractor{store: store}
}

// Extract returns the metadata for an artifact. If the sidecar already
// exists it is returned as is and the archive is not opened.
func (e *Extractor) Extract(fileName string) (domain.Metadata, error) {
	name, err := artifact.NormalizeName(fileName)
	if err != nil {
		return domain.Metadata{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if meta, ok, err := e.readSidecar(name); err != nil || ok {
		return meta, err
	}

	meta, err := e.readArchive(name)
	if err != nil {
		return domain.Metadata{}, err
	}
	if err := e.writeSidecar(name, meta); err != nil {
		return domain.Metadata{}, err
	}
	return meta, nil
}

func (e *Extractor) readSidecar(name string) (domain.Metadata, bool, error) {
	data, err := os.ReadFile(e.store.SidecarPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Metadata{}, false, nil
	}
	if err != nil {
		return domain.Metadata{}, false, fmt.Errorf("read sidecar: %w", err)
	}
	var meta domain.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Metadata{}, false, fmt.Errorf("decode sidecar %s: %w", name, err)
	}
	return meta, true, nil
}

func (e *Extractor) readArchive(name string) (domain.Metadata, error) {
	path := e.store.Path(name)
	stat, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Metadata{}, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
	}
	if err != nil {
		return domain.Metadata{}, err
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer r.Close()

	var entry *zip.File
	for _, f := range r.File {
		if isAppInfoPlist(f.Name) {
			entry = f
			break
		}
	}
	if entry == nil {
		return domain.Metadata{}, fmt.Errorf("%w: %s", domain.ErrMetadataNotFound, name)
	}

	rc, err := entry.Open()
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("open %s in %s: %w", entry.Name, name, err)
	}
	data, err := io.ReadAll(io.LimitReader(rc, maxPlistBytes))
	rc.Close()
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("read %s: %w", entry.Name, err)
	}

	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return domain.Metadata{}, fmt.Errorf("decode Info.plist: %w", err)
	}

	displayName := info.DisplayName
	if displayName == "" {
		displayName = info.BundleName
	}
	return domain.Metadata{
		BundleID:         info.BundleIdentifier,
		Name:             displayName,
		Version:          info.ShortVersion,
		Build:            info.BundleVersion,
		MinimumOSVersion: info.MinimumOSVersion,
		FileName:         name,
		FileSize:         stat.Size(),
	}, nil
}

// writeSidecar writes through a temp file so readers never see half a file.
func (e *Extractor) writeSidecar(name string, meta domain.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	dst := e.store.SidecarPath(name)
	tmp := dst + artifact.PartialExt
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write sidecar: %w", err)
	}
	return nil
}

// isAppInfoPlist matches "Payload/<name>.app/Info.plist" only; nested
// bundles (extensions, frameworks) carry their own Info.plist.
func isAppInfoPlist(p string) bool {
	parts := strings.Split(p, "/")
	return len(parts) == 3 &&
		parts[0] == "Payload" &&
		strings.HasSuffix(parts[1], ".app") &&
		parts[2] == "Info.plist"
}
