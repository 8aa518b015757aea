// Package assets owns the binary image files referenced by project records.
// Files live in a single flat directory; the logical ref stored on a project
// is the URL path under which the file is served (e.g. "/uploads/<name>").
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// RefPrefix is the URL prefix of every logical asset ref.
const RefPrefix = "/uploads/"

// Manager is a filesystem-backed asset store rooted at a single directory.
type Manager struct {
	basePath string
}

// NewManager creates the asset directory if needed and returns a manager for it.
func NewManager(basePath string) (*Manager, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create asset directory: %w", err)
	}
	return &Manager{basePath: basePath}, nil
}

// BasePath returns the directory assets are stored in.
func (m *Manager) BasePath() string {
	return m.basePath
}

// Store writes data under a fresh ULID-based filename carrying the sanitized
// extension of the client-supplied name, and returns the logical ref. ULIDs
// are time-ordered and collision-free, so no existence check is needed.
func (m *Manager) Store(name string, data []byte) (string, error) {
	fileName := ulid.Make().String() + sanitizeExt(name)
	filePath := filepath.Join(m.basePath, fileName)
	log := logrus.WithFields(logrus.Fields{
		"asset": fileName,
		"size":  len(data),
	})

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write asset")
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	log.Debug("Asset stored")
	return RefPrefix + fileName, nil
}

// Release deletes the file behind ref, best effort. A failure is logged and
// swallowed: losing a stale file is tolerable, failing the record mutation
// that triggered the release is not.
func (m *Manager) Release(ref string) {
	log := logrus.WithField("asset_ref", ref)

	filePath, ok := m.Resolve(ref)
	if !ok {
		log.Warn("Refusing to release ref outside the asset area")
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to release asset")
		return
	}
	log.Debug("Asset released")
}

// Resolve maps a logical ref to an absolute path inside the asset area. Refs
// that do not carry the expected prefix, or whose name would escape the
// directory, resolve to false.
func (m *Manager) Resolve(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok || name == "" {
		return "", false
	}
	// A ref names a single file in the flat asset directory, never a path.
	if filepath.Base(name) != name || name == "." || name == ".." {
		return "", false
	}
	return filepath.Join(m.basePath, name), true
}

// sanitizeExt extracts a safe lowercase extension from a client-supplied
// filename. Anything but dot-plus-alphanumerics is dropped entirely.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "" || ext == "." {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
