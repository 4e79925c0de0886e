// Package layout owns the tenant filesystem scheme:
//
//	{root}/{client_id}/{Raw,Clean,Downloads}/...
//
// The tree itself is provisioned by the external admin tool; this
// package only resolves paths, creates leaf directories idempotently
// and never deletes a directory.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StoreExt is the analytical store file extension.
const StoreExt = ".db"

// Layout resolves canonical tenant paths under a fixed storage root.
type Layout struct {
	root string
}

// New creates a Layout rooted at root. The root is made absolute so
// paths stay stable regardless of the working directory the engine
// subprocess runs in.
func New(root string) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &Layout{root: abs}, nil
}

// Root returns the tenant's storage root directory.
func (l *Layout) Root(clientID string) string {
	return filepath.Join(l.root, clientID)
}

// RawDir returns the tenant's Raw area.
func (l *Layout) RawDir(clientID string) string {
	return filepath.Join(l.root, clientID, "Raw")
}

// CleanDir returns the tenant's Clean area.
func (l *Layout) CleanDir(clientID string) string {
	return filepath.Join(l.root, clientID, "Clean")
}

// DownloadsDir returns the tenant's Downloads area.
func (l *Layout) DownloadsDir(clientID string) string {
	return filepath.Join(l.root, clientID, "Downloads")
}

// RawPath returns the snapshot path for an uploaded filename. Only the
// base name of the upload is honored, so a crafted filename cannot
// escape the tenant's Raw area.
func (l *Layout) RawPath(clientID, filename string) string {
	return filepath.Join(l.RawDir(clientID), filepath.Base(filename))
}

// StoreName derives the Clean Store filename for an upload:
// {client_id}_{industry}_{base}.db with the upload's extension stripped.
// Callers later pass this name back verbatim as target_store; it is an
// opaque identifier from then on.
func StoreName(clientID, industry, filename string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return clientID + "_" + industry + "_" + base + StoreExt
}

// StorePath returns the absolute path of a store inside the tenant's
// Clean area. The name is reduced to its base first, mirroring RawPath.
func (l *Layout) StorePath(clientID, storeName string) string {
	return filepath.Join(l.CleanDir(clientID), filepath.Base(storeName))
}

// DownloadPath returns the archival path for a query result.
func (l *Layout) DownloadPath(clientID, name string) string {
	return filepath.Join(l.DownloadsDir(clientID), filepath.Base(name))
}

// WALPath returns the write-ahead-log sidecar for a store file.
func WALPath(storePath string) string {
	return storePath + "-wal"
}

// SharedMemPath returns the shared-memory sidecar for a store file.
func SharedMemPath(storePath string) string {
	return storePath + "-shm"
}

// Ensure creates dir if missing. It is idempotent and never truncates.
func (l *Layout) Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure %s: %w", dir, err)
	}
	return nil
}

// Canonical normalizes a path to forward slashes for wire responses, so
// listings look the same on every host OS.
func Canonical(path string) string {
	return filepath.ToSlash(path)
}
