package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"decoyd/internal/logger"
)

// DataDirName is the template subdirectory exposed through the virtual
// filesystem.
const DataDirName = "data"

/**
 * Virtual filesystem backing file-oriented decoy behavior
 * @description Copy-on-write overlay: the template's data/ directory is
 * the read-only base layer, writes land in an in-memory layer. Decoys
 * can expose and "mutate" files without ever touching disk. Created
 * once after template resolution and closed exactly once at the end of
 * the supervised run.
 */
type VFS struct {
	fs        afero.Fs
	closeOnce sync.Once
}

/**
 * Initialize the virtual filesystem for a resolved template
 * @param {string} templateRoot - Template directory; its data/
 * subdirectory becomes the read-only base layer when present
 * @returns {*VFS} Ready filesystem handle shared by all services
 */
func Initialize(templateRoot string) (*VFS, error) {
	base := afero.NewMemMapFs()
	dataDir := filepath.Join(templateRoot, DataDirName)
	if info, err := os.Stat(dataDir); err == nil && info.IsDir() {
		base = afero.NewBasePathFs(afero.NewOsFs(), dataDir)
	}

	overlay := afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(base), afero.NewMemMapFs())
	return &VFS{fs: overlay}, nil
}

// Fs exposes the overlay for decoy file access.
func (v *VFS) Fs() afero.Fs {
	return v.fs
}

// ReadFile reads a file through the overlay.
func (v *VFS) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(v.fs, name)
}

// WriteFile writes through the overlay into the in-memory layer.
func (v *VFS) WriteFile(name string, data []byte) error {
	return afero.WriteFile(v.fs, name, data, 0644)
}

// List returns the names of the entries in a directory.
func (v *VFS) List(dir string) ([]string, error) {
	infos, err := afero.ReadDir(v.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

// Close releases the handle. Safe to call more than once; only the
// first call takes effect.
func (v *VFS) Close() {
	v.closeOnce.Do(func() {
		v.fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
		logger.Debug("virtual filesystem released")
	})
}
