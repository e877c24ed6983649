package paths

import (
	"path/filepath"
)

// Default directory names below the hot and persistent roots
const (
	HotDir     = "versions"
	PersistDir = "NoCloud/ionic_built_snapshots"
	EntryPoint = "index.html"
)

// Layout maps bundle ids onto the hot and persistent trees
type Layout struct {
	HotRoot     string
	PersistRoot string
	TempRoot    string
	BuiltinPath string
	EntryPoint  string
}

// New creates a layout rooted at the given directories
func New(hotRoot, persistRoot, tempRoot, builtinPath string) Layout {
	return Layout{
		HotRoot:     hotRoot,
		PersistRoot: persistRoot,
		TempRoot:    tempRoot,
		BuiltinPath: builtinPath,
		EntryPoint:  EntryPoint,
	}
}

// Hot returns the hot-tree directory for a bundle
func (l Layout) Hot(id string) string {
	return filepath.Join(l.HotRoot, id)
}

// Persist returns the persistent-tree directory for a bundle
func (l Layout) Persist(id string) string {
	return filepath.Join(l.PersistRoot, id)
}

// Bundle returns the directory the app should serve for a bundle.
// The empty id and the builtin id resolve to the app's own assets.
func (l Layout) Bundle(id string, builtin bool) string {
	if builtin {
		return l.BuiltinPath
	}
	return l.Persist(id)
}

// Entry returns the entry-point file inside a bundle directory
func (l Layout) Entry(dir string) string {
	name := l.EntryPoint
	if name == "" {
		name = EntryPoint
	}
	return filepath.Join(dir, name)
}

// Temp returns a path under the scratch root
func (l Layout) Temp(name string) string {
	return filepath.Join(l.TempRoot, name)
}
