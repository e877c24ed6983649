package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/paths"
	"go.uber.org/zap"
)

// Tree selects one of the two storage trees
type Tree int

const (
	TreeHot Tree = iota
	TreePersist
)

func (t Tree) String() string {
	switch t {
	case TreeHot:
		return "hot"
	case TreePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// Installer unpacks downloaded archives into the storage trees
type Installer struct {
	layout paths.Layout
	ids    *id.Generator
	logger *zap.Logger
}

// NewInstaller creates an installer for layout
func NewInstaller(layout paths.Layout, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{
		layout: layout,
		ids:    id.Default(),
		logger: logger.Named("installer"),
	}
}

// Install writes the archive into both trees, hot first. A failure part way
// leaves whatever was already written in place.
func (i *Installer) Install(ctx context.Context, archivePath, bundleID string) error {
	for _, tree := range []Tree{TreeHot, TreePersist} {
		if err := i.InstallInto(ctx, archivePath, bundleID, tree); err != nil {
			return err
		}
	}
	return nil
}

// InstallInto extracts a fresh copy of the archive and moves it into tree
// under bundleID
func (i *Installer) InstallInto(ctx context.Context, archivePath, bundleID string, tree Tree) error {
	root, dest := i.layout.HotRoot, i.layout.Hot(bundleID)
	if tree == TreePersist {
		root, dest = i.layout.PersistRoot, i.layout.Persist(bundleID)
	}

	if err := prepareDir(root); err != nil {
		i.logger.Error("Cannot create tree root", zap.String("path", root), zap.Error(err))
		return err
	}
	if err := prepareDir(i.layout.TempRoot); err != nil {
		i.logger.Error("Cannot create temp root", zap.String("path", i.layout.TempRoot), zap.Error(err))
		return err
	}

	scratch := i.layout.Temp(i.ids.Scratch(id.ExtractPrefix))
	if err := Extract(ctx, archivePath, scratch); err != nil {
		os.RemoveAll(scratch)
		return err
	}

	collapsed, err := Flatten(scratch, dest, i.entryPoint())
	if err != nil {
		i.logger.Error("File not moved",
			zap.String("source", scratch),
			zap.String("dest", dest),
			zap.Error(err))
		return err
	}
	if collapsed {
		if err := os.RemoveAll(scratch); err != nil {
			return fmt.Errorf("%w: %v", ErrDirectoryDelete, err)
		}
	}

	i.logger.Debug("Installed bundle tree",
		zap.String("id", bundleID),
		zap.Stringer("tree", tree),
		zap.Bool("flattened", collapsed))
	return nil
}

// Exists reports whether bundleID is installed: both tree directories exist
// and each holds an entry point
func (i *Installer) Exists(bundleID string) bool {
	for _, dir := range []string{i.layout.Hot(bundleID), i.layout.Persist(bundleID)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return false
		}
		entry, err := os.Stat(i.layout.Entry(dir))
		if err != nil || entry.IsDir() {
			return false
		}
	}
	return true
}

func (i *Installer) entryPoint() string {
	if i.layout.EntryPoint == "" {
		return paths.EntryPoint
	}
	return i.layout.EntryPoint
}

func prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDirectoryCreate, dir, err)
	}
	return nil
}
