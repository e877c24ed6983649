package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GriffinCanCode/AgentOS/updater/internal/archive"
	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/bundle"
	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/updater/internal/remote"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/utils"
	"github.com/GriffinCanCode/AgentOS/updater/internal/storage/kv"
	"go.uber.org/zap"
)

// Pointer keys in the key-value store
const (
	KeyCurrent  = "current"
	KeyFallback = "fallback"
	KeyNext     = "next"
)

// ErrBuiltin is returned when a reserved id is used where a real bundle is required
var ErrBuiltin = errors.New("reserved bundle id")

// Downloader fetches an archive to a local file
type Downloader interface {
	Download(ctx context.Context, url, dest string, progress remote.ProgressFunc) (int64, error)
}

// LatestChecker asks the update server for the newest bundle
type LatestChecker interface {
	CheckLatest(ctx context.Context, endpoint string, device remote.Device, versionName string) (*remote.AppVersion, error)
}

// StatsSender dispatches lifecycle events without blocking
type StatsSender interface {
	Send(ctx context.Context, action, versionName string)
}

// Options wires a Manager
type Options struct {
	Store      kv.Store
	Layout     paths.Layout
	Downloader Downloader
	Latest     LatestChecker
	Stats      StatsSender
	Device     remote.Device
	Logger     *zap.Logger
	Metrics    *monitoring.Metrics
}

// Manager owns the bundle lifecycle: download, install, activation and
// fallback. Mutating calls must be serialized by the caller.
type Manager struct {
	store      kv.Store
	layout     paths.Layout
	registry   *registry.Manager
	installer  *archive.Installer
	downloader Downloader
	latest     LatestChecker
	stats      StatsSender
	device     remote.Device
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	progress   listeners
}

// NewManager creates a manager from opts
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stats := opts.Stats
	if stats == nil {
		stats = noStats{}
	}

	return &Manager{
		store:      opts.Store,
		layout:     opts.Layout,
		registry:   registry.NewManager(opts.Store, opts.Layout, logger),
		installer:  archive.NewInstaller(opts.Layout, logger),
		downloader: opts.Downloader,
		latest:     opts.Latest,
		stats:      stats,
		device:     opts.Device,
		logger:     logger.Named("updater"),
		metrics:    opts.Metrics,
	}
}

type noStats struct{}

func (noStats) Send(context.Context, string, string) {}

// OnProgress subscribes to download progress. The returned function
// unsubscribes.
func (m *Manager) OnProgress(fn ProgressListener) func() {
	return m.progress.add(fn)
}

func (m *Manager) notify(bundleID string, percent int) {
	m.progress.notify(ProgressEvent{ID: bundleID, Percent: percent})
}

// CheckLatest asks endpoint for the newest bundle for this device. Failures
// are logged and reported as no update.
func (m *Manager) CheckLatest(ctx context.Context, endpoint string) *remote.AppVersion {
	if m.latest == nil {
		m.logger.Warn("No update server configured")
		return nil
	}

	latest, err := m.latest.CheckLatest(ctx, endpoint, m.device, m.CurrentBundle(ctx).Version)
	if err != nil {
		m.logger.Error("Error getting latest", zap.String("endpoint", endpoint), zap.Error(err))
		return nil
	}
	if latest != nil && latest.Message != "" {
		m.logger.Info("Auto-update message", zap.String("message", latest.Message))
	}
	return latest
}

// Download fetches url, installs it into both trees under a fresh id and
// records it as pending. A downloading record is written before the
// transfer starts; on failure that record is returned with the error so the
// caller can Delete it.
func (m *Manager) Download(ctx context.Context, url, version string) (bundle.Info, error) {
	if m.downloader == nil {
		return bundle.Info{}, fmt.Errorf("%w: no downloader configured", remote.ErrNetwork)
	}
	if err := utils.ValidateDownloadURL(url); err != nil {
		return bundle.Info{}, err
	}
	if err := utils.ValidateVersionName(version); err != nil {
		return bundle.Info{}, err
	}

	bundleID := id.NewBundleID().String()
	scratch := m.layout.Temp(id.NewScratchName(id.DownloadPrefix))
	logger := m.logger.With(zap.String("id", bundleID), zap.String("version", version))

	info := bundle.New(bundleID, version, bundle.StatusDownloading)
	if err := m.registry.Save(ctx, bundleID, &info); err != nil {
		logger.Warn("Failed to record download start", zap.Error(err))
	}
	m.notify(bundleID, ProgressStart)

	n, err := m.downloader.Download(ctx, url, scratch, func(percent int) {
		m.notify(bundleID, totalPercent(percent, ProgressTransferMin, ProgressTransferMax))
	})
	m.metrics.AddDownloadBytes(n)
	if err != nil {
		logger.Error("Download error", zap.String("url", url), zap.Error(err))
		os.Remove(scratch)
		m.metrics.RecordDownload(false)
		return info, err
	}
	m.notify(bundleID, ProgressDownloaded)

	if err := m.install(ctx, scratch, bundleID); err != nil {
		logger.Error("Download unzip error", zap.Error(err))
		os.Remove(scratch)
		m.metrics.RecordDownload(false)
		return info, err
	}

	if err := os.Remove(scratch); err != nil {
		logger.Warn("Scratch download not removed", zap.String("path", scratch), zap.Error(err))
	}

	info = bundle.New(bundleID, version, bundle.StatusPending)
	if err := m.registry.Save(ctx, bundleID, &info); err != nil {
		logger.Warn("Failed to record installed bundle", zap.Error(err))
	}
	m.metrics.RecordDownload(true)
	logger.Info("Bundle downloaded")
	return info, nil
}

func (m *Manager) install(ctx context.Context, archivePath, bundleID string) error {
	checkpoints := []struct {
		tree    archive.Tree
		percent int
	}{
		{archive.TreeHot, ProgressHotInstalled},
		{archive.TreePersist, ProgressComplete},
	}

	for _, cp := range checkpoints {
		start := time.Now()
		if err := m.installer.InstallInto(ctx, archivePath, bundleID, cp.tree); err != nil {
			return err
		}
		m.metrics.ObserveInstall(cp.tree.String(), time.Since(start))
		m.notify(bundleID, cp.percent)
	}
	return nil
}

// List returns every bundle found in the hot tree
func (m *Manager) List(ctx context.Context) []bundle.Info {
	return m.registry.List(ctx)
}

// Delete removes both trees and the record of bundleID. A hot tree that
// cannot be removed is tolerated; a persistent tree that cannot be removed
// fails the delete and keeps the record. Deleting the current or fallback
// bundle leaves that pointer dangling.
func (m *Manager) Delete(ctx context.Context, bundleID string) bool {
	if bundle.IsSentinelID(bundleID) {
		m.logger.Warn("Refusing to delete reserved bundle", zap.String("id", bundleID))
		return false
	}
	if err := utils.ValidateBundleID(bundleID); err != nil {
		m.logger.Warn("Refusing to delete bundle", zap.String("id", bundleID), zap.Error(err))
		return false
	}

	deleted := m.registry.Get(ctx, bundleID)
	hot, persist := m.layout.Hot(bundleID), m.layout.Persist(bundleID)

	if err := removeDir(hot); err != nil {
		m.logger.Warn("Hot folder not removed", zap.String("path", hot), zap.Error(err))
	}
	if err := removeDir(persist); err != nil {
		m.logger.Error("Folder not removed", zap.String("path", persist), zap.Error(err))
		m.metrics.RecordDelete(false)
		return false
	}

	if err := m.registry.Remove(ctx, bundleID); err != nil {
		m.logger.Warn("Bundle record not removed", zap.String("id", bundleID), zap.Error(err))
	}
	m.metrics.RecordDelete(true)
	m.stats.Send(ctx, remote.ActionDelete, deleted.Version)
	return true
}

// Discard cleans up after a download that did not finish. When neither tree
// was ever written only the record is removed; otherwise it behaves like
// Delete.
func (m *Manager) Discard(ctx context.Context, bundleID string) bool {
	if bundle.IsSentinelID(bundleID) || utils.ValidateBundleID(bundleID) != nil {
		return m.Delete(ctx, bundleID)
	}
	if exists(m.layout.Hot(bundleID)) || exists(m.layout.Persist(bundleID)) {
		return m.Delete(ctx, bundleID)
	}

	if err := m.registry.Remove(ctx, bundleID); err != nil {
		m.logger.Warn("Bundle record not removed", zap.String("id", bundleID), zap.Error(err))
		return false
	}
	m.logger.Debug("Discarded incomplete bundle", zap.String("id", bundleID))
	return true
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func removeDir(dir string) error {
	if _, err := os.Lstat(dir); err != nil {
		return fmt.Errorf("%w: %v", archive.ErrDirectoryDelete, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: %v", archive.ErrDirectoryDelete, err)
	}
	return nil
}

// BundleDirectory returns the directory the app should serve for bundleID
func (m *Manager) BundleDirectory(bundleID string) string {
	return m.layout.Bundle(bundleID, bundleID == "" || bundleID == bundle.IDBuiltin)
}

// PathHot returns the hot-tree directory for bundleID
func (m *Manager) PathHot(bundleID string) string {
	return m.layout.Hot(bundleID)
}

// PathPersist returns the persistent-tree directory for bundleID
func (m *Manager) PathPersist(bundleID string) string {
	return m.layout.Persist(bundleID)
}

// BundleExists reports whether bundleID is fully installed in both trees
func (m *Manager) BundleExists(bundleID string) bool {
	if bundle.IsSentinelID(bundleID) || utils.ValidateBundleID(bundleID) != nil {
		return false
	}
	return m.installer.Exists(bundleID)
}

// BundleInfo returns the record for bundleID
func (m *Manager) BundleInfo(ctx context.Context, bundleID string) bundle.Info {
	return m.registry.Get(ctx, bundleID)
}

// BundleInfoByVersionName returns the installed bundle carrying version
func (m *Manager) BundleInfoByVersionName(ctx context.Context, version string) (bundle.Info, bool) {
	return m.registry.FindByVersion(ctx, version)
}

// SetVersionName renames the version of bundleID
func (m *Manager) SetVersionName(ctx context.Context, bundleID, version string) error {
	if err := utils.ValidateVersionName(version); err != nil {
		return err
	}
	m.logger.Info("Setting version for bundle", zap.String("id", bundleID), zap.String("version", version))
	return m.registry.SetVersion(ctx, bundleID, version)
}
