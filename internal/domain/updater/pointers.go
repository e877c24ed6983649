package updater

import (
	"context"
	"fmt"
	"os"

	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/bundle"
	"github.com/GriffinCanCode/AgentOS/updater/internal/remote"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/utils"
	"go.uber.org/zap"
)

func (m *Manager) pointer(ctx context.Context, key, def string) string {
	v, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("Pointer read failed", zap.String("key", key), zap.Error(err))
		return def
	}
	if !ok {
		return def
	}
	return v
}

func (m *Manager) setPointer(ctx context.Context, key, value string) error {
	if err := m.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("set %s pointer: %w", key, err)
	}
	return nil
}

// CurrentBundleID returns the id the app should load. Empty means builtin.
func (m *Manager) CurrentBundleID(ctx context.Context) string {
	return m.pointer(ctx, KeyCurrent, "")
}

// CurrentBundle returns the record of the current bundle
func (m *Manager) CurrentBundle(ctx context.Context) bundle.Info {
	return m.registry.Get(ctx, m.CurrentBundleID(ctx))
}

// IsUsingBuiltin reports whether the current pointer selects the builtin bundle
func (m *Manager) IsUsingBuiltin(ctx context.Context) bool {
	current := m.CurrentBundleID(ctx)
	return current == "" || current == bundle.IDBuiltin
}

// Set points current at bundleID after checking it is installed in both
// trees. Builtin and the empty id revert to the shipped bundle. A false
// return leaves current untouched.
func (m *Manager) Set(ctx context.Context, bundleID string) bool {
	target := m.registry.Get(ctx, bundleID)
	logger := m.logger.With(zap.String("id", bundleID))

	if bundleID == "" || bundleID == bundle.IDBuiltin {
		if err := m.setPointer(ctx, KeyCurrent, ""); err != nil {
			logger.Error("Failed to select builtin bundle", zap.Error(err))
			return m.setFailed(ctx, target)
		}
		m.store.Sync(ctx)
		m.metrics.RecordActivation(true)
		m.stats.Send(ctx, remote.ActionSet, target.Version)
		return true
	}

	if !m.BundleExists(bundleID) {
		logger.Warn("Bundle is not installed")
		return m.setFailed(ctx, target)
	}

	if err := m.setPointer(ctx, KeyCurrent, bundleID); err != nil {
		logger.Error("Failed to set current bundle", zap.Error(err))
		return m.setFailed(ctx, target)
	}
	if err := m.store.Sync(ctx); err != nil {
		logger.Warn("Failed to sync current bundle", zap.Error(err))
	}
	if err := m.registry.SetStatus(ctx, bundleID, bundle.StatusPending); err != nil {
		logger.Warn("Failed to mark bundle pending", zap.Error(err))
	}
	m.metrics.RecordActivation(true)
	m.stats.Send(ctx, remote.ActionSet, target.Version)
	logger.Info("Current bundle set")
	return true
}

func (m *Manager) setFailed(ctx context.Context, target bundle.Info) bool {
	m.metrics.RecordActivation(false)
	m.stats.Send(ctx, remote.ActionSetFail, target.Version)
	return false
}

// SetBundle is Set for a record
func (m *Manager) SetBundle(ctx context.Context, info bundle.Info) bool {
	return m.Set(ctx, info.ID)
}

// Commit marks info as verified good and makes it the fallback
func (m *Manager) Commit(ctx context.Context, info bundle.Info) error {
	if info.IsSentinel() {
		return fmt.Errorf("%w: commit %q", ErrBuiltin, info.ID)
	}
	if err := m.registry.SetStatus(ctx, info.ID, bundle.StatusSuccess); err != nil {
		return err
	}
	if err := m.setPointer(ctx, KeyFallback, info.ID); err != nil {
		return err
	}
	if err := m.store.Sync(ctx); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	m.metrics.RecordCommit()
	m.logger.Info("Bundle committed", zap.String("id", info.ID))
	return nil
}

// Rollback marks info as failed. The current pointer is left alone; the
// caller reverts by calling Set with the fallback.
func (m *Manager) Rollback(ctx context.Context, info bundle.Info) error {
	if info.IsSentinel() {
		return fmt.Errorf("%w: rollback %q", ErrBuiltin, info.ID)
	}
	if err := m.registry.SetStatus(ctx, info.ID, bundle.StatusError); err != nil {
		return err
	}
	m.metrics.RecordRollback()
	m.logger.Info("Bundle rolled back", zap.String("id", info.ID))
	return nil
}

// Reset restores current to builtin, fallback to builtin and clears next.
// Internal resets do not report a stats event.
func (m *Manager) Reset(ctx context.Context, internal bool) error {
	if err := m.setPointer(ctx, KeyCurrent, ""); err != nil {
		return err
	}
	if err := m.setPointer(ctx, KeyFallback, bundle.IDBuiltin); err != nil {
		return err
	}
	if err := m.store.Remove(ctx, KeyNext); err != nil {
		return fmt.Errorf("clear next pointer: %w", err)
	}
	if err := m.store.Sync(ctx); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}

	if !internal {
		m.stats.Send(ctx, remote.ActionReset, m.CurrentBundle(ctx).Version)
	}
	m.logger.Info("Pointers reset", zap.Bool("internal", internal))
	return nil
}

// FallbackVersion returns the last committed bundle, builtin by default
func (m *Manager) FallbackVersion(ctx context.Context) bundle.Info {
	return m.registry.Get(ctx, m.pointer(ctx, KeyFallback, bundle.IDBuiltin))
}

// NextVersion returns the bundle staged for the next load, if any
func (m *Manager) NextVersion(ctx context.Context) (bundle.Info, bool) {
	next := m.pointer(ctx, KeyNext, "")
	if next == "" {
		return bundle.Info{}, false
	}
	return m.registry.Get(ctx, next), true
}

// SetNextVersion stages bundleID for the next load. An empty id clears the
// pointer. Staging requires the persistent directory to exist.
func (m *Manager) SetNextVersion(ctx context.Context, bundleID string) bool {
	if bundleID == "" {
		if err := m.store.Remove(ctx, KeyNext); err != nil {
			m.logger.Error("Failed to clear next bundle", zap.Error(err))
			return false
		}
		m.store.Sync(ctx)
		return true
	}

	if bundle.IsSentinelID(bundleID) || utils.ValidateBundleID(bundleID) != nil {
		return false
	}
	if fi, err := os.Stat(m.layout.Persist(bundleID)); err != nil || !fi.IsDir() {
		m.logger.Warn("Next bundle is not installed", zap.String("id", bundleID))
		return false
	}

	if err := m.setPointer(ctx, KeyNext, bundleID); err != nil {
		m.logger.Error("Failed to set next bundle", zap.String("id", bundleID), zap.Error(err))
		return false
	}
	if err := m.registry.SetStatus(ctx, bundleID, bundle.StatusPending); err != nil {
		m.logger.Warn("Failed to mark bundle pending", zap.String("id", bundleID), zap.Error(err))
	}
	m.store.Sync(ctx)
	return true
}
