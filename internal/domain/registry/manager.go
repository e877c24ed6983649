package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/bundle"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/updater/internal/storage/kv"
	"go.uber.org/zap"
)

// InfoSuffix namespaces bundle records in the key-value store
const InfoSuffix = "_info"

// InfoKey returns the store key holding the record for id
func InfoKey(id string) string {
	return id + InfoSuffix
}

// Manager maps bundle ids to their records
type Manager struct {
	store  kv.Store
	layout paths.Layout
	logger *zap.Logger
}

// NewManager creates a registry over store. Installed ids are discovered by
// listing the hot tree of layout.
func NewManager(store kv.Store, layout paths.Layout, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		layout: layout,
		logger: logger.Named("registry"),
	}
}

// Get returns the record for id. It never fails: the builtin id resolves to
// the builtin sentinel, and a missing or unreadable record resolves to a
// fresh pending record with an empty version.
func (m *Manager) Get(ctx context.Context, id string) bundle.Info {
	switch id {
	case "", bundle.IDBuiltin:
		return bundle.Builtin()
	case bundle.IDUnknown:
		return bundle.Unknown()
	}

	data, ok, err := m.store.Get(ctx, InfoKey(id))
	if err != nil {
		m.logger.Warn("Failed to read bundle record", zap.String("id", id), zap.Error(err))
		return m.missing(id)
	}
	if !ok {
		return m.missing(id)
	}

	info, err := bundle.Decode(data)
	if err != nil {
		m.logger.Warn("Failed to parse bundle record", zap.String("id", id), zap.Error(err))
		return m.missing(id)
	}

	m.logger.Debug("Loaded bundle record", zap.String("id", id), zap.Stringer("info", info))
	return info.WithID(id)
}

func (m *Manager) missing(id string) bundle.Info {
	return bundle.Info{ID: id, Status: bundle.StatusPending}
}

// Save stores info under id, or removes the record when info is nil. The
// record is bound to id, so its own ID field is ignored. Nothing is written
// for the builtin or unknown ids. The store is synced before returning.
func (m *Manager) Save(ctx context.Context, id string, info *bundle.Info) error {
	if bundle.IsSentinelID(id) {
		m.logger.Debug("Not saving sentinel bundle record", zap.String("id", id))
		return nil
	}

	if info == nil {
		m.logger.Debug("Removing bundle record", zap.String("id", id))
		if err := m.store.Remove(ctx, InfoKey(id)); err != nil {
			return fmt.Errorf("remove record %s: %w", id, err)
		}
		return m.store.Sync(ctx)
	}

	update := info.WithID(id)
	data, err := bundle.Encode(update)
	if err != nil {
		return err
	}

	m.logger.Debug("Storing bundle record", zap.String("id", id), zap.Stringer("info", update))
	if err := m.store.Set(ctx, InfoKey(id), data); err != nil {
		return fmt.Errorf("store record %s: %w", id, err)
	}
	return m.store.Sync(ctx)
}

// Remove deletes the record for id
func (m *Manager) Remove(ctx context.Context, id string) error {
	return m.Save(ctx, id, nil)
}

// SetVersion renames the version of an existing or synthesized record
func (m *Manager) SetVersion(ctx context.Context, id, version string) error {
	info := m.Get(ctx, id).WithVersion(version)
	return m.Save(ctx, id, &info)
}

// SetStatus moves a record to a new lifecycle state
func (m *Manager) SetStatus(ctx context.Context, id string, status bundle.Status) error {
	m.logger.Info("Setting bundle status", zap.String("id", id), zap.Stringer("status", status))
	info := m.Get(ctx, id).WithStatus(status)
	return m.Save(ctx, id, &info)
}

// List returns a record for every bundle directory in the hot tree, in
// directory order. A missing hot tree yields an empty list.
func (m *Manager) List(ctx context.Context) []bundle.Info {
	entries, err := os.ReadDir(m.layout.HotRoot)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("Failed to list hot tree", zap.String("path", m.layout.HotRoot), zap.Error(err))
		}
		return []bundle.Info{}
	}

	infos := make([]bundle.Info, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		infos = append(infos, m.Get(ctx, entry.Name()))
	}
	return infos
}

// FindByVersion returns the first installed bundle carrying version
func (m *Manager) FindByVersion(ctx context.Context, version string) (bundle.Info, bool) {
	for _, info := range m.List(ctx) {
		if info.Version == version {
			return info, true
		}
	}
	return bundle.Info{}, false
}
