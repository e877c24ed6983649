package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/GriffinCanCode/AgentOS/updater/internal/archive"
	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/bundle"
	"github.com/GriffinCanCode/AgentOS/updater/internal/domain/registry"
	"github.com/GriffinCanCode/AgentOS/updater/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/updater/internal/remote"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/utils"
	"github.com/GriffinCanCode/AgentOS/updater/internal/storage/kv"
	"github.com/GriffinCanCode/AgentOS/updater/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeDownloader copies a local archive and reports progress in chunks
type fakeDownloader struct {
	archive string
	chunks  int
	err     error
}

func (f *fakeDownloader) Download(_ context.Context, _, dest string, progress remote.ProgressFunc) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	data, err := os.ReadFile(f.archive)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return 0, err
	}
	for i := 1; i <= f.chunks; i++ {
		progress(i * 100 / f.chunks)
	}
	return int64(len(data)), nil
}

type fakeLatest struct {
	version *remote.AppVersion
	err     error
	sent    string
}

func (f *fakeLatest) CheckLatest(_ context.Context, _ string, _ remote.Device, versionName string) (*remote.AppVersion, error) {
	f.sent = versionName
	return f.version, f.err
}

type fixture struct {
	manager  *Manager
	store    *kv.MemoryStore
	layout   paths.Layout
	stats    *testutil.MockReporter
	download *fakeDownloader
	metrics  *monitoring.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	layout := paths.New(
		filepath.Join(root, "hot"),
		filepath.Join(root, "persist"),
		filepath.Join(root, "tmp"),
		filepath.Join(root, "public"),
	)

	f := &fixture{
		store:    kv.NewMemoryStore(),
		layout:   layout,
		stats:    testutil.NewMockReporter(t),
		download: &fakeDownloader{archive: testutil.WriteZip(t, root, "site.zip", testutil.WrappedSite("1.0.0")), chunks: 3},
		metrics:  monitoring.NewMetrics(prometheus.NewRegistry()),
	}
	f.manager = NewManager(Options{
		Store:      f.store,
		Layout:     layout,
		Downloader: f.download,
		Stats:      f.stats,
		Metrics:    f.metrics,
	})
	return f
}

func (f *fixture) install(t *testing.T, version string) bundle.Info {
	t.Helper()
	info, err := f.manager.Download(context.Background(), "https://example.test/site.zip", version)
	require.NoError(t, err)
	return info
}

func TestDownloadInstallsPendingBundle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	assert.Equal(t, bundle.StatusPending, info.Status)
	assert.Equal(t, "1.0.0", info.Version)
	assert.False(t, info.Downloaded.IsZero())

	assert.FileExists(t, filepath.Join(f.layout.Hot(info.ID), "index.html"))
	assert.FileExists(t, filepath.Join(f.layout.Persist(info.ID), "index.html"))
	assert.True(t, f.manager.BundleExists(info.ID))

	stored := f.manager.BundleInfo(ctx, info.ID)
	assert.Equal(t, info.Version, stored.Version)
	assert.Equal(t, bundle.StatusPending, stored.Status)

	tmp, err := os.ReadDir(f.layout.TempRoot)
	require.NoError(t, err)
	assert.Empty(t, tmp, "scratch files left behind")
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Downloads.WithLabelValues(monitoring.ResultSuccess)))
}

func TestDownloadProgressSequence(t *testing.T) {
	f := newFixture(t)

	var mu sync.Mutex
	var seen []int
	unsubscribe := f.manager.OnProgress(func(ev ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, ev.Percent)
	})
	defer unsubscribe()

	f.install(t, "1.0.0")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 29, 49, 70, 71, 85, 100}, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Contains(t, seen, ProgressDownloaded)
	assert.Contains(t, seen, ProgressHotInstalled)
	assert.Equal(t, ProgressComplete, seen[len(seen)-1])
}

func TestOnProgressUnsubscribe(t *testing.T) {
	f := newFixture(t)

	calls := 0
	unsubscribe := f.manager.OnProgress(func(ProgressEvent) { calls++ })
	unsubscribe()
	unsubscribe()

	f.install(t, "1.0.0")
	assert.Zero(t, calls)
}

func TestDownloadFailureLeavesDownloadingRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.download.err = remote.ErrNetwork

	info, err := f.manager.Download(ctx, "https://example.test/site.zip", "2.0.0")
	require.ErrorIs(t, err, remote.ErrNetwork)
	require.NotEmpty(t, info.ID)

	stored := f.manager.BundleInfo(ctx, info.ID)
	assert.Equal(t, bundle.StatusDownloading, stored.Status)
	assert.Equal(t, "2.0.0", stored.Version)
	assert.False(t, f.manager.BundleExists(info.ID))
}

func TestDiscardIncompleteDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.download.err = remote.ErrNetwork

	info, err := f.manager.Download(ctx, "https://example.test/site.zip", "2.0.0")
	require.Error(t, err)
	require.Contains(t, f.store.Keys(), registry.InfoKey(info.ID))

	assert.False(t, f.manager.Delete(ctx, info.ID))
	assert.True(t, f.manager.Discard(ctx, info.ID))
	assert.NotContains(t, f.store.Keys(), registry.InfoKey(info.ID))
	f.stats.AssertNotCalled(t, "Send", mock.Anything, remote.ActionDelete, mock.Anything)
}

func TestDiscardInstalledBundleDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	assert.True(t, f.manager.Discard(ctx, info.ID))
	assert.NoDirExists(t, f.layout.Hot(info.ID))
	assert.NoDirExists(t, f.layout.Persist(info.ID))
	assert.NotContains(t, f.store.Keys(), registry.InfoKey(info.ID))

	assert.False(t, f.manager.Discard(ctx, bundle.IDBuiltin))
}

func TestDownloadBadArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(bad, []byte("not an archive"), 0o644))
	f.download.archive = bad

	info, err := f.manager.Download(ctx, "https://example.test/bad.zip", "3.0.0")
	require.ErrorIs(t, err, archive.ErrExtraction)
	assert.Equal(t, bundle.StatusDownloading, f.manager.BundleInfo(ctx, info.ID).Status)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.Downloads.WithLabelValues(monitoring.ResultFailure)))
}

func TestSetNotInstalled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := f.manager.CurrentBundleID(ctx)
	assert.False(t, f.manager.Set(ctx, "nonexistent"))
	assert.Equal(t, before, f.manager.CurrentBundleID(ctx))
	assert.True(t, f.manager.IsUsingBuiltin(ctx))

	f.stats.AssertCalled(t, "Send", mock.Anything, remote.ActionSetFail, "")
	f.stats.AssertNumberOfCalls(t, "Send", 1)
}

func TestSetRequiresEntryPointInBothTrees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.NoError(t, os.Remove(filepath.Join(f.layout.Hot(info.ID), "index.html")))

	assert.False(t, f.manager.Set(ctx, info.ID))
	assert.Empty(t, f.manager.CurrentBundleID(ctx))
}

func TestSetInstalled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.NoError(t, f.manager.Rollback(ctx, info))

	assert.True(t, f.manager.Set(ctx, info.ID))
	assert.Equal(t, info.ID, f.manager.CurrentBundleID(ctx))
	assert.False(t, f.manager.IsUsingBuiltin(ctx))
	assert.Equal(t, bundle.StatusPending, f.manager.CurrentBundle(ctx).Status)
	assert.Equal(t, f.layout.Persist(info.ID), f.manager.BundleDirectory(info.ID))
	f.stats.AssertCalled(t, "Send", mock.Anything, remote.ActionSet, "1.0.0")
}

// recordFailStore refuses bundle record writes once armed
type recordFailStore struct {
	*kv.MemoryStore
	armed bool
}

func (s *recordFailStore) Set(ctx context.Context, key, value string) error {
	if s.armed && strings.HasSuffix(key, "_info") {
		return errors.New("record write refused")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func TestSetSyncsPointerWhenStatusFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	info := f.install(t, "1.0.0")

	store := &recordFailStore{MemoryStore: f.store}
	m := NewManager(Options{Store: store, Layout: f.layout, Stats: f.stats, Metrics: f.metrics})
	store.armed = true
	before := f.store.Syncs()

	assert.True(t, m.Set(ctx, info.ID))
	assert.Equal(t, info.ID, m.CurrentBundleID(ctx))
	assert.Greater(t, f.store.Syncs(), before)
}

func TestSetBuiltinReverts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.True(t, f.manager.SetBundle(ctx, info))

	assert.True(t, f.manager.Set(ctx, bundle.IDBuiltin))
	assert.Empty(t, f.manager.CurrentBundleID(ctx))
	assert.True(t, f.manager.IsUsingBuiltin(ctx))
	assert.Equal(t, f.layout.BuiltinPath, f.manager.BundleDirectory(f.manager.CurrentBundleID(ctx)))
}

func TestDeleteRemovesTreesAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	assert.True(t, f.manager.Delete(ctx, info.ID))

	assert.NoDirExists(t, f.layout.Hot(info.ID))
	assert.NoDirExists(t, f.layout.Persist(info.ID))
	assert.NotContains(t, f.store.Keys(), registry.InfoKey(info.ID))

	after := f.manager.BundleInfo(ctx, info.ID)
	assert.Equal(t, bundle.StatusPending, after.Status)
	assert.Empty(t, after.Version)
	assert.True(t, after.Downloaded.IsZero())
	f.stats.AssertCalled(t, "Send", mock.Anything, remote.ActionDelete, "1.0.0")
}

func TestDeleteToleratesMissingHotTree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.NoError(t, os.RemoveAll(f.layout.Hot(info.ID)))

	assert.True(t, f.manager.Delete(ctx, info.ID))
	assert.NotContains(t, f.store.Keys(), registry.InfoKey(info.ID))
}

func TestDeleteKeepsRecordWhenPersistMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.NoError(t, os.RemoveAll(f.layout.Persist(info.ID)))

	assert.False(t, f.manager.Delete(ctx, info.ID))
	assert.Contains(t, f.store.Keys(), registry.InfoKey(info.ID))
	assert.Equal(t, "1.0.0", f.manager.BundleInfo(ctx, info.ID).Version)
}

func TestDeleteRefusesBuiltin(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.manager.Delete(context.Background(), bundle.IDBuiltin))
	f.stats.AssertNotCalled(t, "Send", mock.Anything, remote.ActionDelete, mock.Anything)
}

func TestDeleteRejectsEscapingID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outside := filepath.Join(filepath.Dir(f.layout.PersistRoot), "keep")
	require.NoError(t, os.MkdirAll(outside, 0o755))

	assert.False(t, f.manager.Delete(ctx, "../keep"))
	assert.DirExists(t, outside)
	assert.False(t, f.manager.Set(ctx, "../keep"))
	assert.False(t, f.manager.SetNextVersion(ctx, "../keep"))
}

func TestDownloadRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info, err := f.manager.Download(ctx, "file:///etc/passwd", "1.0.0")
	assert.ErrorIs(t, err, utils.ErrInvalid)
	assert.Empty(t, info.ID)

	_, err = f.manager.Download(ctx, "https://example.test/site.zip", "1.0\n")
	assert.ErrorIs(t, err, utils.ErrInvalid)
	assert.Empty(t, f.store.Keys())
}

func TestCommitAndRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.manager.FallbackVersion(ctx).IsBuiltin())

	first := f.install(t, "1.0.0")
	second := f.install(t, "2.0.0")

	require.NoError(t, f.manager.Commit(ctx, first))
	assert.Equal(t, bundle.StatusSuccess, f.manager.BundleInfo(ctx, first.ID).Status)
	assert.Equal(t, first.ID, f.manager.FallbackVersion(ctx).ID)

	require.NoError(t, f.manager.Rollback(ctx, second))
	assert.Equal(t, bundle.StatusError, f.manager.BundleInfo(ctx, second.ID).Status)
	assert.Equal(t, first.ID, f.manager.FallbackVersion(ctx).ID)
}

func TestRollbackKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.True(t, f.manager.Set(ctx, info.ID))
	require.NoError(t, f.manager.Rollback(ctx, info))
	assert.Equal(t, info.ID, f.manager.CurrentBundleID(ctx))
}

func TestCommitRejectsSentinels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.manager.Commit(ctx, bundle.Builtin()), ErrBuiltin)
	assert.ErrorIs(t, f.manager.Rollback(ctx, bundle.Unknown()), ErrBuiltin)
}

func TestResetRestoresDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	info := f.install(t, "1.0.0")
	require.True(t, f.manager.Set(ctx, info.ID))
	require.NoError(t, f.manager.Commit(ctx, info))
	require.True(t, f.manager.SetNextVersion(ctx, info.ID))

	stats := testutil.NewMockReporter(t)
	f.manager.stats = stats
	require.NoError(t, f.manager.Reset(ctx, false))

	assert.Empty(t, f.manager.CurrentBundleID(ctx))
	assert.True(t, f.manager.FallbackVersion(ctx).IsBuiltin())
	_, ok := f.manager.NextVersion(ctx)
	assert.False(t, ok)

	stats.AssertNumberOfCalls(t, "Send", 1)
	stats.AssertCalled(t, "Send", mock.Anything, remote.ActionReset, "")
}

func TestResetInternalIsSilent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Reset(context.Background(), true))
	f.stats.AssertNumberOfCalls(t, "Send", 0)
}

func TestNextVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, ok := f.manager.NextVersion(ctx)
	assert.False(t, ok)
	assert.False(t, f.manager.SetNextVersion(ctx, "missing"))

	info := f.install(t, "1.0.0")
	require.NoError(t, f.manager.Rollback(ctx, info))
	require.True(t, f.manager.SetNextVersion(ctx, info.ID))

	next, ok := f.manager.NextVersion(ctx)
	require.True(t, ok)
	assert.Equal(t, info.ID, next.ID)
	assert.Equal(t, bundle.StatusPending, next.Status)

	assert.True(t, f.manager.SetNextVersion(ctx, ""))
	_, ok = f.manager.NextVersion(ctx)
	assert.False(t, ok)
}

func TestBuiltinNeverStored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.manager.Commit(ctx, bundle.Builtin())
	f.manager.Set(ctx, bundle.IDBuiltin)
	require.NoError(t, f.manager.Reset(ctx, true))
	require.NoError(t, f.manager.SetVersionName(ctx, bundle.IDBuiltin, "9.9.9"))

	info := f.manager.BundleInfo(ctx, bundle.IDBuiltin)
	assert.Equal(t, bundle.StatusSuccess, info.Status)
	assert.Empty(t, info.Version)
	assert.NotContains(t, f.store.Keys(), registry.InfoKey(bundle.IDBuiltin))
	assert.NotContains(t, f.store.Keys(), registry.InfoKey(bundle.IDUnknown))
}

func TestListAndFindByVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Empty(t, f.manager.List(ctx))

	first := f.install(t, "1.0.0")
	second := f.install(t, "2.0.0")
	require.NoError(t, f.manager.SetVersionName(ctx, second.ID, "2.0.1"))

	ids := make([]string, 0, 2)
	for _, info := range f.manager.List(ctx) {
		ids = append(ids, info.ID)
	}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	found, ok := f.manager.BundleInfoByVersionName(ctx, "2.0.1")
	require.True(t, ok)
	assert.Equal(t, second.ID, found.ID)

	_, ok = f.manager.BundleInfoByVersionName(ctx, "2.0.0")
	assert.False(t, ok)
}

func TestCheckLatest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	latest := &fakeLatest{version: &remote.AppVersion{Version: "2.0.0", URL: "https://example.test/2.zip"}}
	f.manager.latest = latest

	info := f.install(t, "1.0.0")
	require.True(t, f.manager.Set(ctx, info.ID))

	got := f.manager.CheckLatest(ctx, "https://example.test/latest")
	require.NotNil(t, got)
	assert.Equal(t, "2.0.0", got.Version)
	assert.Equal(t, "1.0.0", latest.sent)

	latest.err = errors.New("boom")
	assert.Nil(t, f.manager.CheckLatest(ctx, "https://example.test/latest"))
}

func TestPaths(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, filepath.Join(f.layout.HotRoot, "abc"), f.manager.PathHot("abc"))
	assert.Equal(t, filepath.Join(f.layout.PersistRoot, "abc"), f.manager.PathPersist("abc"))
	assert.Equal(t, f.layout.BuiltinPath, f.manager.BundleDirectory(""))
}

func TestTotalPercent(t *testing.T) {
	assert.Equal(t, 10, totalPercent(0, ProgressTransferMin, ProgressTransferMax))
	assert.Equal(t, 40, totalPercent(50, ProgressTransferMin, ProgressTransferMax))
	assert.Equal(t, 70, totalPercent(100, ProgressTransferMin, ProgressTransferMax))
}
