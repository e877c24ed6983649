package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/updater/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayout(t *testing.T) paths.Layout {
	t.Helper()
	root := t.TempDir()
	return paths.New(
		filepath.Join(root, "docs", "versions"),
		filepath.Join(root, "lib", "snapshots"),
		filepath.Join(root, "tmp"),
		filepath.Join(root, "public"),
	)
}

func TestFlattenCollapsesWrapper(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	archivePath := testutil.WriteZip(t, dir, "bundle", testutil.WrappedSite("1.0.0"))

	scratch := filepath.Join(dir, "scratch")
	require.NoError(t, Extract(ctx, archivePath, scratch))

	dest := filepath.Join(dir, "dest")
	collapsed, err := Flatten(scratch, dest, paths.EntryPoint)
	require.NoError(t, err)
	assert.True(t, collapsed)

	assert.FileExists(t, filepath.Join(dest, "index.html"))
	assert.FileExists(t, filepath.Join(dest, "assets", "main.js"))
	assert.NoDirExists(t, filepath.Join(dest, "app"))
}

func TestFlattenMovesMultipleEntriesAsIs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	archivePath := testutil.WriteZip(t, dir, "bundle", map[string]string{
		"app/index.html": "<html/>",
		"README.md":      "readme",
	})

	scratch := filepath.Join(dir, "scratch")
	require.NoError(t, Extract(ctx, archivePath, scratch))

	dest := filepath.Join(dir, "dest")
	collapsed, err := Flatten(scratch, dest, paths.EntryPoint)
	require.NoError(t, err)
	assert.False(t, collapsed)

	assert.FileExists(t, filepath.Join(dest, "app", "index.html"))
	assert.FileExists(t, filepath.Join(dest, "README.md"))
	assert.NoDirExists(t, scratch, "scratch is consumed by the move")
}

func TestFlattenKeepsEntryPointAtRoot(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "scratch")
	require.NoError(t, os.MkdirAll(scratch, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "index.html"), []byte("x"), 0644))

	dest := filepath.Join(dir, "dest")
	collapsed, err := Flatten(scratch, dest, paths.EntryPoint)
	require.NoError(t, err)
	assert.False(t, collapsed)
	assert.FileExists(t, filepath.Join(dest, "index.html"))
}

func TestFlattenExistingDestination(t *testing.T) {
	dir := t.TempDir()
	scratch := filepath.Join(dir, "scratch")
	dest := filepath.Join(dir, "dest")
	require.NoError(t, os.MkdirAll(filepath.Join(scratch, "a"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scratch, "b.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(dest, 0755))

	_, err := Flatten(scratch, dest, paths.EntryPoint)
	assert.ErrorIs(t, err, ErrStructure)
}

func TestInstallWritesBothTrees(t *testing.T) {
	ctx := context.Background()
	layout := newLayout(t)
	inst := NewInstaller(layout, nil)
	archivePath := testutil.WriteZip(t, t.TempDir(), "bundle", testutil.WrappedSite("1.0.0"))

	assert.False(t, inst.Exists("b1"))
	require.NoError(t, inst.Install(ctx, archivePath, "b1"))
	assert.True(t, inst.Exists("b1"))

	hotIndex := layout.Entry(layout.Hot("b1"))
	persistIndex := layout.Entry(layout.Persist("b1"))
	hot, err := os.ReadFile(hotIndex)
	require.NoError(t, err)
	persist, err := os.ReadFile(persistIndex)
	require.NoError(t, err)
	assert.Equal(t, hot, persist)

	hotInfo, err := os.Stat(hotIndex)
	require.NoError(t, err)
	persistInfo, err := os.Stat(persistIndex)
	require.NoError(t, err)
	assert.False(t, os.SameFile(hotInfo, persistInfo), "trees must be physically separate copies")

	entries, err := os.ReadDir(layout.TempRoot)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch extractions are cleaned up")
}

func TestInstallTarGz(t *testing.T) {
	ctx := context.Background()
	layout := newLayout(t)
	inst := NewInstaller(layout, nil)
	archivePath := testutil.WriteTarGz(t, t.TempDir(), "bundle", testutil.FlatSite("2.0.0"))

	require.NoError(t, inst.Install(ctx, archivePath, "b2"))
	assert.True(t, inst.Exists("b2"))
}

func TestInstallRejectsNonArchive(t *testing.T) {
	ctx := context.Background()
	layout := newLayout(t)
	inst := NewInstaller(layout, nil)

	path := filepath.Join(t.TempDir(), "bundle")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an archive"), 0644))

	err := inst.Install(ctx, path, "b3")
	assert.ErrorIs(t, err, ErrExtraction)
	assert.False(t, inst.Exists("b3"))
}

func TestExtractRejectsZipSlip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	archivePath := testutil.WriteZip(t, dir, "evil", map[string]string{
		"../escape.txt": "pwned",
	})

	err := Extract(ctx, archivePath, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, ErrExtraction)
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestExistsRequiresEntryPointInBothTrees(t *testing.T) {
	layout := newLayout(t)
	inst := NewInstaller(layout, nil)

	require.NoError(t, os.MkdirAll(layout.Hot("b4"), 0755))
	require.NoError(t, os.MkdirAll(layout.Persist("b4"), 0755))
	require.NoError(t, os.WriteFile(layout.Entry(layout.Hot("b4")), []byte("x"), 0644))
	assert.False(t, inst.Exists("b4"))

	require.NoError(t, os.WriteFile(layout.Entry(layout.Persist("b4")), []byte("x"), 0644))
	assert.True(t, inst.Exists("b4"))
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "c.txt"), []byte("deep"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0644))

	dest := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyTree(src, dest))

	data, err := os.ReadFile(filepath.Join(dest, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
	assert.FileExists(t, filepath.Join(dest, "top.txt"))
}

func TestTreeString(t *testing.T) {
	assert.Equal(t, "hot", TreeHot.String())
	assert.Equal(t, "persist", TreePersist.String())
}
