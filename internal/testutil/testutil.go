// Package testutil provides archive builders and mocks shared by package tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ZipBytes builds a zip archive in memory. Names ending in "/" become
// directory entries.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range sortedKeys(files) {
		f, err := w.Create(name)
		require.NoError(t, err)
		if !strings.HasSuffix(name, "/") {
			_, err = f.Write([]byte(files[name]))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// WriteZip writes a zip archive to dir/name and returns its path
func WriteZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, ZipBytes(t, files), 0644))
	return path
}

// WriteTarGz writes a gzip-compressed tar archive to dir/name
func WriteTarGz(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, n := range sortedKeys(files) {
		if strings.HasSuffix(n, "/") {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: n, Typeflag: tar.TypeDir, Mode: 0755}))
			continue
		}
		body := files[n]
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: n, Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(body))}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

// WrappedSite is a typical web build wrapped in a single root folder
func WrappedSite(version string) map[string]string {
	return map[string]string{
		"app/":               "",
		"app/index.html":     "<html>" + version + "</html>",
		"app/assets/main.js": "console.log('" + version + "')",
	}
}

// FlatSite is a web build with the entry point at the archive root
func FlatSite(version string) map[string]string {
	return map[string]string{
		"index.html":     "<html>" + version + "</html>",
		"assets/main.js": "console.log('" + version + "')",
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MockReporter records stats events
type MockReporter struct {
	mock.Mock
}

// Send mocks the Send method
func (m *MockReporter) Send(ctx context.Context, action, versionName string) {
	m.Called(ctx, action, versionName)
}

// NewMockReporter creates a reporter that accepts any event
func NewMockReporter(t *testing.T) *MockReporter {
	t.Helper()
	m := new(MockReporter)
	m.On("Send", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return m
}
