package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSupported(t *testing.T) {
	require.True(t, Supported("fonts.zip"))
	require.True(t, Supported("tool-1.2.3.tar.gz"))
	require.True(t, Supported("bundle.7z"))
	require.True(t, Supported("data.tar.xz"))
	require.False(t, Supported("binary"))
	require.False(t, Supported("notes.txt"))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestExtractZip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "fonts.zip")
	writeZip(t, src, map[string]string{
		"fonts/Regular.ttf": "regular",
		"fonts/Bold.ttf":    "bold",
	})

	dest := t.TempDir()
	top, err := Extract(src, dest)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dest, "fonts"), top)

	content, err := os.ReadFile(filepath.Join(dest, "fonts", "Bold.ttf"))
	require.NoError(t, err)
	require.Equal(t, "bold", string(content))
}

func TestExtractZipRejectsEscapingEntries(t *testing.T) {
	src := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, src, map[string]string{
		"../escape.txt": "gotcha",
	})

	_, err := Extract(src, t.TempDir())
	require.ErrorContains(t, err, "escapes destination")
}

func TestExtractTarGz(t *testing.T) {
	src := filepath.Join(t.TempDir(), "tool.tar.gz")
	f, err := os.Create(src)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "tool/", Typeflag: tar.TypeDir, Mode: 0755}))
	body := []byte("#!/bin/sh\n")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "tool/run.sh", Typeflag: tar.TypeReg, Mode: 0755, Size: int64(len(body))}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	dest := t.TempDir()
	top, err := Extract(src, dest)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dest, "tool"), top)

	content, err := os.ReadFile(filepath.Join(dest, "tool", "run.sh"))
	require.NoError(t, err)
	require.Equal(t, string(body), string(content))
}

func TestExtractUnsupportedFormat(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data.rar")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	_, err := Extract(src, t.TempDir())
	require.ErrorContains(t, err, "unsupported archive format")
}
