package core

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleManyEntries(t *testing.T) {
	const numFiles = 1000
	entries := make([]Entry, numFiles)
	for i := range entries {
		entries[i] = Entry{
			RelPath: fmt.Sprintf("dir%d/file%d_upgraded_v43.prproj", i%10, i),
			Data:    []byte(fmt.Sprintf("content %d", i)),
		}
	}

	input := filepath.Join(t.TempDir(), "many.agcp")
	data, err := BuildBundle("many", entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(input, data, 0o644))

	outDir := filepath.Join(t.TempDir(), "out")
	paths, err := ExtractBundle(input, outDir)
	require.NoError(t, err)
	require.Len(t, paths, numFiles)

	for i, p := range paths {
		got, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, entries[i].Data, got)
	}
}

func TestUnicodeNames(t *testing.T) {
	names := []string{
		"😀-emoji-dir/emoji-file-😎_upgraded_v43.prproj",
		"中文目录/文件_upgraded_v43.prproj",
		"Русская-папка/файл_upgraded_v43.prproj",
	}

	var bundleEntries []Entry
	var zipEntries []ZipEntry
	for _, n := range names {
		bundleEntries = append(bundleEntries, Entry{RelPath: n, Data: []byte(n)})
		zipEntries = append(zipEntries, ZipEntry{Name: n, Data: []byte(n)})
	}

	bundle, err := BuildBundle("unicode", bundleEntries)
	require.NoError(t, err)
	_, decoded, err := ReadBundle(bundle)
	require.NoError(t, err)
	for i, e := range decoded {
		assert.Equal(t, names[i], e.RelPath)
		assert.Equal(t, []byte(names[i]), e.Data)
	}

	archive, err := BuildArchive(zipEntries)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, len(names))
	for i, f := range zr.File {
		assert.Equal(t, names[i], f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, []byte(names[i]), got)
	}
}
