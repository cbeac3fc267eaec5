package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projup/pkg/codec"
)

func writeDoc(t *testing.T, path, version string) {
	t.Helper()
	data, err := codec.Compress(`<PremiereData Version="3"><Project ObjectID="1" ClassID="x" Version="` + version + `"></Project></PremiereData>`)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, filepath.Join(dir, "projects", "b.prproj"), "40")
	writeDoc(t, filepath.Join(dir, "projects", "a.prproj"), "40")
	writeDoc(t, filepath.Join(dir, "projects", "nested", "c.PRPROJ"), "40")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects", "notes.txt"), []byte("x"), 0o644))
	single := filepath.Join(dir, "loose.bin")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o644))

	paths, err := collectInputs([]string{single, filepath.Join(dir, "projects")}, ".prproj")
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "projects", "a.prproj"),
		filepath.Join(dir, "projects", "b.prproj"),
		filepath.Join(dir, "projects", "nested", "c.PRPROJ"),
	}, paths)

	_, err = collectInputs([]string{filepath.Join(dir, "missing")}, ".prproj")
	assert.Error(t, err)
}

func TestLoadInputsKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"z.prproj", "m.prproj", "a.prproj"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		paths = append(paths, p)
	}

	files, err := loadInputs(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for i, f := range files {
		assert.Equal(t, filepath.Base(paths[i]), f.Name)
		assert.Equal(t, []byte(f.Name), f.Data)
	}

	_, err = loadInputs(context.Background(), []string{filepath.Join(dir, "absent")})
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty())
}

func TestUpgradeCommandWritesArchive(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PROJUP_COUNTER_BACKEND", "file")
	t.Setenv("PROJUP_COUNTER_PATH", filepath.Join(dir, "stats.yaml"))

	writeDoc(t, filepath.Join(dir, "in", "one.prproj"), "40")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "two.prproj"), []byte("broken"), 0o644))
	outDir := filepath.Join(dir, "out")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"upgrade", "--target", "43", "--out", outDir, filepath.Join(dir, "in")})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "one.prproj: v40 -> one_upgraded_v43.prproj")
	assert.Contains(t, out.String(), "two.prproj failed")
	assert.Contains(t, out.String(), "Lifetime upgrades: 1")

	zr, err := zip.OpenReader(filepath.Join(outDir, "upgraded_projects_v43.zip"))
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 1)
	assert.Equal(t, "one_upgraded_v43.prproj", zr.File[0].Name)

	out.Reset()
	rootCmd.SetArgs([]string{"stats"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Lifetime upgrades: 1\n", out.String())

	out.Reset()
	rootCmd.SetArgs([]string{"inspect", filepath.Join(dir, "in", "one.prproj")})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "one.prproj\t40\n", out.String())
}

func TestUpgradeCommandKeepsCounterWhenWriteFails(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("PROJUP_COUNTER_BACKEND", "file")
	t.Setenv("PROJUP_COUNTER_PATH", filepath.Join(dir, "stats.yaml"))

	writeDoc(t, filepath.Join(dir, "in", "one.prproj"), "40")
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"upgrade", "--target", "43", "--format", "zip", "--prefix", "",
		"--out", filepath.Join(blocker, "out"), filepath.Join(dir, "in")})
	require.Error(t, rootCmd.Execute())
	assert.NotContains(t, out.String(), "Lifetime upgrades")

	out.Reset()
	rootCmd.SetArgs([]string{"stats"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "Lifetime upgrades: 0\n", out.String())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
