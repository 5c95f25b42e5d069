package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, root string) []FileInfo {
	t.Helper()
	files, errs := Walk(root)
	var got []FileInfo
	for f := range files {
		got = append(got, f)
	}
	require.NoError(t, <-errs)
	return got
}

func TestWalkFindsOnlyPDFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "B.PDF"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o644))

	got := collect(t, dir)

	require.Len(t, got, 2)
	names := []string{got[0].RelPath, got[1].RelPath}
	assert.Contains(t, names, "a.pdf")
	assert.Contains(t, names, "B.PDF")
}

func TestWalkSkipsTrashAndHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"Trash/InvalidPDF", ".cache", "_tmp", "TI/datasheet"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, sub, "doc.pdf"), []byte("%PDF"), 0o644))
	}

	got := collect(t, dir)

	require.Len(t, got, 1)
	assert.Equal(t, "TI/datasheet/doc.pdf", got[0].RelPath)
}
