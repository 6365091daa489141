package inventory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestSource_FixedPath(t *testing.T) {
	t.Parallel()

	src := Source{Dir: t.TempDir(), FixedPath: "/data/master.db"}
	got, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "/data/master.db", got)
}

func TestSource_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := Source{Dir: t.TempDir()}.Resolve()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSource_UnreadableDir(t *testing.T) {
	t.Parallel()

	_, err := Source{Dir: filepath.Join(t.TempDir(), "missing")}.Resolve()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}

func TestSource_NewestWins(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	older := filepath.Join(dir, "inventory_2026-10-14.db")
	newer := filepath.Join(dir, "inventory_2026-10-15.db")

	touch(t, older)
	time.Sleep(20 * time.Millisecond)
	touch(t, newer)

	src := Source{Dir: dir}
	got, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	// re-stamping the older file moves it to the front on every platform
	time.Sleep(20 * time.Millisecond)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(older, future, future))

	got, err = src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, older, got)
}

func TestSource_SkipsSideFilesAndDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snapshot := filepath.Join(dir, "inventory.db")
	touch(t, snapshot)
	time.Sleep(20 * time.Millisecond)

	touch(t, filepath.Join(dir, "inventory.db-wal"))
	touch(t, filepath.Join(dir, "inventory.db-shm"))
	touch(t, filepath.Join(dir, "inventory.db-journal"))
	touch(t, filepath.Join(dir, ".DS_Store"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o750))

	got, err := Source{Dir: dir}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
}
