package uploads

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestLocalStorage_SaveGetDelete(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base, nil)
	require.NoError(t, err)

	rel, err := store.Save(KindImport, "run-1.csv", strings.NewReader("Name,Affiliations\n"))
	require.NoError(t, err)
	assert.Equal(t, "imports/run-1.csv", rel)

	f, info, err := store.Get(rel)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "Name,Affiliations\n", string(data))
	assert.Equal(t, int64(18), info.Size())

	require.NoError(t, store.Delete(rel))
	_, _, err = store.Get(rel)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(rel), "deleting twice is fine")
}

func TestLocalStorage_RejectsBadNames(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Save(KindImport, "../escape.csv", strings.NewReader("x"))
	assert.Error(t, err)
	_, err = store.Save(KindImport, "", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestLocalStorage_GetFullPathStaysInBase(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base, nil)
	require.NoError(t, err)

	full, err := store.GetFullPath("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, store.basePath))
	assert.Equal(t, filepath.Join(store.basePath, "etc", "passwd"), full)
}

func TestLocalStorage_FailedCopyLeavesNothing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Save(KindImport, "partial.csv", failingReader{})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(store.basePath, "imports", "partial.csv"))
	assert.True(t, os.IsNotExist(statErr))
}
