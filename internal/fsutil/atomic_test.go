package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string   `json:"name"`
	Codes []string `json:"codes"`
}

func TestWriteReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "record.json")

	in := record{Name: "admin", Codes: []string{"A", "B"}}
	require.NoError(t, WriteRecord(path, in, 0o600))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	var out record
	require.NoError(t, ReadRecord(path, &out))
	assert.Equal(t, in, out)
}

func TestWriteRecord_ReplacesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	require.NoError(t, WriteRecord(path, record{Name: "first"}, 0o600))
	require.NoError(t, WriteRecord(path, record{Name: "second"}, 0o600))

	var out record
	require.NoError(t, ReadRecord(path, &out))
	assert.Equal(t, "second", out.Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "record.json", entries[0].Name())
}

func TestReadRecord_Missing(t *testing.T) {
	var out record
	err := ReadRecord(filepath.Join(t.TempDir(), "absent.json"), &out)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestReadRecord_Tampered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, WriteRecord(path, record{Name: "admin"}, 0o600))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(raw), "admin", "root!", 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o600))

	var out record
	assert.ErrorIs(t, ReadRecord(path, &out), ErrChecksum)
}

func TestReadRecord_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"checksum":"ab`), 0o600))

	var out record
	assert.ErrorIs(t, ReadRecord(path, &out), ErrChecksum)
}

func TestRemoveRecord_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "record.json")
	require.NoError(t, WriteRecord(path, record{Name: "x"}, 0o600))

	require.NoError(t, RemoveRecord(path))
	require.NoError(t, RemoveRecord(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
