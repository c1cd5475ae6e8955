package cli

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, writeFileAtomic(fs, "/exports/nested/history.json", []byte("first")))
	got, err := afero.ReadFile(fs, "/exports/nested/history.json")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	require.NoError(t, writeFileAtomic(fs, "/exports/nested/history.json", []byte("second")))
	got, err = afero.ReadFile(fs, "/exports/nested/history.json")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := afero.ReadDir(fs, "/exports/nested")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must be cleaned up")
	assert.Equal(t, "history.json", entries[0].Name())
}

func TestWriteFileAtomic_ReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := writeFileAtomic(fs, "/out/history.json", []byte("x"))
	assert.Error(t, err)
}
