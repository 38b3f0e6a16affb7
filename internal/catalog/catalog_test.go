package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinStoreLookup(t *testing.T) {
	store := NewBuiltinStore()
	ctx := context.Background()

	d, ok, err := store.Density(ctx, "Concrete")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2400", d.String())

	// Lookup is case-insensitive and trims whitespace.
	d2, ok, err := store.Density(ctx, "  CONCRETE ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, d.Equal(d2))

	_, ok, err = store.Density(ctx, "Unobtainium")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStoreOverridesBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "densities.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "Concrete", "density_kg_m3": 2350},
		{"name": "Hempcrete", "density_kg_m3": 330}
	]`), 0o644))

	store, err := NewFileStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	d, ok, err := store.Density(ctx, "concrete")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2350", d.String())

	d, ok, err = store.Density(ctx, "Hempcrete")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "330", d.String())

	// Builtin entries not overridden stay available.
	_, ok, err = store.Density(ctx, "Steel")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStoreErrors(t *testing.T) {
	_, err := NewFileStore("/nonexistent/densities.json")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "a list"}`), 0o644))
	_, err = NewFileStore(bad)
	assert.Error(t, err)

	negative := filepath.Join(t.TempDir(), "neg.json")
	require.NoError(t, os.WriteFile(negative, []byte(`[{"name": "X", "density_kg_m3": -1}]`), 0o644))
	_, err = NewFileStore(negative)
	assert.Error(t, err)

	unnamed := filepath.Join(t.TempDir(), "unnamed.json")
	require.NoError(t, os.WriteFile(unnamed, []byte(`[{"density_kg_m3": 100}]`), 0o644))
	_, err = NewFileStore(unnamed)
	assert.Error(t, err)
}

func TestEntriesSorted(t *testing.T) {
	store := NewBuiltinStore()
	entries := Entries(store)
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.LessOrEqual(t, entries[i-1].Name, entries[i].Name)
	}
}
