package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveAndLoad(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("state_doc1.json", payload{Name: "doc1", Count: 3}))

	var got payload
	found, err := store.Load("state_doc1.json", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "doc1", Count: 3}, got)
}

func TestLoadMissing(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	var got payload
	found, err := store.Load("state_nope.json", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state_bad.json"), []byte("{not json"), 0644))

	var got payload
	_, err = store.Load("state_bad.json", &got)
	assert.Error(t, err)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("form_a.json", payload{Count: 1}))
	require.NoError(t, store.Save("form_a.json", payload{Count: 2}))

	var got payload
	found, err := store.Load("form_a.json", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, got.Count)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveDoesNotEscapeHTML(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save("state_html.json", payload{Name: "<b>"}))

	data, err := os.ReadFile(store.Path("state_html.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<b>")
}

func TestList(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("state_b.json", payload{}))
	require.NoError(t, store.Save("state_a.json", payload{}))
	require.NoError(t, store.Save("form_x.json", payload{}))

	assert.Equal(t, []string{"a", "b"}, store.List("state_"))
	assert.Equal(t, []string{"x"}, store.List("form_"))
	assert.Empty(t, store.List("buttons_"))
}
