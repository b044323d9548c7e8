package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testState() *State {
	return &State{
		SavedAt: time.Now().UTC().Truncate(time.Second),
		JiraURL: "https://jira.example.com",
		Cookies: []Cookie{
			{Name: "JSESSIONID", Value: "abc123", Domain: "jira.example.com", Path: "/"},
			{Name: "atlassian.xsrf.token", Value: "xyz", Domain: "jira.example.com", Path: "/"},
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Save(testState()))

	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com", st.JiraURL)
	require.Len(t, st.Cookies, 2)
	assert.Equal(t, "JSESSIONID", st.Cookies[0].Name)
	assert.Equal(t, "abc123", st.Cookies[0].Value)
}

func TestStoreFilePermissions(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testState()))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStoreCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "jiractl")
	store := NewStore(dir)

	require.NoError(t, store.Save(testState()))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCookieHeader(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testState()))

	header, ok := store.CookieHeader()
	require.True(t, ok)
	assert.Equal(t, "JSESSIONID=abc123; atlassian.xsrf.token=xyz", header)
}

func TestCookieHeaderMissingFile(t *testing.T) {
	store := NewStore(t.TempDir())

	_, ok := store.CookieHeader()
	assert.False(t, ok)
}

func TestCookieHeaderEmptyCookieList(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(&State{JiraURL: "https://jira.example.com"}))

	_, ok := store.CookieHeader()
	assert.False(t, ok)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err := store.Load()
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, store.Save(testState()))

	require.NoError(t, store.Clear())
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))

	// Clearing again is not an error.
	require.NoError(t, store.Clear())
}
