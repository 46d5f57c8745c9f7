package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContactsRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg", "contacts.json")
	c, err := LoadContacts(path)
	require.NoError(t, err)
	_, ok := c.Lookup("alice")
	require.False(t, ok)

	require.NoError(t, c.Set("Alice", "alice@example.com"))
	require.NoError(t, c.Set("Bob", " bob@example.com "))
	require.Error(t, c.Set("Carol", "not-an-address"))

	reloaded, err := LoadContacts(path)
	require.NoError(t, err)
	addr, ok := reloaded.Lookup("ALICE ")
	require.True(t, ok)
	require.Equal(t, "alice@example.com", addr)
	require.Equal(t, []string{"alice", "bob"}, reloaded.Names())

	addr, ok = reloaded.Lookup("dana@example.com")
	require.True(t, ok, "addresses pass through")
	require.Equal(t, "dana@example.com", addr)
}

func TestContactsRejectsBrokenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "contacts.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o600))
	_, err := LoadContacts(path)
	require.Error(t, err)
}
