package msgcat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmbeddedDefaults(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	for _, key := range []string{KeyGreeting, KeyGreetingSpectator, KeyFarewell, KeyFarewellAborted} {
		assert.True(t, c.Has(key), key)
	}

	out, err := c.Render(KeyGreeting, map[string]string{"Opponent": "bob", "Bot": "CheeseBot"})
	require.NoError(t, err)
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "CheeseBot")
}

func TestRender_MissingDataIsError(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)

	_, err = c.Render(KeyGreeting, map[string]string{"Bot": "CheeseBot"})
	assert.Error(t, err)

	_, err = c.Render("chat.nope", nil)
	assert.Error(t, err)
}

func TestNew_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-chat.yaml"), []byte("chat:\n  farewell: \"gg {{.Opponent}}\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	c, err := New(dir)
	require.NoError(t, err)

	out, err := c.Render(KeyFarewell, map[string]string{"Opponent": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "gg bob", out)
	assert.True(t, c.Has(KeyGreeting), "untouched defaults survive")
}

func TestNew_DuplicateOverrideKeys(t *testing.T) {
	dir := t.TempDir()
	body := []byte("chat:\n  farewell: \"bye\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644))

	_, err := New(dir)
	assert.ErrorContains(t, err, "duplicate override key")
}

func TestNew_RejectsNonStringLeaves(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("chat:\n  farewell: 3\n"), 0o644))

	_, err := New(dir)
	assert.Error(t, err)
}
