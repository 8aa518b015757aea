package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WritesFileAndReturnsRef(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	ref, err := mgr.Store("photo.PNG", []byte("image bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, RefPrefix))
	assert.True(t, strings.HasSuffix(ref, ".png"), "extension should be lowercased, got %s", ref)

	path, ok := mgr.Resolve(ref)
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)
}

func TestStore_UniqueNames(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		ref, err := mgr.Store("a.jpg", []byte("x"))
		require.NoError(t, err)
		require.False(t, seen[ref], "duplicate ref %s", ref)
		seen[ref] = true
	}
}

func TestStore_SanitizesHostileFilenames(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{
		"../../etc/passwd",
		"..\\..\\boot.ini",
		"noextension",
		"weird.p~ng",
		".",
	} {
		ref, err := mgr.Store(name, []byte("x"))
		require.NoError(t, err, "name %q", name)

		path, ok := mgr.Resolve(ref)
		require.True(t, ok, "name %q", name)
		// The stored file must land directly inside the asset directory.
		assert.Equal(t, mgr.BasePath(), filepath.Dir(path), "name %q escaped the asset area", name)
	}
}

func TestRelease_RemovesFile(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	ref, err := mgr.Store("a.png", []byte("x"))
	require.NoError(t, err)
	path, _ := mgr.Resolve(ref)

	mgr.Release(ref)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRelease_MissingFileIsNotAnError(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	// Must not panic or misbehave.
	mgr.Release(RefPrefix + "01ABSENT.png")
	mgr.Release("not-a-ref")
}

func TestResolve_RejectsTraversal(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, ref := range []string{
		"/uploads/../secret.txt",
		"/uploads/..",
		"/uploads/.",
		"/uploads/",
		"/uploads/sub/dir.png",
		"/elsewhere/file.png",
		"",
	} {
		_, ok := mgr.Resolve(ref)
		assert.False(t, ok, "ref %q should not resolve", ref)
	}
}
