package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ij369/ipa-harbor-sub000/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "ipas"))
	require.NoError(t, err)
	return s
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestStore_Paths(t *testing.T) {
	s := newTestStore(t)
	name := "1_2.ipa"
	assert.Equal(t, filepath.Join(s.Dir(), "1_2.ipa"), s.Path(name))
	assert.Equal(t, filepath.Join(s.Dir(), "1_2.ipa.tmp"), s.PartialPath(name))
	assert.Equal(t, filepath.Join(s.Dir(), "1_2.json"), s.SidecarPath(name))
}

func TestStore_Remove(t *testing.T) {
	s := newTestStore(t)
	name := "1_2.ipa"
	touch(t, s.Path(name))
	touch(t, s.SidecarPath(name))
	touch(t, s.PartialPath(name))
	touch(t, s.Path("3_4.ipa"))

	require.NoError(t, s.Remove(name))
	assert.NoFileExists(t, s.Path(name))
	assert.NoFileExists(t, s.SidecarPath(name))
	assert.NoFileExists(t, s.PartialPath(name))
	assert.FileExists(t, s.Path("3_4.ipa"))

	// Nothing left to remove is fine.
	require.NoError(t, s.Remove(name))
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	touch(t, s.Path("1_2.ipa"))
	touch(t, s.SidecarPath("1_2.ipa"))
	touch(t, s.Path("untracked-by-any-task.ipa"))
	touch(t, filepath.Join(s.Dir(), "9_9.ipa.tmp"))
	touch(t, filepath.Join(s.Dir(), "notes.txt"))

	n, err := s.Clear()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes.txt", entries[0].Name())
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)
	touch(t, s.Path("1_2.ipa"))
	touch(t, s.SidecarPath("1_2.ipa"))
	touch(t, s.Path("3_4.ipa"))
	touch(t, s.PartialPath("5_6.ipa"))

	files, err := s.List()
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]File{}
	for _, f := range files {
		byName[f.Name] = f
	}
	assert.True(t, byName["1_2.ipa"].HasSidecar)
	assert.False(t, byName["3_4.ipa"].HasSidecar)
	assert.True(t, s.Exists("3_4.ipa"))
	assert.False(t, s.Exists("5_6.ipa"))
}

func TestNormalizeName(t *testing.T) {
	got, err := NormalizeName("1_2")
	require.NoError(t, err)
	assert.Equal(t, "1_2.ipa", got)

	got, err = NormalizeName("1_2.ipa")
	require.NoError(t, err)
	assert.Equal(t, "1_2.ipa", got)

	for _, bad := range []string{"", "../1_2.ipa", "a/b.ipa", `a\b`, ".ipa"} {
		_, err := NormalizeName(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidArtifactName, bad)
	}
}
