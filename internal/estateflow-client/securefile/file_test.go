package securefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")

	require.NoError(t, WriteFile(path, []byte(`[]`), 0o600, 0o700))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
	assert.True(t, Exists(path))
	assert.False(t, Exists(path+".tmp"), "temp file must not survive a successful write")
}

func TestAtomicWriteFileReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.json")
	require.NoError(t, AtomicWriteFile(path, []byte("old"), 0o600))
	require.NoError(t, AtomicWriteFile(path, []byte("new"), 0o600))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
}

func TestEnvFolder(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"local":       "local",
		"DEV":         "develop",
		"development": "develop",
		"production":  "",
	}
	for in, want := range cases {
		t.Setenv(EnvVar, in)
		got, err := EnvFolder()
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	t.Setenv(EnvVar, "staging")
	_, err := EnvFolder()
	assert.Error(t, err)
}

func TestConfigPathCandidatesUsesHomeAndEnvFolder(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SNAP_REAL_HOME", "")
	t.Setenv(EnvVar, "local")

	paths, err := ConfigPathCandidates("estateflow", "x.json")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.Equal(t, filepath.Join(home, ".config", "estateflow", "local", "x.json"), paths[0])
}

func TestConfigPathCandidatesRejectsEmptyNames(t *testing.T) {
	_, err := candidatesFor("", "x.json", "")
	assert.Error(t, err)
	_, err = candidatesFor("app", "", "")
	assert.Error(t, err)
}

func TestResolvePathPrefersExisting(t *testing.T) {
	snap := t.TempDir()
	home := t.TempDir()
	t.Setenv("SNAP_REAL_HOME", snap)
	t.Setenv("HOME", home)
	t.Setenv(EnvVar, "")

	first, err := ResolvePath("estateflow", "requests.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(snap, ".config", "estateflow", "requests.json"), first)

	existing := filepath.Join(home, ".config", "estateflow", "requests.json")
	require.NoError(t, WriteFile(existing, []byte("[]"), 0o600, 0o700))
	got, err := ResolvePath("estateflow", "requests.json")
	require.NoError(t, err)
	assert.Equal(t, existing, got)
}
