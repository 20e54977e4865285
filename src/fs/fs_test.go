package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCleanDirectory(t *testing.T) {
	pfs, err := NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, pfs.WriteFile(strings.NewReader("stale"), "plz-out/gen/lib/old.txt", 0644))
	assert.True(t, pfs.IsFile("plz-out/gen/lib/old.txt"))

	require.NoError(t, pfs.MakeCleanDirectory("plz-out/gen/lib"))
	assert.True(t, pfs.IsDir("plz-out/gen/lib"))
	assert.False(t, pfs.Exists("plz-out/gen/lib/old.txt"))
	entries, err := os.ReadDir(pfs.Resolve("plz-out/gen/lib"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadFileIfItExists(t *testing.T) {
	pfs, err := NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	b, exists, err := pfs.ReadFileIfItExists("nope.json")
	assert.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, b)

	require.NoError(t, pfs.WriteFile(strings.NewReader("[]"), "results.json", 0))
	b, exists, err = pfs.ReadFileIfItExists("results.json")
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "[]", string(b))
}

func TestResolveAndRelativize(t *testing.T) {
	pfs, err := NewProjectFilesystem("/repo")
	require.NoError(t, err)
	assert.Equal(t, "/repo/src/core", pfs.Resolve("src/core"))
	assert.Equal(t, "/usr/bin", pfs.Resolve("/usr/bin"))
	assert.Equal(t, "src/core", pfs.Relativize("/repo/src/core"))
	assert.Equal(t, "/usr/bin", pfs.Relativize("/usr/bin"))
}

func TestFiles(t *testing.T) {
	pfs, err := NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"pkg/b.py", "pkg/a.py", "pkg/sub/c.py"} {
		require.NoError(t, pfs.WriteFile(strings.NewReader(name), name, 0644))
	}
	files, err := pfs.Files("pkg")
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a.py", "pkg/b.py", "pkg/sub/c.py"}, files)

	files, err = pfs.Files("pkg/a.py")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("pkg", "a.py")}, files)
}
