package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindExecutable(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "zinc")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notexec"), []byte("hello"), 0644))

	path, err := FindExecutable("zinc", "/nonexistent:"+dir)
	assert.NoError(t, err)
	assert.Equal(t, exe, path)

	path, err = FindExecutable(exe, "")
	assert.NoError(t, err)
	assert.Equal(t, exe, path)

	_, err = FindExecutable("notexec", dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = FindExecutable(filepath.Join(dir, "notexec"), "")
	assert.ErrorIs(t, err, os.ErrPermission)
}
