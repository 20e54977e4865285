package step

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/rulegraph/src/fs"
)

func newContext(t *testing.T) *ExecutionContext {
	pfs, err := fs.NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	return NewExecutionContext(pfs, 10*time.Second)
}

func TestShellStepDescription(t *testing.T) {
	s := NewShellStep("scala compile", "/repo", []string{"zinc", "-d", "plz-out/gen/my lib"}, map[string]string{"B": "2", "A": "1"})
	assert.Equal(t, "scala compile", s.ShortName())
	assert.Equal(t, "(cd /repo && A=1 B=2 zinc -d 'plz-out/gen/my lib')", s.Description(nil))
}

func TestShellStepExecute(t *testing.T) {
	ectx := newContext(t)
	s := NewShellStep("write", ectx.Filesystem.Root(), []string{"bash", "-c", "echo -n $GREETING > out.txt"}, map[string]string{"GREETING": "hello"})
	require.NoError(t, s.Execute(context.Background(), ectx))
	b, err := ectx.Filesystem.ReadFile("out.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestShellStepFailure(t *testing.T) {
	ectx := newContext(t)
	s := NewShellStep("fail", "", []string{"bash", "-c", "echo oh no >&2; exit 1"}, nil)
	err := s.Execute(context.Background(), ectx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oh no")
}

func TestMakeCleanDirectoryStep(t *testing.T) {
	ectx := newContext(t)
	pfs := ectx.Filesystem
	require.NoError(t, pfs.WriteFile(strings.NewReader("x"), "plz-out/gen/out/stale.class", 0644))
	s := NewMakeCleanDirectoryStep(pfs, "plz-out/gen/out")
	assert.Equal(t, "rm -rf "+pfs.Resolve("plz-out/gen/out")+" && mkdir -p "+pfs.Resolve("plz-out/gen/out"), s.Description(ectx))
	require.NoError(t, s.Execute(context.Background(), ectx))
	assert.True(t, pfs.IsDir("plz-out/gen/out"))
	assert.False(t, pfs.Exists("plz-out/gen/out/stale.class"))
}

func TestMkdirStep(t *testing.T) {
	ectx := newContext(t)
	pfs := ectx.Filesystem
	require.NoError(t, pfs.WriteFile(strings.NewReader("x"), "plz-out/gen/out/keep.txt", 0644))
	s := NewMkdirStep(pfs, "plz-out/gen/out")
	require.NoError(t, s.Execute(context.Background(), ectx))
	assert.True(t, pfs.IsFile("plz-out/gen/out/keep.txt"))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	ectx := newContext(t)
	pfs := ectx.Filesystem
	steps := []Step{
		NewMkdirStep(pfs, "a"),
		NewShellStep("fail", "", []string{"false"}, nil),
		NewMkdirStep(pfs, "b"),
	}
	err := Run(context.Background(), ectx, steps)
	assert.Error(t, err)
	assert.True(t, pfs.IsDir("a"))
	_, statErr := os.Stat(pfs.Resolve("b"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunCancelled(t *testing.T) {
	ectx := newContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Run(ctx, ectx, []Step{NewMkdirStep(ectx.Filesystem, "a")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ectx.Filesystem.Exists("a"))
}
