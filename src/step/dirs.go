package step

import (
	"context"

	"github.com/alessio/shellescape"

	"github.com/thought-machine/rulegraph/src/fs"
)

// A MakeCleanDirectoryStep ensures a directory exists and is empty.
// It's conventionally the first step of any rule that produces a directory of output.
type MakeCleanDirectoryStep struct {
	fs   *fs.ProjectFilesystem
	path string
}

// NewMakeCleanDirectoryStep returns a new MakeCleanDirectoryStep for a path relative to the repo root.
func NewMakeCleanDirectoryStep(pfs *fs.ProjectFilesystem, path string) *MakeCleanDirectoryStep {
	return &MakeCleanDirectoryStep{fs: pfs, path: path}
}

// Path returns the directory that this step cleans.
func (s *MakeCleanDirectoryStep) Path() string {
	return s.path
}

// ShortName implements the Step interface.
func (s *MakeCleanDirectoryStep) ShortName() string {
	return "make_clean_dir"
}

// Description implements the Step interface.
func (s *MakeCleanDirectoryStep) Description(ectx *ExecutionContext) string {
	p := shellescape.Quote(s.fs.Resolve(s.path))
	return "rm -rf " + p + " && mkdir -p " + p
}

// Execute implements the Step interface.
func (s *MakeCleanDirectoryStep) Execute(ctx context.Context, ectx *ExecutionContext) error {
	return s.fs.MakeCleanDirectory(s.path)
}

// A MkdirStep ensures a directory exists, leaving any existing contents alone.
type MkdirStep struct {
	fs   *fs.ProjectFilesystem
	path string
}

// NewMkdirStep returns a new MkdirStep for a path relative to the repo root.
func NewMkdirStep(pfs *fs.ProjectFilesystem, path string) *MkdirStep {
	return &MkdirStep{fs: pfs, path: path}
}

// Path returns the directory that this step creates.
func (s *MkdirStep) Path() string {
	return s.path
}

// ShortName implements the Step interface.
func (s *MkdirStep) ShortName() string {
	return "mkdir"
}

// Description implements the Step interface.
func (s *MkdirStep) Description(ectx *ExecutionContext) string {
	return "mkdir -p " + shellescape.Quote(s.fs.Resolve(s.path))
}

// Execute implements the Step interface.
func (s *MkdirStep) Execute(ctx context.Context, ectx *ExecutionContext) error {
	return s.fs.MkdirAll(s.path)
}
