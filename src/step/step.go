// Package step defines the individual actions that make up a rule's build or test,
// and a simple runner that executes a sequence of them in order.
package step

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/process"
)

var log = logging.MustGetLogger("step")

// A Step is a single action needed to build (or test) a rule.
// Steps are returned by rules in the order they must be run.
type Step interface {
	// ShortName is a brief name for this kind of step, eg. "scala compile".
	ShortName() string
	// Description returns a human-readable, shell-like description of what this step does.
	Description(ectx *ExecutionContext) string
	// Execute runs the step.
	Execute(ctx context.Context, ectx *ExecutionContext) error
}

// An ExecutionContext carries the environment that steps are executed in.
type ExecutionContext struct {
	// Filesystem is the repo the steps run against.
	Filesystem *fs.ProjectFilesystem
	// Executor runs any subprocesses.
	Executor *process.Executor
	// Timeout is applied to each subprocess individually.
	Timeout time.Duration
	// ShowOutput echoes subprocess output to stderr as it runs.
	ShowOutput bool
}

// NewExecutionContext returns a new ExecutionContext for the given repo.
func NewExecutionContext(pfs *fs.ProjectFilesystem, timeout time.Duration) *ExecutionContext {
	return &ExecutionContext{
		Filesystem: pfs,
		Executor:   process.New(),
		Timeout:    timeout,
	}
}

// Run executes the given steps in order, stopping at the first one that fails.
func Run(ctx context.Context, ectx *ExecutionContext, steps []Step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debug("Running %s: %s", s.ShortName(), s.Description(ectx))
		if err := s.Execute(ctx, ectx); err != nil {
			return fmt.Errorf("%s failed: %w", s.ShortName(), err)
		}
	}
	return nil
}
