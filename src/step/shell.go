package step

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/alessio/shellescape"
)

// A ShellStep runs a single subprocess.
type ShellStep struct {
	name       string
	workingDir string
	args       []string
	env        map[string]string
}

// NewShellStep returns a new step that runs the given command line in the given directory.
// Any env vars are added to those inherited from this process.
func NewShellStep(name, workingDir string, args []string, env map[string]string) *ShellStep {
	return &ShellStep{name: name, workingDir: workingDir, args: args, env: env}
}

// ShortName implements the Step interface.
func (s *ShellStep) ShortName() string {
	return s.name
}

// Args returns the command line this step will run.
func (s *ShellStep) Args() []string {
	return s.args
}

// Env returns the additional environment variables this step sets.
func (s *ShellStep) Env() map[string]string {
	return s.env
}

// WorkingDir returns the directory the command is run in.
func (s *ShellStep) WorkingDir() string {
	return s.workingDir
}

// Description implements the Step interface.
func (s *ShellStep) Description(ectx *ExecutionContext) string {
	var sb strings.Builder
	if s.workingDir != "" {
		sb.WriteString("(cd ")
		sb.WriteString(shellescape.Quote(s.workingDir))
		sb.WriteString(" && ")
	}
	for _, kv := range s.sortedEnv() {
		sb.WriteString(shellescape.Quote(kv))
		sb.WriteByte(' ')
	}
	for i, arg := range s.args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(shellescape.Quote(arg))
	}
	if s.workingDir != "" {
		sb.WriteByte(')')
	}
	return sb.String()
}

// Execute implements the Step interface.
func (s *ShellStep) Execute(ctx context.Context, ectx *ExecutionContext) error {
	env := append(os.Environ(), s.sortedEnv()...)
	_, combined, err := ectx.Executor.ExecWithTimeout(ctx, s.workingDir, env, ectx.Timeout, ectx.ShowOutput, s.args)
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", s.Description(ectx), err, combined)
	}
	return nil
}

func (s *ShellStep) sortedEnv() []string {
	env := make([]string, 0, len(s.env))
	for k, v := range s.env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
