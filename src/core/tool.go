package core

import (
	"github.com/google/shlex"

	"github.com/thought-machine/rulegraph/src/fs"
)

// A Tool is something a rule invokes as part of its build, such as a compiler.
type Tool interface {
	// CommandPrefix returns the command line that invokes the tool, to which arguments are appended.
	CommandPrefix(resolver *SourcePathResolver) ([]string, error)
	// Deps returns any rules that must be built before the tool can be used.
	Deps(resolver *SourcePathResolver) []BuildRule
	// AppendToRuleKey adds the tool's identity to a rule key.
	AppendToRuleKey(name string, b RuleKeyBuilder) RuleKeyBuilder
}

// HasExecutableCommand is implemented by rules whose output can be run, such as binaries.
type HasExecutableCommand interface {
	BuildRule
	// ExecutableCommand returns the tool that runs this rule's output.
	ExecutableCommand() Tool
}

// A HashedFileTool is a tool at a fixed path on disk, whose contents contribute to the rule key.
type HashedFileTool struct {
	path string
}

// NewHashedFileTool returns a new HashedFileTool for the given (usually absolute) path.
func NewHashedFileTool(path string) *HashedFileTool {
	return &HashedFileTool{path: path}
}

// Path returns the location of this tool.
func (t *HashedFileTool) Path() string {
	return t.path
}

// CommandPrefix implements the Tool interface.
func (t *HashedFileTool) CommandPrefix(resolver *SourcePathResolver) ([]string, error) {
	return []string{t.path}, nil
}

// Deps implements the Tool interface.
func (t *HashedFileTool) Deps(resolver *SourcePathResolver) []BuildRule {
	return nil
}

// AppendToRuleKey implements the Tool interface.
func (t *HashedFileTool) AppendToRuleKey(name string, b RuleKeyBuilder) RuleKeyBuilder {
	return b.SetSourcePath(name, NewPathSourcePath(t.path))
}

// A CommandTool is assembled from a base tool or source, plus extra arguments.
type CommandTool struct {
	base  SourcePath
	args  []string
	extra []string
}

// NewCommandTool returns a tool that runs the given source (eg. a rule output) with extra arguments.
func NewCommandTool(base SourcePath, args ...string) *CommandTool {
	return &CommandTool{base: base, args: args}
}

// FindTool parses a command line as found in config, eg. "zinc -J-Xmx2g", into a tool.
// The first word is located on the given path; if there are no other words the tool is
// a HashedFileTool.
func FindTool(command, path string) (Tool, error) {
	parts, err := shlex.Split(command)
	if err != nil {
		return nil, err
	} else if len(parts) == 0 {
		return nil, NewHumanReadableError("empty tool command")
	}
	exe, err := fs.FindExecutable(parts[0], path)
	if err != nil {
		return nil, err
	} else if len(parts) == 1 {
		return NewHashedFileTool(exe), nil
	}
	return NewCommandTool(NewPathSourcePath(exe), parts[1:]...), nil
}

// WithArgs returns a copy of this tool with some more arguments appended.
func (t *CommandTool) WithArgs(args ...string) *CommandTool {
	return &CommandTool{base: t.base, args: t.args, extra: append(append([]string{}, t.extra...), args...)}
}

// CommandPrefix implements the Tool interface.
func (t *CommandTool) CommandPrefix(resolver *SourcePathResolver) ([]string, error) {
	path, err := resolver.Path(t.base)
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, 1+len(t.args)+len(t.extra))
	ret = append(ret, path)
	ret = append(ret, t.args...)
	return append(ret, t.extra...), nil
}

// Deps implements the Tool interface.
func (t *CommandTool) Deps(resolver *SourcePathResolver) []BuildRule {
	return resolver.FilterBuildRuleInputs(t.base)
}

// AppendToRuleKey implements the Tool interface.
func (t *CommandTool) AppendToRuleKey(name string, b RuleKeyBuilder) RuleKeyBuilder {
	return b.SetSourcePath(name+".base", t.base).
		SetStrings(name+".args", t.args).
		SetStrings(name+".extra", t.extra)
}
