package core

import (
	"fmt"
)

// A SourcePath is an input to a rule; either a file in the repo or the output of another rule.
type SourcePath interface {
	fmt.Stringer
	// isSourcePath restricts implementations to this package.
	isSourcePath()
}

// A PathSourcePath is a source file in the repo, relative to its root.
type PathSourcePath struct {
	path string
}

// NewPathSourcePath returns a new source path for a file in the repo.
func NewPathSourcePath(path string) PathSourcePath {
	return PathSourcePath{path: path}
}

// Path returns the path of the file, relative to the repo root.
func (p PathSourcePath) Path() string {
	return p.path
}

// String implements the fmt.Stringer interface.
func (p PathSourcePath) String() string {
	return p.path
}

func (p PathSourcePath) isSourcePath() {}

// A BuildTargetSourcePath refers to the output of another rule, or optionally to a
// specific path within it.
type BuildTargetSourcePath struct {
	target BuildTarget
	path   string
}

// NewBuildTargetSourcePath returns a source path for the output of the given target.
func NewBuildTargetSourcePath(target BuildTarget) BuildTargetSourcePath {
	return BuildTargetSourcePath{target: target}
}

// NewBuildTargetSourcePathWithPath returns a source path for a specific file output by the given target.
func NewBuildTargetSourcePathWithPath(target BuildTarget, path string) BuildTargetSourcePath {
	return BuildTargetSourcePath{target: target, path: path}
}

// Target returns the target that produces this source.
func (p BuildTargetSourcePath) Target() BuildTarget {
	return p.target
}

// String implements the fmt.Stringer interface.
func (p BuildTargetSourcePath) String() string {
	if p.path != "" {
		return p.target.String() + "|" + p.path
	}
	return p.target.String()
}

func (p BuildTargetSourcePath) isSourcePath() {}

// A SourcePathResolver resolves source paths to the files they refer to.
type SourcePathResolver struct {
	resolver *BuildRuleResolver
}

// NewSourcePathResolver returns a new SourcePathResolver that looks up rules in the given resolver.
func NewSourcePathResolver(resolver *BuildRuleResolver) *SourcePathResolver {
	return &SourcePathResolver{resolver: resolver}
}

// Path returns the path of a source relative to the repo root.
// It's an error for a rule's output to be requested if it doesn't have one.
func (r *SourcePathResolver) Path(sp SourcePath) (string, error) {
	switch sp := sp.(type) {
	case PathSourcePath:
		return sp.path, nil
	case BuildTargetSourcePath:
		if sp.path != "" {
			return sp.path, nil
		}
		rule, err := r.resolver.GetRule(sp.target)
		if err != nil {
			return "", err
		}
		if out := rule.PathToOutput(); out != "" {
			return out, nil
		}
		return "", NewHumanReadableError("%s is used as a source but has no output", sp.target)
	}
	return "", fmt.Errorf("unknown source path type %T", sp)
}

// Paths resolves a series of sources, maintaining their order.
func (r *SourcePathResolver) Paths(sps []SourcePath) ([]string, error) {
	ret := make([]string, len(sps))
	for i, sp := range sps {
		p, err := r.Path(sp)
		if err != nil {
			return nil, err
		}
		ret[i] = p
	}
	return ret, nil
}

// Rule returns the rule that produces a source, or false if it's a plain file.
func (r *SourcePathResolver) Rule(sp SourcePath) (BuildRule, bool) {
	if btsp, ok := sp.(BuildTargetSourcePath); ok {
		return r.resolver.GetRuleOptional(btsp.target)
	}
	return nil, false
}

// FilterBuildRuleInputs returns the rules that produce any of the given sources.
// Rules producing sources are typically added to a rule's extra deps.
func (r *SourcePathResolver) FilterBuildRuleInputs(sps ...SourcePath) []BuildRule {
	var rules []BuildRule
	for _, sp := range sps {
		if rule, ok := r.Rule(sp); ok {
			rules = append(rules, rule)
		}
	}
	return MergeRules(rules)
}
