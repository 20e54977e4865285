package core

import (
	"slices"

	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/step"
)

// A BuildRuleType is the tag identifying a kind of buildable declaration, eg. scala_library.
type BuildRuleType string

// String implements the fmt.Stringer interface.
func (t BuildRuleType) String() string {
	return string(t)
}

// A BuildRule is a node in the action graph. It is constructed once by a Description and
// is immutable thereafter; it's safe to read from any number of goroutines.
type BuildRule interface {
	// BuildTarget returns the target that identifies this rule.
	BuildTarget() BuildTarget
	// Type returns the tag of the description that created this rule.
	Type() BuildRuleType
	// Deps returns all the rule's build-time dependencies, sorted by target.
	Deps() []BuildRule
	// DeclaredDeps returns the dependencies that were explicitly declared on the rule.
	DeclaredDeps() []BuildRule
	// ExtraDeps returns the dependencies that were added during rule construction.
	ExtraDeps() []BuildRule
	// PathToOutput returns the path, relative to the repo root, of this rule's output,
	// or the empty string if it doesn't produce one.
	PathToOutput() string
	// BuildSteps returns the steps needed to build this rule, in the order they must be run.
	BuildSteps(ctx *BuildContext) ([]step.Step, error)
	// Properties returns the kinds that this rule is.
	Properties() BuildableProperties
	// ProjectFilesystem returns the filesystem this rule builds in.
	ProjectFilesystem() *fs.ProjectFilesystem
	// AppendToRuleKey adds anything specific to this rule that should affect its rule key.
	// Deps, target and type are always included so don't need to be added here.
	AppendToRuleKey(b RuleKeyBuilder) RuleKeyBuilder
}

// A BuildContext contains the things a rule can use when computing its build steps.
type BuildContext struct {
	// SourcePathResolver resolves source paths to the files they refer to.
	SourcePathResolver *SourcePathResolver
	// Config is the configuration for this run.
	Config *Configuration
}

// AbstractBuildRule implements the parts of BuildRule that are common to every rule.
// Concrete rules embed it and supply the rest.
type AbstractBuildRule struct {
	params   *BuildRuleParams
	resolver *SourcePathResolver
}

// NewAbstractBuildRule returns a new AbstractBuildRule for the given params.
func NewAbstractBuildRule(params *BuildRuleParams, resolver *SourcePathResolver) AbstractBuildRule {
	return AbstractBuildRule{params: params, resolver: resolver}
}

// BuildTarget implements part of the BuildRule interface.
func (r *AbstractBuildRule) BuildTarget() BuildTarget {
	return r.params.BuildTarget()
}

// Deps implements part of the BuildRule interface.
func (r *AbstractBuildRule) Deps() []BuildRule {
	return r.params.Deps()
}

// DeclaredDeps implements part of the BuildRule interface.
func (r *AbstractBuildRule) DeclaredDeps() []BuildRule {
	return r.params.DeclaredDeps()
}

// ExtraDeps implements part of the BuildRule interface.
func (r *AbstractBuildRule) ExtraDeps() []BuildRule {
	return r.params.ExtraDeps()
}

// ProjectFilesystem implements part of the BuildRule interface.
func (r *AbstractBuildRule) ProjectFilesystem() *fs.ProjectFilesystem {
	return r.params.ProjectFilesystem()
}

// Properties returns no particular kinds; rules that are something should override it.
func (r *AbstractBuildRule) Properties() BuildableProperties {
	return BuildableProperties{}
}

// Params returns the params this rule was constructed with.
func (r *AbstractBuildRule) Params() *BuildRuleParams {
	return r.params
}

// Resolver returns the source path resolver this rule was constructed with.
func (r *AbstractBuildRule) Resolver() *SourcePathResolver {
	return r.resolver
}

// String implements the fmt.Stringer interface.
func (r *AbstractBuildRule) String() string {
	return r.BuildTarget().String()
}

// A NoopBuildRule has no output and no steps. It's useful for rules that exist only to
// hold dependencies or metadata, such as tests whose binary is a separate rule.
type NoopBuildRule struct {
	AbstractBuildRule
	ruleType BuildRuleType
}

// NewNoopBuildRule returns a new NoopBuildRule of the given type.
func NewNoopBuildRule(params *BuildRuleParams, resolver *SourcePathResolver, ruleType BuildRuleType) *NoopBuildRule {
	return &NoopBuildRule{AbstractBuildRule: NewAbstractBuildRule(params, resolver), ruleType: ruleType}
}

// Type implements the BuildRule interface.
func (r *NoopBuildRule) Type() BuildRuleType {
	return r.ruleType
}

// PathToOutput implements the BuildRule interface.
func (r *NoopBuildRule) PathToOutput() string {
	return ""
}

// BuildSteps implements the BuildRule interface.
func (r *NoopBuildRule) BuildSteps(ctx *BuildContext) ([]step.Step, error) {
	return nil, nil
}

// AppendToRuleKey implements the BuildRule interface.
func (r *NoopBuildRule) AppendToRuleKey(b RuleKeyBuilder) RuleKeyBuilder {
	return b
}

// MergeRules returns the union of the given sets of rules, deduplicated by target and sorted.
func MergeRules(sets ...[]BuildRule) []BuildRule {
	n := 0
	for _, set := range sets {
		n += len(set)
	}
	ret := make([]BuildRule, 0, n)
	for _, set := range sets {
		ret = append(ret, set...)
	}
	SortRules(ret)
	return slices.CompactFunc(ret, func(a, b BuildRule) bool {
		return a.BuildTarget() == b.BuildTarget()
	})
}

// SortRules sorts the given rules by target, in place.
func SortRules(rules []BuildRule) {
	slices.SortStableFunc(rules, func(a, b BuildRule) int {
		return a.BuildTarget().Compare(b.BuildTarget())
	})
}

// Targets returns the targets of the given rules.
func Targets(rules []BuildRule) []BuildTarget {
	ret := make([]BuildTarget, len(rules))
	for i, r := range rules {
		ret[i] = r.BuildTarget()
	}
	return ret
}
