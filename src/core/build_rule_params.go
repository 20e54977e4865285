package core

import (
	"github.com/thought-machine/rulegraph/src/fs"
)

// BuildRuleParams bundles the target of a rule with its dependencies and the environment it's
// constructed in. It's handed to a Description to construct a BuildRule from.
//
// The dependency sets are held as memoized suppliers, so each is computed at most once no
// matter how many goroutines read it. BuildRuleParams are immutable; the Copy* and With*
// functions return new instances which share any suppliers that haven't changed.
type BuildRuleParams struct {
	target                BuildTarget
	declaredDeps          Supplier[[]BuildRule]
	extraDeps             Supplier[[]BuildRule]
	totalDeps             Supplier[[]BuildRule]
	filesystem            *fs.ProjectFilesystem
	ruleKeyBuilderFactory RuleKeyBuilderFactory
}

// NewBuildRuleParams returns a new BuildRuleParams.
// The dependency suppliers are not called until the dependencies are first needed.
func NewBuildRuleParams(target BuildTarget, declaredDeps, extraDeps Supplier[[]BuildRule], filesystem *fs.ProjectFilesystem, ruleKeyBuilderFactory RuleKeyBuilderFactory) *BuildRuleParams {
	p := &BuildRuleParams{
		target:                target,
		filesystem:            filesystem,
		ruleKeyBuilderFactory: ruleKeyBuilderFactory,
	}
	p.setDeps(declaredDeps, extraDeps)
	return p
}

// setDeps sets both dependency suppliers, plus the total deps derived from them.
// It must only be called while constructing a new instance.
func (p *BuildRuleParams) setDeps(declaredDeps, extraDeps Supplier[[]BuildRule]) {
	declared := Memoize(declaredDeps)
	extra := Memoize(extraDeps)
	p.declaredDeps = declared
	p.extraDeps = extra
	p.totalDeps = MemoizeFunc(func() []BuildRule {
		return MergeRules(declared.Get(), extra.Get())
	})
}

// copyWith returns a copy of these params with the given fields.
// Suppliers that are unchanged (which only happens if they're the memoized ones we already
// hold) are reused, along with the total deps if both are.
func (p *BuildRuleParams) copyWith(target BuildTarget, declaredDeps, extraDeps Supplier[[]BuildRule]) *BuildRuleParams {
	c := &BuildRuleParams{
		target:                target,
		filesystem:            p.filesystem,
		ruleKeyBuilderFactory: p.ruleKeyBuilderFactory,
	}
	if sameSupplier(declaredDeps, p.declaredDeps) && sameSupplier(extraDeps, p.extraDeps) {
		c.declaredDeps = p.declaredDeps
		c.extraDeps = p.extraDeps
		c.totalDeps = p.totalDeps
		return c
	}
	c.setDeps(declaredDeps, extraDeps)
	return c
}

// sameSupplier returns true if a is the identical memoized supplier b.
// Other suppliers are never considered the same (and might not be comparable).
func sameSupplier(a, b Supplier[[]BuildRule]) bool {
	m, ok := a.(*memoized[[]BuildRule])
	return ok && Supplier[[]BuildRule](m) == b
}

// CopyWithExtraDeps returns a copy of these params with the extra deps replaced.
func (p *BuildRuleParams) CopyWithExtraDeps(extraDeps Supplier[[]BuildRule]) *BuildRuleParams {
	return p.copyWith(p.target, p.declaredDeps, extraDeps)
}

// AppendExtraDeps returns a copy of these params whose extra deps are the union of the current
// ones and the given ones. Neither is evaluated until the new extra deps are needed.
func (p *BuildRuleParams) AppendExtraDeps(additional Supplier[[]BuildRule]) *BuildRuleParams {
	previous := p.extraDeps
	return p.CopyWithExtraDeps(SupplierFunc[[]BuildRule](func() []BuildRule {
		return MergeRules(previous.Get(), additional.Get())
	}))
}

// AppendExtraDepsOf is like AppendExtraDeps for a fixed set of rules.
func (p *BuildRuleParams) AppendExtraDepsOf(rules ...BuildRule) *BuildRuleParams {
	return p.AppendExtraDeps(OfInstance(rules))
}

// CopyWithDeps returns a copy of these params with both sets of dependencies replaced.
func (p *BuildRuleParams) CopyWithDeps(declaredDeps, extraDeps Supplier[[]BuildRule]) *BuildRuleParams {
	return p.copyWith(p.target, declaredDeps, extraDeps)
}

// CopyWithBuildTarget returns a copy of these params for a different target.
func (p *BuildRuleParams) CopyWithBuildTarget(target BuildTarget) *BuildRuleParams {
	return p.copyWith(target, p.declaredDeps, p.extraDeps)
}

// CopyWithChanges returns a copy of these params with the target and both sets of dependencies replaced.
func (p *BuildRuleParams) CopyWithChanges(target BuildTarget, declaredDeps, extraDeps Supplier[[]BuildRule]) *BuildRuleParams {
	return p.copyWith(target, declaredDeps, extraDeps)
}

// WithFlavor returns a copy of these params with the given flavor added to the target.
// It's an error if the target already has it.
func (p *BuildRuleParams) WithFlavor(flavor Flavor) (*BuildRuleParams, error) {
	target, err := p.target.WithFlavor(flavor)
	if err != nil {
		return nil, err
	}
	return p.CopyWithBuildTarget(target), nil
}

// WithoutFlavor returns a copy of these params with the given flavor removed from the target.
// It's an error if the target doesn't have it.
func (p *BuildRuleParams) WithoutFlavor(flavor Flavor) (*BuildRuleParams, error) {
	target, err := p.target.WithoutFlavor(flavor)
	if err != nil {
		return nil, err
	}
	return p.CopyWithBuildTarget(target), nil
}

// BuildTarget returns the target these params are for.
func (p *BuildRuleParams) BuildTarget() BuildTarget {
	return p.target
}

// DeclaredDeps returns the explicitly declared dependencies, sorted by target.
// The returned slice is shared and must not be modified.
func (p *BuildRuleParams) DeclaredDeps() []BuildRule {
	return p.declaredDeps.Get()
}

// ExtraDeps returns the dependencies added during rule construction, sorted by target.
// The returned slice is shared and must not be modified.
func (p *BuildRuleParams) ExtraDeps() []BuildRule {
	return p.extraDeps.Get()
}

// Deps returns the union of the declared and extra dependencies, sorted by target.
// The returned slice is shared and must not be modified.
func (p *BuildRuleParams) Deps() []BuildRule {
	return p.totalDeps.Get()
}

// DeclaredDepsSupplier returns the supplier of the declared dependencies.
func (p *BuildRuleParams) DeclaredDepsSupplier() Supplier[[]BuildRule] {
	return p.declaredDeps
}

// ExtraDepsSupplier returns the supplier of the extra dependencies.
func (p *BuildRuleParams) ExtraDepsSupplier() Supplier[[]BuildRule] {
	return p.extraDeps
}

// TotalDepsSupplier returns the supplier of all the dependencies.
func (p *BuildRuleParams) TotalDepsSupplier() Supplier[[]BuildRule] {
	return p.totalDeps
}

// ProjectFilesystem returns the filesystem that the rule will be built in.
func (p *BuildRuleParams) ProjectFilesystem() *fs.ProjectFilesystem {
	return p.filesystem
}

// RuleKeyBuilderFactory returns the factory for the rule's cache key.
func (p *BuildRuleParams) RuleKeyBuilderFactory() RuleKeyBuilderFactory {
	return p.ruleKeyBuilderFactory
}
