package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/step"
)

// fakeRule is a minimal rule with an optional output.
type fakeRule struct {
	AbstractBuildRule
	out string
}

func (r *fakeRule) Type() BuildRuleType { return "fake" }

func (r *fakeRule) PathToOutput() string { return r.out }

func (r *fakeRule) BuildSteps(ctx *BuildContext) ([]step.Step, error) { return nil, nil }

func (r *fakeRule) AppendToRuleKey(b RuleKeyBuilder) RuleKeyBuilder {
	return b.SetString("out", r.out)
}

func newParams(t *testing.T, target string, deps ...BuildRule) *BuildRuleParams {
	pfs, err := fs.NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	return NewBuildRuleParams(MustParseBuildTarget(target), OfInstance(deps), OfInstance[[]BuildRule](nil), pfs, nil)
}

func newFakeRule(t *testing.T, target string, deps ...BuildRule) *fakeRule {
	return &fakeRule{
		AbstractBuildRule: NewAbstractBuildRule(newParams(t, target, deps...), nil),
		out:               GenPath(MustParseBuildTarget(target), "%s.out"),
	}
}

func TestMergeRules(t *testing.T) {
	a := newFakeRule(t, "//a:a")
	b := newFakeRule(t, "//a:b")
	c := newFakeRule(t, "//c:c")
	merged := MergeRules([]BuildRule{c, a}, []BuildRule{b, a}, nil)
	assert.Equal(t, []BuildTarget{a.BuildTarget(), b.BuildTarget(), c.BuildTarget()}, Targets(merged))
	assert.Empty(t, MergeRules())
}

func TestSortRules(t *testing.T) {
	rules := []BuildRule{newFakeRule(t, "//z:z"), newFakeRule(t, "//a:a#f"), newFakeRule(t, "//a:a")}
	SortRules(rules)
	assert.Equal(t, []BuildTarget{
		MustParseBuildTarget("//a:a"),
		MustParseBuildTarget("//a:a#f"),
		MustParseBuildTarget("//z:z"),
	}, Targets(rules))
}

func TestAbstractBuildRule(t *testing.T) {
	dep := newFakeRule(t, "//lib:dep")
	rule := newFakeRule(t, "//lib:rule", dep)
	assert.Equal(t, "//lib:rule", rule.BuildTarget().String())
	assert.Equal(t, "//lib:rule", rule.String())
	assert.Equal(t, []BuildRule{dep}, rule.Deps())
	assert.Equal(t, []BuildRule{dep}, rule.DeclaredDeps())
	assert.Empty(t, rule.ExtraDeps())
	assert.NotNil(t, rule.ProjectFilesystem())
	assert.False(t, rule.Properties().IsLibrary())
	assert.Equal(t, "plz-out/gen/lib/rule.out", rule.PathToOutput())
}

func TestNoopBuildRule(t *testing.T) {
	rule := NewNoopBuildRule(newParams(t, "//test:noop"), nil, "noop")
	assert.Equal(t, BuildRuleType("noop"), rule.Type())
	assert.Equal(t, "", rule.PathToOutput())
	steps, err := rule.BuildSteps(&BuildContext{})
	assert.NoError(t, err)
	assert.Empty(t, steps)
	var b RuleKeyBuilder
	assert.Nil(t, rule.AppendToRuleKey(b))
}

func TestBuildableProperties(t *testing.T) {
	p := NewBuildableProperties(ANDROID, LIBRARY)
	assert.True(t, p.IsAndroid())
	assert.True(t, p.IsLibrary())
	assert.False(t, p.IsTest())
	assert.False(t, p.Is(PACKAGING))
	assert.Equal(t, "[ANDROID, LIBRARY]", p.String())
	assert.Equal(t, "[]", NewBuildableProperties().String())
}

func TestGenPath(t *testing.T) {
	target := MustParseBuildTarget("//java/com/example:lib#src")
	assert.Equal(t, "plz-out/gen/java/com/example/lib#src.jar", GenPath(target, "%s.jar"))
	assert.Equal(t, "plz-out/gen/java/com/example/lib#src/lib.jar", GenPath(target, "%s/lib.jar"))
	assert.Equal(t, "plz-out/gen/java/com/example/fixed", GenPath(target, "fixed"))
	assert.Equal(t, "plz-out/bin/java/com/example/lib#src.pex", BinPath(target, "%s.pex"))
	assert.Equal(t, "plz-out/tmp/java/com/example/lib#src", ScratchPath(target, "%s"))
	assert.Equal(t, "plz-out/gen/root", GenPath(MustParseBuildTarget("//:root"), "%s"))
}
