package jvm

import (
	"path"
	"strings"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/step"
)

// ScalaLibraryType is the rule type of scala_library.
const ScalaLibraryType core.BuildRuleType = "scala_library"

// A ScalaLibrary compiles Scala sources into a directory of classes.
type ScalaLibrary struct {
	core.AbstractBuildRule
	compiler  core.Tool
	srcs      []core.SourcePath
	output    string
	classpath core.Supplier[classpathResult]
}

// NewScalaLibrary returns a new ScalaLibrary writing its classes to the given output.
func NewScalaLibrary(params *core.BuildRuleParams, resolver *core.SourcePathResolver, srcs []core.SourcePath, output string, compiler core.Tool) *ScalaLibrary {
	return &ScalaLibrary{
		AbstractBuildRule: core.NewAbstractBuildRule(params, resolver),
		compiler:          compiler,
		srcs:              srcs,
		output:            output,
		classpath:         memoizeClasspath(params.BuildTarget(), "", params.DeclaredDeps),
	}
}

// Type implements the core.BuildRule interface.
func (lib *ScalaLibrary) Type() core.BuildRuleType {
	return ScalaLibraryType
}

// PathToOutput implements the core.BuildRule interface.
func (lib *ScalaLibrary) PathToOutput() string {
	return lib.output
}

// Properties implements the core.BuildRule interface.
func (lib *ScalaLibrary) Properties() core.BuildableProperties {
	return core.NewBuildableProperties(core.LIBRARY)
}

// Classpath returns the classpath this library is compiled against: the entries of each of
// its declared deps, in order. It's computed once.
func (lib *ScalaLibrary) Classpath() ([]string, error) {
	r := lib.classpath.Get()
	return r.entries, r.err
}

// TransitiveClasspathEntries implements the HasClasspathEntries interface.
func (lib *ScalaLibrary) TransitiveClasspathEntries() ([]string, error) {
	cp, err := lib.Classpath()
	if err != nil {
		return nil, err
	}
	return append([]string{lib.output}, cp...), nil
}

// BuildSteps implements the core.BuildRule interface.
func (lib *ScalaLibrary) BuildSteps(ctx *core.BuildContext) ([]step.Step, error) {
	prefix, err := lib.compiler.CommandPrefix(lib.Resolver())
	if err != nil {
		return nil, err
	}
	cp, err := lib.Classpath()
	if err != nil {
		return nil, err
	}
	srcs, err := lib.Resolver().Paths(lib.srcs)
	if err != nil {
		return nil, err
	}
	pfs := lib.ProjectFilesystem()
	return []step.Step{
		step.NewMakeCleanDirectoryStep(pfs, path.Dir(lib.output)),
		NewScalaCompileStep(pfs.Root(), prefix, lib.output, cp, srcs),
	}, nil
}

// AppendToRuleKey implements the core.BuildRule interface.
func (lib *ScalaLibrary) AppendToRuleKey(b core.RuleKeyBuilder) core.RuleKeyBuilder {
	return lib.compiler.AppendToRuleKey("compiler", b.SetSourcePaths("srcs", lib.srcs))
}

// NewScalaCompileStep returns the step that compiles Scala sources into the given output.
func NewScalaCompileStep(workingDir string, compilerPrefix []string, output string, classpath, srcs []string) *step.ShellStep {
	args := make([]string, 0, len(compilerPrefix)+4+len(srcs))
	args = append(args, compilerPrefix...)
	args = append(args, "-d", output, "-cp", strings.Join(classpath, ":"))
	return step.NewShellStep("scala compile", workingDir, append(args, srcs...), nil)
}

// A ScalaLibraryArg is the arguments of a scala_library declaration.
type ScalaLibraryArg struct {
	Srcs []core.SourcePath `validate:"required"`
	Deps []core.BuildTarget
}

// ScalaLibraryDescription constructs scala_library rules.
type ScalaLibraryDescription struct {
	config *ScalaConfig
}

// NewScalaLibraryDescription returns a new ScalaLibraryDescription.
func NewScalaLibraryDescription(config *ScalaConfig) *ScalaLibraryDescription {
	return &ScalaLibraryDescription{config: config}
}

// BuildRuleType implements the core.Description interface.
func (d *ScalaLibraryDescription) BuildRuleType() core.BuildRuleType {
	return ScalaLibraryType
}

// CreateUnpopulatedConstructorArg implements the core.Description interface.
func (d *ScalaLibraryDescription) CreateUnpopulatedConstructorArg() *ScalaLibraryArg {
	return &ScalaLibraryArg{}
}

// CreateBuildRule implements the core.Description interface.
// The classes are written to a directory named after the rule, inside one for the target.
func (d *ScalaLibraryDescription) CreateBuildRule(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, args *ScalaLibraryArg) (core.BuildRule, error) {
	compiler, err := d.config.ScalaCompiler()
	if err != nil {
		return nil, err
	}
	spr := core.NewSourcePathResolver(resolver)
	target := params.BuildTarget()
	output := core.GenPath(target, "%s/"+target.ShortName())
	params = WithToolAndSourceDeps(params, spr, []core.Tool{compiler}, args.Srcs)
	lib := NewScalaLibrary(params, spr, dedupeSourcePaths(args.Srcs), output, compiler)
	if _, err := lib.TransitiveClasspathEntries(); err != nil {
		return nil, err
	}
	return lib, nil
}

// dedupeSourcePaths removes duplicates from a list of sources, keeping the first of each.
func dedupeSourcePaths(srcs []core.SourcePath) []core.SourcePath {
	seen := make(map[string]struct{}, len(srcs))
	ret := make([]core.SourcePath, 0, len(srcs))
	for _, src := range srcs {
		if _, present := seen[src.String()]; !present {
			seen[src.String()] = struct{}{}
			ret = append(ret, src)
		}
	}
	return ret
}
