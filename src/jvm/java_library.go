package jvm

import (
	"path"
	"strings"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/step"
)

// JavaLibraryType is the rule type of java_library.
const JavaLibraryType core.BuildRuleType = "java_library"

// JavacOptions are the options passed to javac.
type JavacOptions struct {
	SourceLevel string
	TargetLevel string
	ExtraArgs   []string
}

func (o JavacOptions) args() []string {
	args := []string{"-source", o.SourceLevel, "-target", o.TargetLevel}
	return append(args, o.ExtraArgs...)
}

// A JavaLibrary compiles Java sources into a jar.
type JavaLibrary struct {
	core.AbstractBuildRule
	srcs      []core.SourcePath
	resources []core.SourcePath
	javac     core.Tool
	jar       core.Tool
	options   JavacOptions
	output    string
	classpath core.Supplier[classpathResult]
}

// NewJavaLibrary returns a new JavaLibrary. Its output is a jar named after the rule.
func NewJavaLibrary(params *core.BuildRuleParams, resolver *core.SourcePathResolver, srcs, resources []core.SourcePath, javac, jar core.Tool, options JavacOptions) *JavaLibrary {
	output := core.GenPath(params.BuildTarget(), "%s.jar")
	return &JavaLibrary{
		AbstractBuildRule: core.NewAbstractBuildRule(params, resolver),
		srcs:              srcs,
		resources:         resources,
		javac:             javac,
		jar:               jar,
		options:           options,
		output:            output,
		classpath:         memoizeClasspath(params.BuildTarget(), output, params.DeclaredDeps),
	}
}

// Type implements the core.BuildRule interface.
func (lib *JavaLibrary) Type() core.BuildRuleType {
	return JavaLibraryType
}

// PathToOutput implements the core.BuildRule interface.
func (lib *JavaLibrary) PathToOutput() string {
	return lib.output
}

// Properties implements the core.BuildRule interface.
func (lib *JavaLibrary) Properties() core.BuildableProperties {
	return core.NewBuildableProperties(core.LIBRARY)
}

// Srcs returns the sources of this library.
func (lib *JavaLibrary) Srcs() []core.SourcePath {
	return lib.srcs
}

// TransitiveClasspathEntries implements the HasClasspathEntries interface.
func (lib *JavaLibrary) TransitiveClasspathEntries() ([]string, error) {
	r := lib.classpath.Get()
	return r.entries, r.err
}

// DepsClasspath returns the classpath this library is compiled against, which is formed
// from its declared deps.
func (lib *JavaLibrary) DepsClasspath() ([]string, error) {
	return ClasspathOf(lib.BuildTarget(), lib.DeclaredDeps())
}

// ClassesDir returns the directory that classes are compiled into before being jarred.
func (lib *JavaLibrary) ClassesDir() string {
	return core.ScratchPath(lib.BuildTarget(), "lib__%s__classes")
}

// BuildSteps implements the core.BuildRule interface.
func (lib *JavaLibrary) BuildSteps(ctx *core.BuildContext) ([]step.Step, error) {
	pfs := lib.ProjectFilesystem()
	classesDir := lib.ClassesDir()
	steps := []step.Step{
		step.NewMakeCleanDirectoryStep(pfs, classesDir),
		step.NewMkdirStep(pfs, path.Dir(lib.output)),
	}
	if len(lib.srcs) > 0 {
		javac, err := lib.javac.CommandPrefix(lib.Resolver())
		if err != nil {
			return nil, err
		}
		cp, err := lib.DepsClasspath()
		if err != nil {
			return nil, err
		}
		srcs, err := lib.Resolver().Paths(lib.srcs)
		if err != nil {
			return nil, err
		}
		args := append(javac, lib.options.args()...)
		args = append(args, "-d", classesDir)
		if len(cp) > 0 {
			args = append(args, "-classpath", strings.Join(cp, ":"))
		}
		steps = append(steps, step.NewShellStep("javac", pfs.Root(), append(args, srcs...), nil))
	}
	jar, err := lib.jar.CommandPrefix(lib.Resolver())
	if err != nil {
		return nil, err
	}
	args := append(jar, "cf", lib.output, "-C", classesDir, ".")
	resources, err := lib.Resolver().Paths(lib.resources)
	if err != nil {
		return nil, err
	}
	steps = append(steps, step.NewShellStep("jar", pfs.Root(), append(args, resources...), nil))
	return steps, nil
}

// AppendToRuleKey implements the core.BuildRule interface.
func (lib *JavaLibrary) AppendToRuleKey(b core.RuleKeyBuilder) core.RuleKeyBuilder {
	b = b.SetSourcePaths("srcs", lib.srcs).
		SetSourcePaths("resources", lib.resources).
		SetString("sourceLevel", lib.options.SourceLevel).
		SetString("targetLevel", lib.options.TargetLevel).
		SetStrings("extraArgs", lib.options.ExtraArgs)
	b = lib.javac.AppendToRuleKey("javac", b)
	return lib.jar.AppendToRuleKey("jar", b)
}

// A JavaLibraryArg is the arguments of a java_library declaration.
type JavaLibraryArg struct {
	Srcs        []core.SourcePath
	Resources   []core.SourcePath
	Deps        []core.BuildTarget
	SourceLevel string
	TargetLevel string
	ExtraArgs   []string
}

// JavaLibraryDescription constructs java_library rules.
type JavaLibraryDescription struct {
	config *JavaConfig
}

// NewJavaLibraryDescription returns a new JavaLibraryDescription.
func NewJavaLibraryDescription(config *JavaConfig) *JavaLibraryDescription {
	return &JavaLibraryDescription{config: config}
}

// BuildRuleType implements the core.Description interface.
func (d *JavaLibraryDescription) BuildRuleType() core.BuildRuleType {
	return JavaLibraryType
}

// CreateUnpopulatedConstructorArg implements the core.Description interface.
func (d *JavaLibraryDescription) CreateUnpopulatedConstructorArg() *JavaLibraryArg {
	return &JavaLibraryArg{}
}

// CreateBuildRule implements the core.Description interface.
// Every declared dependency must have a classpath.
func (d *JavaLibraryDescription) CreateBuildRule(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, args *JavaLibraryArg) (core.BuildRule, error) {
	spr := core.NewSourcePathResolver(resolver)
	javac, jar, options, err := d.JavaTools(args.SourceLevel, args.TargetLevel, args.ExtraArgs)
	if err != nil {
		return nil, err
	}
	params = WithToolAndSourceDeps(params, spr, []core.Tool{javac, jar}, args.Srcs, args.Resources)
	lib := NewJavaLibrary(params, spr, args.Srcs, args.Resources, javac, jar, options)
	if _, err := lib.TransitiveClasspathEntries(); err != nil {
		return nil, err
	}
	return lib, nil
}

// JavaTools returns the tools and options for a Java rule, filling in defaults from config.
func (d *JavaLibraryDescription) JavaTools(sourceLevel, targetLevel string, extraArgs []string) (core.Tool, core.Tool, JavacOptions, error) {
	options := d.config.DefaultJavacOptions()
	if sourceLevel != "" {
		options.SourceLevel = sourceLevel
	}
	if targetLevel != "" {
		options.TargetLevel = targetLevel
	}
	options.ExtraArgs = extraArgs
	javac, err := d.config.Javac()
	if err != nil {
		return nil, nil, options, err
	}
	jar, err := d.config.Jar()
	return javac, jar, options, err
}

// WithToolAndSourceDeps adds the rules that provide any of the given tools or sources to
// the extra deps of the given params.
func WithToolAndSourceDeps(params *core.BuildRuleParams, spr *core.SourcePathResolver, tools []core.Tool, srcs ...[]core.SourcePath) *core.BuildRuleParams {
	return params.AppendExtraDeps(core.SupplierFunc[[]core.BuildRule](func() []core.BuildRule {
		var rules []core.BuildRule
		for _, tool := range tools {
			rules = append(rules, tool.Deps(spr)...)
		}
		for _, s := range srcs {
			rules = append(rules, spr.FilterBuildRuleInputs(s...)...)
		}
		return core.MergeRules(rules)
	}))
}
