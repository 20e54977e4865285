// Package python contains the rules that build Python libraries, binaries and tests.
package python

import (
	"path"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/step"
)

var log = logging.MustGetLogger("python")

// PythonLibraryType is the rule type of python_library.
const PythonLibraryType core.BuildRuleType = "python_library"

// PythonPackageComponents are the files that make up a Python package, keyed by their
// location within it.
type PythonPackageComponents struct {
	Modules   map[string]core.SourcePath
	Resources map[string]core.SourcePath
}

// NewPythonPackageComponents returns a new, empty set of components.
func NewPythonPackageComponents() PythonPackageComponents {
	return PythonPackageComponents{Modules: map[string]core.SourcePath{}, Resources: map[string]core.SourcePath{}}
}

// Merge adds the given components to these ones. It's an error for two different sources to
// claim the same location.
func (c PythonPackageComponents) Merge(other PythonPackageComponents, owner core.BuildTarget) error {
	if err := mergeComponents(c.Modules, other.Modules, owner); err != nil {
		return err
	}
	return mergeComponents(c.Resources, other.Resources, owner)
}

func mergeComponents(into, from map[string]core.SourcePath, owner core.BuildTarget) error {
	for dest, src := range from {
		if existing, present := into[dest]; present && existing.String() != src.String() {
			return core.NewHumanReadableError("%s: found duplicate entries for %s: %s and %s", owner, dest, existing, src)
		}
		into[dest] = src
	}
	return nil
}

// A PythonPackagable is a rule that contributes components to a Python package.
type PythonPackagable interface {
	core.BuildRule
	PythonPackageComponents() PythonPackageComponents
}

// A PythonLibrary is a set of Python sources and resources. It doesn't build anything itself;
// its files are packaged into the binaries depending on it.
type PythonLibrary struct {
	core.AbstractBuildRule
	components PythonPackageComponents
}

// NewPythonLibrary returns a new PythonLibrary with the given components.
func NewPythonLibrary(params *core.BuildRuleParams, resolver *core.SourcePathResolver, components PythonPackageComponents) *PythonLibrary {
	return &PythonLibrary{AbstractBuildRule: core.NewAbstractBuildRule(params, resolver), components: components}
}

// Type implements the core.BuildRule interface.
func (lib *PythonLibrary) Type() core.BuildRuleType {
	return PythonLibraryType
}

// PathToOutput implements the core.BuildRule interface.
func (lib *PythonLibrary) PathToOutput() string {
	return ""
}

// Properties implements the core.BuildRule interface.
func (lib *PythonLibrary) Properties() core.BuildableProperties {
	return core.NewBuildableProperties(core.LIBRARY)
}

// BuildSteps implements the core.BuildRule interface.
func (lib *PythonLibrary) BuildSteps(ctx *core.BuildContext) ([]step.Step, error) {
	return nil, nil
}

// PythonPackageComponents implements the PythonPackagable interface.
func (lib *PythonLibrary) PythonPackageComponents() PythonPackageComponents {
	return lib.components
}

// AppendToRuleKey implements the core.BuildRule interface.
func (lib *PythonLibrary) AppendToRuleKey(b core.RuleKeyBuilder) core.RuleKeyBuilder {
	return appendComponentsToRuleKey(b, lib.components)
}

func appendComponentsToRuleKey(b core.RuleKeyBuilder, components PythonPackageComponents) core.RuleKeyBuilder {
	for _, dest := range sortedKeys(components.Modules) {
		b = b.SetSourcePath("module:"+dest, components.Modules[dest])
	}
	for _, dest := range sortedKeys(components.Resources) {
		b = b.SetSourcePath("resource:"+dest, components.Resources[dest])
	}
	return b
}

func sortedKeys(m map[string]core.SourcePath) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// TransitiveComponents returns the components of all the Python rules among the given ones
// and their declared deps, merged together.
func TransitiveComponents(owner core.BuildTarget, rules []core.BuildRule) (PythonPackageComponents, error) {
	components := NewPythonPackageComponents()
	visited := map[core.BuildTarget]struct{}{}
	var visit func(rules []core.BuildRule) error
	visit = func(rules []core.BuildRule) error {
		for _, rule := range rules {
			if _, present := visited[rule.BuildTarget()]; present {
				continue
			}
			visited[rule.BuildTarget()] = struct{}{}
			if p, ok := rule.(PythonPackagable); ok {
				if err := components.Merge(p.PythonPackageComponents(), owner); err != nil {
					return err
				}
			}
			if err := visit(rule.DeclaredDeps()); err != nil {
				return err
			}
		}
		return nil
	}
	return components, visit(rules)
}

// ToModuleMap maps each source to its location in a package, which is beneath the base module.
// Plain files keep their path relative to the target's package; outputs of other rules are
// placed by their file name.
func ToModuleMap(target core.BuildTarget, baseModule string, srcs []core.SourcePath) map[string]core.SourcePath {
	ret := make(map[string]core.SourcePath, len(srcs))
	for _, src := range srcs {
		var name string
		if p, ok := src.(core.PathSourcePath); ok {
			name = strings.TrimPrefix(p.Path(), target.BasePathWithSlash())
		} else {
			name = path.Base(src.String())
		}
		ret[path.Join(baseModule, name)] = src
	}
	return ret
}

// A PythonLibraryArg is the arguments of a python_library declaration.
type PythonLibraryArg struct {
	Srcs       []core.SourcePath
	Resources  []core.SourcePath
	Deps       []core.BuildTarget
	BaseModule *string
}

// baseModule returns the base module for a rule, which defaults to its package.
func baseModule(target core.BuildTarget, declared *string) string {
	if declared != nil {
		return *declared
	}
	return target.BasePath()
}

// PythonLibraryDescription constructs python_library rules.
type PythonLibraryDescription struct{}

// BuildRuleType implements the core.Description interface.
func (d *PythonLibraryDescription) BuildRuleType() core.BuildRuleType {
	return PythonLibraryType
}

// CreateUnpopulatedConstructorArg implements the core.Description interface.
func (d *PythonLibraryDescription) CreateUnpopulatedConstructorArg() *PythonLibraryArg {
	return &PythonLibraryArg{}
}

// CreateBuildRule implements the core.Description interface.
func (d *PythonLibraryDescription) CreateBuildRule(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, args *PythonLibraryArg) (core.BuildRule, error) {
	spr := core.NewSourcePathResolver(resolver)
	target := params.BuildTarget()
	base := baseModule(target, args.BaseModule)
	components := PythonPackageComponents{
		Modules:   ToModuleMap(target, base, args.Srcs),
		Resources: ToModuleMap(target, base, args.Resources),
	}
	params = params.AppendExtraDepsOf(spr.FilterBuildRuleInputs(append(append([]core.SourcePath{}, args.Srcs...), args.Resources...)...)...)
	return NewPythonLibrary(params, spr, components), nil
}
