package python

import (
	"path"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/step"
)

// PythonBinaryType is the rule type of python_binary.
const PythonBinaryType core.BuildRuleType = "python_binary"

// A PythonBinary packages its components into a self-executing .pex file.
type PythonBinary struct {
	core.AbstractBuildRule
	pex         core.Tool
	interpreter string
	mainModule  string
	components  PythonPackageComponents
	output      string
}

// NewPythonBinary returns a new PythonBinary, whose output is a .pex named after the rule.
func NewPythonBinary(params *core.BuildRuleParams, resolver *core.SourcePathResolver, pex core.Tool, interpreter, mainModule string, components PythonPackageComponents) *PythonBinary {
	return &PythonBinary{
		AbstractBuildRule: core.NewAbstractBuildRule(params, resolver),
		pex:               pex,
		interpreter:       interpreter,
		mainModule:        mainModule,
		components:        components,
		output:            core.BinPath(params.BuildTarget(), "%s.pex"),
	}
}

// Type implements the core.BuildRule interface.
func (bin *PythonBinary) Type() core.BuildRuleType {
	return PythonBinaryType
}

// PathToOutput implements the core.BuildRule interface.
func (bin *PythonBinary) PathToOutput() string {
	return bin.output
}

// Properties implements the core.BuildRule interface.
func (bin *PythonBinary) Properties() core.BuildableProperties {
	return core.NewBuildableProperties(core.BINARY)
}

// MainModule returns the module that's run when the binary starts.
func (bin *PythonBinary) MainModule() string {
	return bin.mainModule
}

// Components returns everything packaged into this binary.
func (bin *PythonBinary) Components() PythonPackageComponents {
	return bin.components
}

// ExecutableCommand implements the core.HasExecutableCommand interface.
func (bin *PythonBinary) ExecutableCommand() core.Tool {
	return core.NewCommandTool(core.NewBuildTargetSourcePathWithPath(bin.BuildTarget(), bin.output))
}

// BuildSteps implements the core.BuildRule interface.
func (bin *PythonBinary) BuildSteps(ctx *core.BuildContext) ([]step.Step, error) {
	pex, err := bin.pex.CommandPrefix(bin.Resolver())
	if err != nil {
		return nil, err
	}
	args := append(pex, "--python", bin.interpreter, "--entry-point", bin.mainModule, "--out", bin.output)
	for _, dest := range sortedKeys(bin.components.Modules) {
		src, err := bin.Resolver().Path(bin.components.Modules[dest])
		if err != nil {
			return nil, err
		}
		args = append(args, "--module", dest+"="+src)
	}
	for _, dest := range sortedKeys(bin.components.Resources) {
		src, err := bin.Resolver().Path(bin.components.Resources[dest])
		if err != nil {
			return nil, err
		}
		args = append(args, "--resource", dest+"="+src)
	}
	pfs := bin.ProjectFilesystem()
	return []step.Step{
		step.NewMkdirStep(pfs, path.Dir(bin.output)),
		step.NewShellStep("pex", pfs.Root(), args, nil),
	}, nil
}

// AppendToRuleKey implements the core.BuildRule interface.
func (bin *PythonBinary) AppendToRuleKey(b core.RuleKeyBuilder) core.RuleKeyBuilder {
	b = bin.pex.AppendToRuleKey("pex", b).
		SetString("interpreter", bin.interpreter).
		SetString("mainModule", bin.mainModule)
	return appendComponentsToRuleKey(b, bin.components)
}

// A PythonBinaryArg is the arguments of a python_binary declaration.
type PythonBinaryArg struct {
	MainModule  string `validate:"required"`
	Deps        []core.BuildTarget
	Interpreter string
}

// PythonBinaryDescription constructs python_binary rules.
type PythonBinaryDescription struct {
	config *PythonConfig
}

// NewPythonBinaryDescription returns a new PythonBinaryDescription.
func NewPythonBinaryDescription(config *PythonConfig) *PythonBinaryDescription {
	return &PythonBinaryDescription{config: config}
}

// BuildRuleType implements the core.Description interface.
func (d *PythonBinaryDescription) BuildRuleType() core.BuildRuleType {
	return PythonBinaryType
}

// CreateUnpopulatedConstructorArg implements the core.Description interface.
func (d *PythonBinaryDescription) CreateUnpopulatedConstructorArg() *PythonBinaryArg {
	return &PythonBinaryArg{}
}

// CreateBuildRule implements the core.Description interface.
func (d *PythonBinaryDescription) CreateBuildRule(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, args *PythonBinaryArg) (core.BuildRule, error) {
	components, err := TransitiveComponents(params.BuildTarget(), params.DeclaredDeps())
	if err != nil {
		return nil, err
	}
	return d.createBinary(params, resolver, args.Interpreter, args.MainModule, components)
}

// createBinary creates a binary from the given components, adding the pex tool's rules to its deps.
func (d *PythonBinaryDescription) createBinary(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, interpreter, mainModule string, components PythonPackageComponents) (*PythonBinary, error) {
	pex, err := d.config.PexTool()
	if err != nil {
		return nil, err
	}
	if interpreter == "" {
		interpreter = d.config.Interpreter()
	}
	spr := core.NewSourcePathResolver(resolver)
	params = params.AppendExtraDepsOf(pex.Deps(spr)...)
	return NewPythonBinary(params, spr, pex, interpreter, mainModule, components), nil
}
