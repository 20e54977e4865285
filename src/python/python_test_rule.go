package python

import (
	"context"
	"fmt"
	"path"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/step"
)

// PythonTestType is the rule type of python_test.
const PythonTestType core.BuildRuleType = "python_test"

// BinaryFlavor is the flavor of the binary that a python_test runs.
var BinaryFlavor = core.MustNewFlavor("binary")

// A PythonTest runs a PythonBinary containing the test sources and reads back the results it
// writes. It builds nothing itself; the binary does all the work.
type PythonTest struct {
	*core.NoopBuildRule
	env             core.Supplier[map[string]string]
	binary          *PythonBinary
	additionalDeps  []core.BuildRule
	sourceUnderTest []core.BuildTarget
	labels          []string
	contacts        []string
}

// NewPythonTest returns a new PythonTest running the given binary. The environment is
// computed once, the first time it's needed.
func NewPythonTest(params *core.BuildRuleParams, resolver *core.SourcePathResolver, env core.Supplier[map[string]string], binary *PythonBinary, additionalDeps []core.BuildRule, sourceUnderTest []core.BuildTarget, labels, contacts []string) *PythonTest {
	return &PythonTest{
		NoopBuildRule:   core.NewNoopBuildRule(params, resolver, PythonTestType),
		env:             core.Memoize(env),
		binary:          binary,
		additionalDeps:  additionalDeps,
		sourceUnderTest: sourceUnderTest,
		labels:          labels,
		contacts:        contacts,
	}
}

// Binary returns the binary that this test runs.
func (test *PythonTest) Binary() *PythonBinary {
	return test.binary
}

// Env returns the environment variables the test is run with.
func (test *PythonTest) Env() map[string]string {
	return test.env.Get()
}

// Properties implements the core.BuildRule interface.
func (test *PythonTest) Properties() core.BuildableProperties {
	return core.NewBuildableProperties(core.TEST)
}

// Labels implements the core.TestRule interface.
func (test *PythonTest) Labels() []string {
	return test.labels
}

// Contacts implements the core.TestRule interface.
func (test *PythonTest) Contacts() []string {
	return test.contacts
}

// SourceUnderTest implements the core.TestRule interface.
func (test *PythonTest) SourceUnderTest() []core.BuildTarget {
	return test.sourceUnderTest
}

// PathToTestOutputDirectory implements the core.TestRule interface.
func (test *PythonTest) PathToTestOutputDirectory() string {
	return core.GenPath(test.BuildTarget(), "__test_%s_output__")
}

// PathToTestOutputResult returns the file that the test writes its results to.
func (test *PythonTest) PathToTestOutputResult() string {
	return path.Join(test.PathToTestOutputDirectory(), "results.json")
}

// HasTestResultFiles implements the core.TestRule interface.
func (test *PythonTest) HasTestResultFiles(ectx *step.ExecutionContext) bool {
	return test.ProjectFilesystem().IsFile(test.PathToTestOutputResult())
}

// RunTests implements the core.TestRule interface.
func (test *PythonTest) RunTests(ctx *core.BuildContext, ectx *step.ExecutionContext, options core.TestRunningOptions) ([]step.Step, error) {
	pfs := test.ProjectFilesystem()
	cmd, err := test.binary.ExecutableCommand().CommandPrefix(test.Resolver())
	if err != nil {
		return nil, err
	}
	args := append(cmd, "-o", pfs.Resolve(test.PathToTestOutputResult()))
	return []step.Step{
		step.NewMakeCleanDirectoryStep(pfs, test.PathToTestOutputDirectory()),
		step.NewShellStep("pyunit", pfs.Root(), args, test.env.Get()),
	}, nil
}

// InterpretTestResults implements the core.TestRule interface.
// On a dry run there's nothing to read and the results are empty.
func (test *PythonTest) InterpretTestResults(ectx *step.ExecutionContext, isUsingTestSelectors, isDryRun bool) *core.TestResultsTask {
	return core.NewTestResultsTask(func(ctx context.Context) (*core.TestResults, error) {
		var cases []core.TestCaseSummary
		if !isDryRun {
			data, present, err := test.ProjectFilesystem().ReadFileIfItExists(test.PathToTestOutputResult())
			if err != nil {
				return nil, err
			} else if !present {
				return nil, fmt.Errorf("%s: %w at %s", test.BuildTarget(), core.ErrNoTestResults, test.PathToTestOutputResult())
			}
			summaries, err := core.ParseTestResultSummaries(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", test.BuildTarget(), err)
			}
			cases = append(cases, core.NewTestCaseSummary(test.BuildTarget().FullyQualifiedName(), summaries))
		}
		return core.NewTestResults(test.BuildTarget(), cases, test.contacts, test.labels), nil
	})
}

// RunTestSeparately implements the core.TestRule interface.
func (test *PythonTest) RunTestSeparately() bool {
	return false
}

// SupportsStreamingTests implements the core.TestRule interface.
func (test *PythonTest) SupportsStreamingTests() bool {
	return false
}

// RuntimeDeps implements the core.HasRuntimeDeps interface.
// The test needs its binary to exist to run, even though it doesn't build it.
func (test *PythonTest) RuntimeDeps() []core.BuildRule {
	return core.MergeRules([]core.BuildRule{test.binary}, test.additionalDeps)
}

// ExternalTestRunnerSpec implements the core.ExternalTestRunnerRule interface.
func (test *PythonTest) ExternalTestRunnerSpec(ectx *step.ExecutionContext, options core.TestRunningOptions) (core.ExternalTestRunnerTestSpec, error) {
	cmd, err := test.binary.ExecutableCommand().CommandPrefix(test.Resolver())
	if err != nil {
		return core.ExternalTestRunnerTestSpec{}, err
	}
	return core.ExternalTestRunnerTestSpec{
		Target:   test.BuildTarget(),
		Type:     "pyunit",
		Command:  cmd,
		Env:      test.env.Get(),
		Labels:   test.labels,
		Contacts: test.contacts,
	}, nil
}

// AppendToRuleKey implements the core.BuildRule interface.
func (test *PythonTest) AppendToRuleKey(b core.RuleKeyBuilder) core.RuleKeyBuilder {
	return b.SetStringMap("env", test.env.Get())
}

// A PythonTestArg is the arguments of a python_test declaration.
type PythonTestArg struct {
	Srcs            []core.SourcePath `validate:"required"`
	Resources       []core.SourcePath
	Deps            []core.BuildTarget
	BaseModule      *string
	Labels          []string
	Contacts        []string
	Env             map[string]string
	SourceUnderTest []core.BuildTarget
}

// PythonTestDescription constructs python_test rules, along with the binaries they run.
type PythonTestDescription struct {
	config   *PythonConfig
	binaries *PythonBinaryDescription
}

// NewPythonTestDescription returns a new PythonTestDescription.
func NewPythonTestDescription(config *PythonConfig) *PythonTestDescription {
	return &PythonTestDescription{config: config, binaries: NewPythonBinaryDescription(config)}
}

// BuildRuleType implements the core.Description interface.
func (d *PythonTestDescription) BuildRuleType() core.BuildRuleType {
	return PythonTestType
}

// CreateUnpopulatedConstructorArg implements the core.Description interface.
func (d *PythonTestDescription) CreateUnpopulatedConstructorArg() *PythonTestArg {
	return &PythonTestArg{}
}

// CreateBuildRule implements the core.Description interface.
// The binary is added to the resolver as target#binary, and the test itself depends only on it.
func (d *PythonTestDescription) CreateBuildRule(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, args *PythonTestArg) (core.BuildRule, error) {
	target := params.BuildTarget()
	base := baseModule(target, args.BaseModule)
	components := PythonPackageComponents{
		Modules:   ToModuleMap(target, base, args.Srcs),
		Resources: ToModuleMap(target, base, args.Resources),
	}
	deps, err := TransitiveComponents(target, params.DeclaredDeps())
	if err != nil {
		return nil, err
	} else if err := components.Merge(deps, target); err != nil {
		return nil, err
	}
	binaryParams, err := params.WithFlavor(BinaryFlavor)
	if err != nil {
		return nil, err
	}
	spr := core.NewSourcePathResolver(resolver)
	binaryParams = binaryParams.AppendExtraDepsOf(spr.FilterBuildRuleInputs(append(append([]core.SourcePath{}, args.Srcs...), args.Resources...)...)...)
	binary, err := d.binaries.createBinary(binaryParams, resolver, "", d.config.TestRunner(), components)
	if err != nil {
		return nil, err
	}
	if _, err := resolver.AddToIndex(binary); err != nil {
		return nil, err
	}
	log.Debug("Created test binary %s", binary.BuildTarget())
	testParams := params.CopyWithDeps(core.OfInstance([]core.BuildRule{binary}), core.OfInstance[[]core.BuildRule](nil))
	env := core.SupplierFunc[map[string]string](func() map[string]string {
		ret := make(map[string]string, len(args.Env))
		for k, v := range args.Env {
			ret[k] = v
		}
		return ret
	})
	return NewPythonTest(testParams, spr, env, binary, params.DeclaredDeps(), args.SourceUnderTest, args.Labels, args.Contacts), nil
}
