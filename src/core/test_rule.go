package core

import (
	"context"
	"sync"

	"github.com/thought-machine/rulegraph/src/step"
)

// A TestRule is a rule that can be run as a test.
type TestRule interface {
	BuildRule
	// Labels returns the labels declared on the test.
	Labels() []string
	// Contacts returns the people or teams responsible for the test.
	Contacts() []string
	// PathToTestOutputDirectory returns the directory the test writes its results to.
	PathToTestOutputDirectory() string
	// HasTestResultFiles returns true if the test has left results behind from a previous run.
	HasTestResultFiles(ectx *step.ExecutionContext) bool
	// RunTests returns the steps that run the test, in order.
	RunTests(ctx *BuildContext, ectx *step.ExecutionContext, options TestRunningOptions) ([]step.Step, error)
	// InterpretTestResults returns a task that reads the results of a completed run.
	// It's not run until the caller chooses to, and might never be.
	InterpretTestResults(ectx *step.ExecutionContext, isUsingTestSelectors, isDryRun bool) *TestResultsTask
	// RunTestSeparately returns true if the test must not run concurrently with any others.
	RunTestSeparately() bool
	// SupportsStreamingTests returns true if the test can stream its results as it runs.
	SupportsStreamingTests() bool
	// SourceUnderTest returns the targets that this test is testing.
	SourceUnderTest() []BuildTarget
}

// HasRuntimeDeps is implemented by rules that need other rules to exist when they're run,
// beyond the dependencies needed to build them.
type HasRuntimeDeps interface {
	BuildRule
	// RuntimeDeps returns the runtime dependencies, sorted by target.
	RuntimeDeps() []BuildRule
}

// An ExternalTestRunnerRule is a test that can be run directly by a test runner outside
// the build graph.
type ExternalTestRunnerRule interface {
	TestRule
	// ExternalTestRunnerSpec returns the description of how to run this test.
	ExternalTestRunnerSpec(ectx *step.ExecutionContext, options TestRunningOptions) (ExternalTestRunnerTestSpec, error)
}

// An ExternalTestRunnerTestSpec describes how an external runner can invoke a test.
type ExternalTestRunnerTestSpec struct {
	Target   BuildTarget       `json:"target"`
	Type     string            `json:"type"`
	Command  []string          `json:"command"`
	Env      map[string]string `json:"env"`
	Labels   []string          `json:"labels"`
	Contacts []string          `json:"contacts"`
}

// TestRunningOptions controls how tests are run.
type TestRunningOptions struct {
	// DryRun skips actually running the tests.
	DryRun bool
	// TestSelectors restrict which test cases are run, if given.
	TestSelectors []string
}

// A TestResultsTask is a deferred unit of work that interprets the results of a test run.
// It runs at most once; every call to Run after the first returns the same result.
// It's fine for it never to be run at all.
type TestResultsTask struct {
	f       func(ctx context.Context) (*TestResults, error)
	once    sync.Once
	results *TestResults
	err     error
}

// NewTestResultsTask returns a new task that will call the given function when run.
func NewTestResultsTask(f func(ctx context.Context) (*TestResults, error)) *TestResultsTask {
	return &TestResultsTask{f: f}
}

// Run runs the task, if it hasn't been already, and returns its results.
// If the context is cancelled before the task starts, it fails without running and
// will fail the same way if run again.
func (t *TestResultsTask) Run(ctx context.Context) (*TestResults, error) {
	t.once.Do(func() {
		if err := ctx.Err(); err != nil {
			t.err = err
		} else {
			t.results, t.err = t.f(ctx)
		}
		t.f = nil
	})
	return t.results, t.err
}
