package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/step"
)

type fakeTest struct {
	*core.NoopBuildRule
	results func(ctx context.Context, dryRun bool) (*core.TestResults, error)
}

func newFakeTest(t *testing.T, target string, results func(ctx context.Context, dryRun bool) (*core.TestResults, error)) *fakeTest {
	pfs, err := fs.NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	params := core.NewBuildRuleParams(core.MustParseBuildTarget(target), core.OfInstance[[]core.BuildRule](nil), core.OfInstance[[]core.BuildRule](nil), pfs, nil)
	return &fakeTest{
		NoopBuildRule: core.NewNoopBuildRule(params, core.NewSourcePathResolver(core.NewBuildRuleResolver()), "fake_test"),
		results:       results,
	}
}

func (f *fakeTest) Labels() []string                                   { return nil }
func (f *fakeTest) Contacts() []string                                 { return nil }
func (f *fakeTest) PathToTestOutputDirectory() string                  { return core.GenPath(f.BuildTarget(), "%s_out") }
func (f *fakeTest) HasTestResultFiles(ectx *step.ExecutionContext) bool { return false }
func (f *fakeTest) RunTestSeparately() bool                            { return false }
func (f *fakeTest) SupportsStreamingTests() bool                       { return false }
func (f *fakeTest) SourceUnderTest() []core.BuildTarget                { return nil }

func (f *fakeTest) RunTests(ctx *core.BuildContext, ectx *step.ExecutionContext, options core.TestRunningOptions) ([]step.Step, error) {
	return nil, nil
}

func (f *fakeTest) InterpretTestResults(ectx *step.ExecutionContext, isUsingTestSelectors, isDryRun bool) *core.TestResultsTask {
	return core.NewTestResultsTask(func(ctx context.Context) (*core.TestResults, error) {
		return f.results(ctx, isDryRun)
	})
}

type externalFakeTest struct {
	*fakeTest
}

func (f *externalFakeTest) ExternalTestRunnerSpec(ectx *step.ExecutionContext, options core.TestRunningOptions) (core.ExternalTestRunnerTestSpec, error) {
	return core.ExternalTestRunnerTestSpec{
		Target:  f.BuildTarget(),
		Type:    "fake",
		Command: []string{"plz-out/bin/fake"},
		Env:     map[string]string{"A": "b"},
	}, nil
}

func passing(target core.BuildTarget, n int) *core.TestResults {
	summaries := make([]core.TestResultSummary, n)
	for i := range summaries {
		summaries[i] = core.TestResultSummary{TestCaseName: "Case", TestName: "test", Type: core.ResultSuccess, Time: 100}
	}
	return core.NewTestResults(target, []core.TestCaseSummary{core.NewTestCaseSummary(target.String(), summaries)}, nil, nil)
}

func TestInterpretAll(t *testing.T) {
	var a, b *fakeTest
	a = newFakeTest(t, "//tests:a", func(ctx context.Context, dryRun bool) (*core.TestResults, error) {
		return passing(a.BuildTarget(), 2), nil
	})
	b = newFakeTest(t, "//tests:b", func(ctx context.Context, dryRun bool) (*core.TestResults, error) {
		return passing(b.BuildTarget(), 1), nil
	})
	results, err := InterpretAll(context.Background(), nil, []core.TestRule{a, b}, core.TestRunningOptions{}, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a.BuildTarget(), results[0].Target)
	assert.Equal(t, 2, results[0].Passed())
	assert.Equal(t, b.BuildTarget(), results[1].Target)
	assert.Equal(t, "3 tests passed, 0 failed, 0 skipped in 300ms", Summarise(results))
}

func TestInterpretAllIsolatesFailures(t *testing.T) {
	var ok *fakeTest
	ok = newFakeTest(t, "//tests:ok", func(ctx context.Context, dryRun bool) (*core.TestResults, error) {
		return passing(ok.BuildTarget(), 1), nil
	})
	broken := newFakeTest(t, "//tests:broken", func(ctx context.Context, dryRun bool) (*core.TestResults, error) {
		return nil, core.ErrNoTestResults
	})
	results, err := InterpretAll(context.Background(), nil, []core.TestRule{broken, ok}, core.TestRunningOptions{}, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoTestResults)
	assert.Contains(t, err.Error(), "//tests:broken")
	assert.Nil(t, results[0])
	require.NotNil(t, results[1])
	assert.True(t, results[1].IsSuccess())
}

func TestInterpretAllPassesDryRun(t *testing.T) {
	var test *fakeTest
	test = newFakeTest(t, "//tests:dry", func(ctx context.Context, dryRun bool) (*core.TestResults, error) {
		if !dryRun {
			return nil, errors.New("should be a dry run")
		}
		return core.NewTestResults(test.BuildTarget(), nil, nil, nil), nil
	})
	results, err := InterpretAll(context.Background(), nil, []core.TestRule{test}, core.TestRunningOptions{DryRun: true}, 0)
	require.NoError(t, err)
	assert.Empty(t, results[0].TestCases)
}

func TestInterpretAllCancelled(t *testing.T) {
	called := false
	test := newFakeTest(t, "//tests:cancelled", func(ctx context.Context, dryRun bool) (*core.TestResults, error) {
		called = true
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := InterpretAll(ctx, nil, []core.TestRule{test}, core.TestRunningOptions{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestReadResultsFile(t *testing.T) {
	pfs, err := fs.NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	_, err = ReadResultsFile(pfs, "results.json")
	assert.ErrorIs(t, err, core.ErrNoTestResults)

	require.NoError(t, os.WriteFile(pfs.Resolve("results.json"), []byte(`[{"testCaseName": "A", "testName": "b", "type": "FAILURE", "time": 5, "message": "boom"}]`), 0644))
	summaries, err := ReadResultsFile(pfs, "results.json")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, core.ResultFailure, summaries[0].Type)
	assert.Equal(t, 5*time.Millisecond, summaries[0].Duration())

	require.NoError(t, os.WriteFile(pfs.Resolve("bad.json"), []byte(`{"not": "a list"}`), 0644))
	_, err = ReadResultsFile(pfs, "bad.json")
	assert.Error(t, err)
}

func TestReadResultsDir(t *testing.T) {
	pfs, err := fs.NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	_, err = ReadResultsDir(pfs, "out")
	assert.ErrorIs(t, err, core.ErrNoTestResults)

	require.NoError(t, pfs.MkdirAll("out/nested"))
	require.NoError(t, os.WriteFile(pfs.Resolve("out/b.json"), []byte(`[{"testCaseName": "B", "testName": "b", "type": "SUCCESS"}]`), 0644))
	require.NoError(t, os.WriteFile(pfs.Resolve("out/nested/a.json"), []byte(`[]`), 0644))
	require.NoError(t, os.WriteFile(pfs.Resolve("out/ignored.txt"), []byte(`hello`), 0644))
	cases, err := ReadResultsDir(pfs, "out")
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "out/b.json", cases[0].TestCaseName)
	assert.Equal(t, "out/nested/a.json", cases[1].TestCaseName)
	assert.Equal(t, 1, cases[0].Passed())
}

func TestExternalRunnerSpecs(t *testing.T) {
	plain := newFakeTest(t, "//tests:plain", nil)
	ext := &externalFakeTest{fakeTest: newFakeTest(t, "//tests:ext", nil)}
	specs, err := ExternalRunnerSpecs(nil, []core.TestRule{plain, ext}, core.TestRunningOptions{})
	require.NoError(t, err)
	require.Len(t, specs, 1)

	var buf bytes.Buffer
	require.NoError(t, WriteExternalRunnerSpecs(&buf, specs))
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "//tests:ext", decoded[0]["target"])
	assert.Equal(t, "fake", decoded[0]["type"])
	assert.Equal(t, []interface{}{"plz-out/bin/fake"}, decoded[0]["command"])
	assert.Equal(t, map[string]interface{}{"A": "b"}, decoded[0]["env"])
}

func TestWriteNoExternalRunnerSpecs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExternalRunnerSpecs(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
