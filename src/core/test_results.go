package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// A ResultType is the outcome of a single test case.
type ResultType string

// The possible outcomes of a test.
const (
	ResultSuccess             ResultType = "SUCCESS"
	ResultFailure             ResultType = "FAILURE"
	ResultAssumptionViolation ResultType = "ASSUMPTION_VIOLATION"
	ResultDisabled            ResultType = "DISABLED"
	ResultExcluded            ResultType = "EXCLUDED"
	ResultDryRun              ResultType = "DRY_RUN"
)

// A TestResultSummary is the result of a single test within a test case.
// It's the format that test binaries write their results in.
type TestResultSummary struct {
	TestCaseName string     `json:"testCaseName"`
	TestName     string     `json:"testName"`
	Type         ResultType `json:"type"`
	// Time is the duration of the test, in milliseconds.
	Time       int64  `json:"time"`
	Message    string `json:"message,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
	StdOut     string `json:"stdOut,omitempty"`
	StdErr     string `json:"stdErr,omitempty"`
}

// IsSuccess returns true if this test didn't fail.
func (s TestResultSummary) IsSuccess() bool {
	return s.Type != ResultFailure
}

// Duration returns the time taken by this test.
func (s TestResultSummary) Duration() time.Duration {
	return time.Duration(s.Time) * time.Millisecond
}

// ParseTestResultSummaries parses a results file, which is a JSON array of summaries.
func ParseTestResultSummaries(data []byte) ([]TestResultSummary, error) {
	var summaries []TestResultSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, fmt.Errorf("invalid test results: %w", err)
	}
	return summaries, nil
}

// A TestCaseSummary groups the results of a test case.
type TestCaseSummary struct {
	TestCaseName string
	Results      []TestResultSummary
}

// NewTestCaseSummary returns a new TestCaseSummary.
func NewTestCaseSummary(name string, results []TestResultSummary) TestCaseSummary {
	return TestCaseSummary{TestCaseName: name, Results: results}
}

// Passed returns the number of tests in this case that passed.
func (s TestCaseSummary) Passed() int {
	return s.count(func(r TestResultSummary) bool { return r.Type == ResultSuccess })
}

// Failed returns the number of tests in this case that failed.
func (s TestCaseSummary) Failed() int {
	return s.count(func(r TestResultSummary) bool { return r.Type == ResultFailure })
}

// Skipped returns the number of tests in this case that neither passed nor failed.
func (s TestCaseSummary) Skipped() int {
	return len(s.Results) - s.Passed() - s.Failed()
}

// IsSuccess returns true if nothing in this case failed.
func (s TestCaseSummary) IsSuccess() bool {
	return s.Failed() == 0
}

// Duration returns the total time taken by the tests in this case.
func (s TestCaseSummary) Duration() time.Duration {
	var d time.Duration
	for _, r := range s.Results {
		d += r.Duration()
	}
	return d
}

func (s TestCaseSummary) count(f func(TestResultSummary) bool) int {
	n := 0
	for _, r := range s.Results {
		if f(r) {
			n++
		}
	}
	return n
}

// TestResults are the complete results of running a test rule.
type TestResults struct {
	Target    BuildTarget
	TestCases []TestCaseSummary
	Contacts  []string
	Labels    []string
}

// NewTestResults returns a new TestResults.
func NewTestResults(target BuildTarget, testCases []TestCaseSummary, contacts, labels []string) *TestResults {
	return &TestResults{Target: target, TestCases: testCases, Contacts: contacts, Labels: labels}
}

// Passed returns the number of tests that passed.
func (r *TestResults) Passed() int {
	return r.sum(TestCaseSummary.Passed)
}

// Failed returns the number of tests that failed.
func (r *TestResults) Failed() int {
	return r.sum(TestCaseSummary.Failed)
}

// Skipped returns the number of tests that neither passed nor failed.
func (r *TestResults) Skipped() int {
	return r.sum(TestCaseSummary.Skipped)
}

// IsSuccess returns true if no tests failed.
func (r *TestResults) IsSuccess() bool {
	return r.Failed() == 0
}

// Duration returns the total time taken by all tests.
func (r *TestResults) Duration() time.Duration {
	var d time.Duration
	for _, tc := range r.TestCases {
		d += tc.Duration()
	}
	return d
}

// FailureMessages returns a description of each failed test, for display to the user.
func (r *TestResults) FailureMessages() []string {
	var msgs []string
	for _, tc := range r.TestCases {
		for _, res := range tc.Results {
			if res.Type == ResultFailure {
				msg := tc.TestCaseName + "." + res.TestName
				if res.Message != "" {
					msg += ": " + strings.TrimSpace(res.Message)
				}
				msgs = append(msgs, msg)
			}
		}
	}
	return msgs
}

func (r *TestResults) sum(f func(TestCaseSummary) int) int {
	n := 0
	for _, tc := range r.TestCases {
		n += f(tc)
	}
	return n
}
