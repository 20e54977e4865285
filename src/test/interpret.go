package test

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/metrics"
	"github.com/thought-machine/rulegraph/src/step"
)

// InterpretAll runs the result interpretation task of each of the given tests, at most
// parallelism at a time (or without limit if it's not positive).
// The results are returned in the same order as the rules; a test whose results can't be
// interpreted has a nil entry, and its error is included in the returned one. One test
// failing this way doesn't stop the others.
func InterpretAll(ctx context.Context, ectx *step.ExecutionContext, rules []core.TestRule, options core.TestRunningOptions, parallelism int) ([]*core.TestResults, error) {
	results := make([]*core.TestResults, len(rules))
	errs := make([]error, len(rules))
	var g errgroup.Group
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, rule := range rules {
		i, rule := i, rule
		task := rule.InterpretTestResults(ectx, len(options.TestSelectors) > 0, options.DryRun)
		g.Go(func() error {
			res, err := task.Run(ctx)
			if err != nil {
				metrics.TestResultsInterpreted(metrics.Errored, 1)
				errs[i] = fmt.Errorf("failed to interpret results of %s: %w", rule.BuildTarget(), err)
				return nil
			}
			metrics.TestResultsInterpreted(metrics.Passed, res.Passed())
			metrics.TestResultsInterpreted(metrics.Failed, res.Failed())
			metrics.TestResultsInterpreted(metrics.Skipped, res.Skipped())
			log.Debug("%s: %d passed, %d failed, %d skipped", rule.BuildTarget(), res.Passed(), res.Failed(), res.Skipped())
			results[i] = res
			return nil
		})
	}
	g.Wait()
	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return results, merr.ErrorOrNil()
}

// Summarise returns a one-line summary of a set of test results, eg.
// "3 tests passed, 1 failed, 0 skipped in 1.2s".
func Summarise(results []*core.TestResults) string {
	passed, failed, skipped := 0, 0, 0
	var duration time.Duration
	for _, res := range results {
		if res != nil {
			passed += res.Passed()
			failed += res.Failed()
			skipped += res.Skipped()
			duration += res.Duration()
		}
	}
	return fmt.Sprintf("%s %s passed, %s failed, %s skipped in %s",
		humanize.Comma(int64(passed)), pluralise(passed+failed+skipped, "test", "tests"),
		humanize.Comma(int64(failed)), humanize.Comma(int64(skipped)), duration.Round(time.Millisecond))
}

func pluralise(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
