package test

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/step"
)

// ExternalRunnerSpecs returns the specs of each of the given tests that can be run by an
// external runner. Other tests are skipped.
func ExternalRunnerSpecs(ectx *step.ExecutionContext, rules []core.TestRule, options core.TestRunningOptions) ([]core.ExternalTestRunnerTestSpec, error) {
	specs := make([]core.ExternalTestRunnerTestSpec, 0, len(rules))
	for _, rule := range rules {
		ext, ok := rule.(core.ExternalTestRunnerRule)
		if !ok {
			log.Warning("%s can't be run by an external test runner, skipping", rule.BuildTarget())
			continue
		}
		spec, err := ext.ExternalTestRunnerSpec(ectx, options)
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s for external runner: %w", rule.BuildTarget(), err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// WriteExternalRunnerSpecs writes the given specs to w as an indented JSON array.
func WriteExternalRunnerSpecs(w io.Writer, specs []core.ExternalTestRunnerTestSpec) error {
	if specs == nil {
		specs = []core.ExternalTestRunnerTestSpec{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(specs)
}
