// Package test interprets the results of test rules once they've run, and describes them
// to external test runners.
package test

import (
	"fmt"
	"path"

	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/fs"
)

var log = logging.MustGetLogger("test")

// ReadResultsFile reads a single results file, which is a JSON array of summaries.
func ReadResultsFile(pfs *fs.ProjectFilesystem, filename string) ([]core.TestResultSummary, error) {
	data, present, err := pfs.ReadFileIfItExists(filename)
	if err != nil {
		return nil, err
	} else if !present {
		return nil, fmt.Errorf("%w in %s", core.ErrNoTestResults, filename)
	}
	summaries, err := core.ParseTestResultSummaries(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", filename, err)
	}
	return summaries, nil
}

// ReadResultsDir reads every .json results file beneath a directory, in lexical order, and
// groups them into one test case per file.
func ReadResultsDir(pfs *fs.ProjectFilesystem, dir string) ([]core.TestCaseSummary, error) {
	if !pfs.IsDir(dir) {
		return nil, fmt.Errorf("%w in %s", core.ErrNoTestResults, dir)
	}
	files, err := pfs.Files(dir)
	if err != nil {
		return nil, err
	}
	var cases []core.TestCaseSummary
	for _, file := range files {
		if path.Ext(file) != ".json" {
			continue
		}
		summaries, err := ReadResultsFile(pfs, file)
		if err != nil {
			return nil, err
		}
		cases = append(cases, core.NewTestCaseSummary(file, summaries))
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w in %s", core.ErrNoTestResults, dir)
	}
	return cases, nil
}
