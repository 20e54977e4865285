package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/coreos/go-semver/semver"
	_ "go.uber.org/automaxprocs"

	"github.com/thought-machine/rulegraph/src/cli"
	"github.com/thought-machine/rulegraph/src/cli/logging"
	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/metrics"
	"github.com/thought-machine/rulegraph/src/plz"
	"github.com/thought-machine/rulegraph/src/python"
	"github.com/thought-machine/rulegraph/src/step"
	"github.com/thought-machine/rulegraph/src/test"
)

var log = logging.Log

// version is the version of this tool, checked against [please] version in config.
const version = "1.0.0"

var opts struct {
	Usage      string            `usage:"rulegraph constructs build rule graphs from target declarations and interprets the results of their tests."`
	RepoRoot   cli.Filepath      `short:"r" long:"repo_root" description:"Root of repository to operate on." default:"."`
	Verbosity  cli.Verbosity     `short:"v" long:"verbosity" description:"Verbosity of output (error, warning, notice, info, debug)" default:"warning"`
	NumThreads int               `short:"n" long:"num_threads" description:"Number of rules to construct concurrently. Defaults to [please] numthreads."`
	Override   map[string]string `short:"o" long:"override" description:"Overrides a config setting, eg. -o python.pextool:/usr/local/bin/pex"`
	Version    bool              `long:"version" description:"Print the version of the tool"`

	Types struct {
	} `command:"types" description:"Lists the rule types that can be constructed"`

	Target struct {
		Flavors []string `short:"f" long:"flavor" description:"Flavors to add to each target"`
		Args    struct {
			Targets []core.BuildTarget `positional-arg-name:"targets" description:"Targets to canonicalise" required:"true"`
		} `positional-args:"true" required:"true"`
	} `command:"target" description:"Canonicalises targets and prints their names and output locations"`

	Results struct {
		DryRun   bool           `long:"dry_run" description:"Don't read any results files, as if the test hadn't been run"`
		External bool           `long:"external" description:"Print the JSON description of the test for an external runner instead of its results"`
		Dir      cli.Filepath   `long:"results_dir" description:"Directory of .json results files written by an external runner, read instead of the test's own results"`
		Srcs     []cli.Filepath `long:"src" description:"Sources of the test. Defaults to <package>/<name>.py"`
		Labels   []string       `long:"label" description:"Labels to attach to the test"`
		Args     struct {
			Target core.BuildTarget `positional-arg-name:"target" description:"Python test target to interpret results of" required:"true"`
		} `positional-args:"true" required:"true"`
	} `command:"results" description:"Interprets the results of a python_test"`
}

// Definitions of what we do for each command.
// Functions are called after args are parsed and return true for success.
var commands = map[string]func(config *core.Configuration) bool{
	"types": func(config *core.Configuration) bool {
		for _, t := range plz.DefaultRegistry(config).Types() {
			fmt.Println(t)
		}
		return true
	},
	"target": func(config *core.Configuration) bool {
		flavors := make([]core.Flavor, len(opts.Target.Flavors))
		for i, f := range opts.Target.Flavors {
			flavor, err := core.NewFlavor(f)
			if err != nil {
				log.Error("%s", err)
				return false
			}
			flavors[i] = flavor
		}
		for _, t := range opts.Target.Args.Targets {
			target, err := core.NewBuildTargetBuilder(t).AddFlavors(flavors...).Build()
			if err != nil {
				log.Error("%s", err)
				return false
			}
			fmt.Printf("%s\t%s\n", target.FullyQualifiedName(), core.GenPath(target, "%s"))
		}
		return true
	},
	"results": func(config *core.Configuration) bool {
		return interpretResults(config)
	},
}

// interpretResults constructs the requested python_test and reads back its results.
func interpretResults(config *core.Configuration) bool {
	target := opts.Results.Args.Target
	arg := &python.PythonTestArg{Labels: opts.Results.Labels}
	for _, src := range opts.Results.Srcs {
		arg.Srcs = append(arg.Srcs, core.NewPathSourcePath(string(src)))
	}
	if len(arg.Srcs) == 0 {
		arg.Srcs = []core.SourcePath{core.NewPathSourcePath(path.Join(target.BasePath(), target.ShortName()+".py"))}
	}
	graph := plz.NewTargetGraph()
	if err := graph.AddNode(&plz.TargetNode{Target: target, Type: python.PythonTestType, Arg: arg}); err != nil {
		log.Error("%s", err)
		return false
	}
	pfs, err := fs.NewProjectFilesystem(string(opts.RepoRoot))
	if err != nil {
		log.Error("%s", err)
		return false
	}
	if opts.Results.Dir != "" {
		return interpretResultsDir(pfs, target)
	}
	ctx := context.Background()
	ag, err := plz.BuildActionGraph(ctx, graph, plz.DefaultRegistry(config), config, pfs)
	if err != nil {
		log.Error("%s", err)
		return false
	}
	rule, err := ag.Rule(target)
	if err != nil {
		log.Error("%s", err)
		return false
	}
	rules := []core.TestRule{rule.(core.TestRule)}
	ectx := step.NewExecutionContext(pfs, time.Duration(config.Test.Timeout)*time.Second)
	options := core.TestRunningOptions{DryRun: opts.Results.DryRun}
	if opts.Results.External {
		specs, err := test.ExternalRunnerSpecs(ectx, rules, options)
		if err != nil {
			log.Error("%s", err)
			return false
		}
		if err := test.WriteExternalRunnerSpecs(os.Stdout, specs); err != nil {
			log.Error("Failed to write test specs: %s", err)
			return false
		}
		return true
	}
	results, err := test.InterpretAll(ctx, ectx, rules, options, config.Please.NumThreads)
	if err != nil {
		log.Error("%s", err)
		return false
	}
	return printResults(results)
}

// interpretResultsDir reads back results that an external runner wrote for the given target.
func interpretResultsDir(pfs *fs.ProjectFilesystem, target core.BuildTarget) bool {
	cases, err := test.ReadResultsDir(pfs, string(opts.Results.Dir))
	if err != nil {
		log.Error("%s", err)
		return false
	}
	return printResults([]*core.TestResults{core.NewTestResults(target, cases, nil, opts.Results.Labels)})
}

func printResults(results []*core.TestResults) bool {
	for _, res := range results {
		for _, msg := range res.FailureMessages() {
			fmt.Printf("FAIL: %s\n", msg)
		}
	}
	fmt.Println(test.Summarise(results))
	for _, res := range results {
		if !res.IsSuccess() {
			return false
		}
	}
	return true
}

// readConfig reads the config files from the repo root and applies any overrides to them.
func readConfig() *core.Configuration {
	config, err := core.ReadConfigFiles(core.DefaultConfigFiles())
	if err != nil {
		log.Fatalf("Error reading config file: %s", err)
	}
	if err := config.ApplyOverrides(opts.Override); err != nil {
		log.Fatalf("Can't override requested config setting: %s", err)
	}
	if !config.Please.Version.Accepts(*semver.New(version)) {
		log.Fatalf("This repo requires version %s, but this is version %s", config.Please.Version, version)
	}
	if opts.NumThreads > 0 {
		config.Please.NumThreads = opts.NumThreads
	}
	return config
}

func main() {
	command := cli.ParseFlagsOrDie("rulegraph", &opts)
	if opts.Version {
		fmt.Printf("rulegraph version %s\n", version)
		os.Exit(0)
	}
	cli.InitLogging(opts.Verbosity)
	root, err := filepath.Abs(string(opts.RepoRoot))
	if err != nil {
		log.Fatalf("%s", err)
	}
	// We always run from the repo root, so move there now.
	if err := os.Chdir(root); err != nil {
		log.Fatalf("%s", err)
	}
	opts.RepoRoot = cli.Filepath(root)
	config := readConfig()
	if url := config.Metrics.PushGatewayURL; url != "" {
		if err := metrics.InitPush(url, time.Duration(config.Metrics.PushTimeout)*time.Second, config.CustomMetricLabels()); err != nil {
			log.Warning("Failed to initialise metrics: %s", err)
		} else {
			cli.AtExit(metrics.Stop)
		}
	}
	f, present := commands[command]
	if !present {
		log.Fatalf("Unknown command %s", command)
	}
	success := f(config)
	cli.RunAtExit()
	if !success {
		os.Exit(1)
	}
}
