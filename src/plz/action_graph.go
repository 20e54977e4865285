package plz

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/rulekey"
)

// An ActionGraph is the set of build rules constructed from a TargetGraph.
type ActionGraph struct {
	Resolver *core.BuildRuleResolver
	RuleKeys *rulekey.Factory
}

// Rule returns the rule constructed for a target.
func (g *ActionGraph) Rule(target core.BuildTarget) (core.BuildRule, error) {
	return g.Resolver.GetRule(target)
}

// RuleKey returns the key of the rule constructed for a target.
func (g *ActionGraph) RuleKey(target core.BuildTarget) (core.RuleKey, error) {
	rule, err := g.Resolver.GetRule(target)
	if err != nil {
		return core.RuleKey{}, err
	}
	return g.RuleKeys.Build(rule)
}

// BuildActionGraph constructs a rule for every node of the given graph.
// Each node is constructed once all its dependencies have been, with up to
// [please] numthreads constructions running at once. The first failure cancels the rest.
func BuildActionGraph(ctx context.Context, graph *TargetGraph, registry *core.Registry, config *core.Configuration, pfs *fs.ProjectFilesystem) (*ActionGraph, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	resolver := core.NewBuildRuleResolver()
	keys := rulekey.NewFactory(config, pfs, resolver)
	threads := config.Please.NumThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	sem := semaphore.NewWeighted(int64(threads))
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	nodes := graph.Nodes()
	for _, node := range nodes {
		node := node
		g.Go(func() error {
			declared, err := waitForRules(ctx, resolver, node.DeclaredDeps)
			if err != nil {
				return err
			}
			extra, err := waitForRules(ctx, resolver, node.ExtraDeps)
			if err != nil {
				return err
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			params := core.NewBuildRuleParams(node.Target, core.OfInstance(core.MergeRules(declared)), core.OfInstance(core.MergeRules(extra)), pfs, keys)
			rule, err := registry.CreateBuildRule(node.Type, params, resolver, node.Arg)
			if err != nil {
				return err
			}
			_, err = resolver.AddToIndex(rule)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Info("Constructed %d rules in %s", len(nodes), time.Since(start).Round(time.Millisecond))
	return &ActionGraph{Resolver: resolver, RuleKeys: keys}, nil
}

// waitForRules returns the rules for the given targets, waiting for each to be constructed.
func waitForRules(ctx context.Context, resolver *core.BuildRuleResolver, targets []core.BuildTarget) ([]core.BuildRule, error) {
	rules := make([]core.BuildRule, len(targets))
	for i, t := range targets {
		rule, err := resolver.WaitForRule(ctx, t)
		if err != nil {
			return nil, err
		}
		rules[i] = rule
	}
	return rules, nil
}
