package core

import (
	"context"
	"fmt"

	"github.com/thought-machine/rulegraph/src/cli"
	"github.com/thought-machine/rulegraph/src/cmap"
)

// A BuildRuleResolver is the index of every rule constructed so far in this graph.
// It's safe for concurrent use; rules under construction in one goroutine can be awaited
// from another.
type BuildRuleResolver struct {
	rules *cmap.Map[BuildTarget, BuildRule]
}

// NewBuildRuleResolver returns a new resolver, optionally containing some initial rules.
// It panics if any of the rules share a target.
func NewBuildRuleResolver(rules ...BuildRule) *BuildRuleResolver {
	r := &BuildRuleResolver{rules: cmap.New[BuildTarget, BuildRule](cmap.DefaultShardCount, hashBuildTarget)}
	for _, rule := range rules {
		if _, err := r.AddToIndex(rule); err != nil {
			panic(err)
		}
	}
	return r
}

func hashBuildTarget(target BuildTarget) uint64 {
	return cmap.XXHash(target.FullyQualifiedName())
}

// AddToIndex adds a newly constructed rule to the index and returns it.
// It's an error if a rule already exists for its target.
func (r *BuildRuleResolver) AddToIndex(rule BuildRule) (BuildRule, error) {
	if !r.rules.Add(rule.BuildTarget(), rule) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.BuildTarget())
	}
	return rule, nil
}

// GetRule returns the rule for the given target, or ErrRuleNotFound if there isn't one yet.
func (r *BuildRuleResolver) GetRule(target BuildTarget) (BuildRule, error) {
	if rule, ok := r.rules.Get(target); ok {
		return rule, nil
	}
	return nil, fmt.Errorf("%w: %s%s", ErrRuleNotFound, target, r.suggest(target))
}

// GetRuleOptional returns the rule for the given target, and false if there isn't one yet.
func (r *BuildRuleResolver) GetRuleOptional(target BuildTarget) (BuildRule, bool) {
	return r.rules.Get(target)
}

// GetAllRules returns the rules for all the given targets, in the same order.
func (r *BuildRuleResolver) GetAllRules(targets []BuildTarget) ([]BuildRule, error) {
	ret := make([]BuildRule, len(targets))
	for i, t := range targets {
		rule, err := r.GetRule(t)
		if err != nil {
			return nil, err
		}
		ret[i] = rule
	}
	return ret, nil
}

// WaitForRule returns the rule for the given target, waiting for it to be added if it hasn't
// been yet. It returns early if the context is cancelled.
func (r *BuildRuleResolver) WaitForRule(ctx context.Context, target BuildTarget) (BuildRule, error) {
	rule, wait, _ := r.rules.GetOrWait(target)
	if wait == nil {
		return rule, nil
	}
	select {
	case <-wait:
		return r.GetRule(target)
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", target, ctx.Err())
	}
}

// Rules returns all the rules currently in the index, sorted by target.
func (r *BuildRuleResolver) Rules() []BuildRule {
	rules := r.rules.Values()
	SortRules(rules)
	return rules
}

// suggest returns a suggestion of similarly named targets in the same package.
func (r *BuildRuleResolver) suggest(target BuildTarget) string {
	var candidates []string
	for _, rule := range r.rules.Values() {
		if t := rule.BuildTarget(); t.BaseName() == target.BaseName() {
			candidates = append(candidates, t.FullyQualifiedName())
		}
	}
	return cli.PrettyPrintSuggestion(target.FullyQualifiedName(), candidates, 4)
}
