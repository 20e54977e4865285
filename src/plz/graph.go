package plz

import (
	"fmt"
	"strings"

	"github.com/thought-machine/rulegraph/src/cli"
	"github.com/thought-machine/rulegraph/src/core"
)

// A TargetNode is the declaration of a single target: its type, the arguments to construct
// it with and the targets it depends on.
type TargetNode struct {
	Target       core.BuildTarget
	Type         core.BuildRuleType
	Arg          any
	DeclaredDeps []core.BuildTarget
	ExtraDeps    []core.BuildTarget
}

// Deps returns all the dependencies of this node.
func (node *TargetNode) Deps() []core.BuildTarget {
	deps := append(append([]core.BuildTarget{}, node.DeclaredDeps...), node.ExtraDeps...)
	core.SortBuildTargets(deps)
	return deps
}

// A TargetGraph is a set of target declarations. It's not safe for concurrent modification.
type TargetGraph struct {
	nodes map[core.BuildTarget]*TargetNode
}

// NewTargetGraph returns a new, empty graph.
func NewTargetGraph() *TargetGraph {
	return &TargetGraph{nodes: map[core.BuildTarget]*TargetNode{}}
}

// AddNode adds a node to the graph. It's an error if one already exists for its target.
func (g *TargetGraph) AddNode(node *TargetNode) error {
	if _, present := g.nodes[node.Target]; present {
		return fmt.Errorf("%w: %s", core.ErrDuplicateRule, node.Target)
	}
	g.nodes[node.Target] = node
	return nil
}

// Node returns the node for a target, or false if there isn't one.
func (g *TargetGraph) Node(target core.BuildTarget) (*TargetNode, bool) {
	node, present := g.nodes[target]
	return node, present
}

// Nodes returns all the nodes in the graph, sorted by target.
func (g *TargetGraph) Nodes() []*TargetNode {
	targets := make([]core.BuildTarget, 0, len(g.nodes))
	for t := range g.nodes {
		targets = append(targets, t)
	}
	core.SortBuildTargets(targets)
	nodes := make([]*TargetNode, len(targets))
	for i, t := range targets {
		nodes[i] = g.nodes[t]
	}
	return nodes
}

// Validate checks that every dependency in the graph exists and that there are no cycles.
func (g *TargetGraph) Validate() error {
	nodes := g.Nodes()
	for _, node := range nodes {
		for _, dep := range node.Deps() {
			if _, present := g.nodes[dep]; !present {
				return fmt.Errorf("%w: %s (dep of %s)%s", core.ErrRuleNotFound, dep, node.Target, g.suggest(dep))
			}
		}
	}
	c := newCycleDetector()
	for _, node := range nodes {
		for _, dep := range node.Deps() {
			if err := c.addDep(dependencyLink{from: node.Target, to: dep}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *TargetGraph) suggest(target core.BuildTarget) string {
	var candidates []string
	for t := range g.nodes {
		if t.BaseName() == target.BaseName() {
			candidates = append(candidates, t.FullyQualifiedName())
		}
	}
	return cli.PrettyPrintSuggestion(target.FullyQualifiedName(), candidates, 4)
}

type dependencyChain []core.BuildTarget

type dependencyLink struct {
	from core.BuildTarget
	to   core.BuildTarget
}

func (c dependencyChain) String() string {
	targets := make([]string, len(c))
	for i, t := range c {
		targets[i] = t.String()
	}
	return strings.Join(targets, "\n -> ")
}

type cycleDetector struct {
	deps map[core.BuildTarget][]core.BuildTarget
}

func newCycleDetector() *cycleDetector {
	return &cycleDetector{deps: map[core.BuildTarget][]core.BuildTarget{}}
}

// checkForCycle just checks to see if there's a dependency cycle. It doesn't compute the cycle to avoid excess
// allocations. buildCycle can be used to reconstruct the cycle once one has been found.
func (c *cycleDetector) checkForCycle(head, tail core.BuildTarget) bool {
	if head == tail {
		return true
	}
	for _, dep := range c.deps[tail] {
		if dep == head || c.checkForCycle(head, dep) {
			return true
		}
	}
	return false
}

// buildCycle is used to actually reconstruct the cycle after we've found one
func (c *cycleDetector) buildCycle(chain []core.BuildTarget) []core.BuildTarget {
	tail := chain[len(chain)-1]
	head := chain[0]
	if head == tail && len(chain) > 1 {
		return chain
	}
	for _, dep := range c.deps[tail] {
		if dep == head {
			return append(chain, dep)
		}
		if newChain := c.buildCycle(append(chain, dep)); newChain != nil {
			return newChain
		}
	}
	return nil
}

func (c *cycleDetector) addDep(link dependencyLink) error {
	if c.checkForCycle(link.from, link.to) {
		return failWithGraphCycle(c.buildCycle([]core.BuildTarget{link.from, link.to}))
	}
	c.deps[link.from] = append(c.deps[link.from], link.to)
	return nil
}

func failWithGraphCycle(cycle dependencyChain) error {
	return fmt.Errorf("Dependency cycle found:\n%s\nSorry, but you'll have to refactor your build files to avoid this cycle", cycle)
}
