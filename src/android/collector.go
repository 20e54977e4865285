package android

import (
	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/jvm"
)

// An AndroidPackageable is a rule that contributes something to an Android package.
type AndroidPackageable interface {
	core.BuildRule
	// RequiredPackageables returns the rules whose contributions this one needs in the same package.
	RequiredPackageables() []core.BuildRule
	// AddToCollector adds this rule's own contributions to the given collector.
	AddToCollector(collector *AndroidPackageableCollector)
}

// An AndroidPackageableCollection is everything collected for one Android package.
type AndroidPackageableCollection struct {
	// ClasspathEntries are the jars and class directories to dex, in the order found.
	ClasspathEntries []string
	// ClasspathEntriesByTarget maps each contributing rule to its entries.
	ClasspathEntriesByTarget map[core.BuildTarget][]string
	// Manifests are the manifest pieces to merge into the package's manifest.
	Manifests []core.SourcePath
}

// An AndroidPackageableCollector walks the graph beneath an Android package and gathers what
// each rule in it contributes. It's not safe for concurrent use.
type AndroidPackageableCollector struct {
	root      core.BuildTarget
	visited   map[core.BuildTarget]struct{}
	entries   []string
	seen      map[string]struct{}
	byTarget  map[core.BuildTarget][]string
	manifests []core.SourcePath
}

// NewAndroidPackageableCollector returns a new collector for the package built by the given target.
func NewAndroidPackageableCollector(root core.BuildTarget) *AndroidPackageableCollector {
	return &AndroidPackageableCollector{
		root:     root,
		visited:  map[core.BuildTarget]struct{}{},
		seen:     map[string]struct{}{},
		byTarget: map[core.BuildTarget][]string{},
	}
}

// AddClasspathEntry records a classpath entry contributed by the given target.
// Entries already collected are ignored.
func (c *AndroidPackageableCollector) AddClasspathEntry(target core.BuildTarget, path string) {
	if _, present := c.seen[path]; present {
		return
	}
	c.seen[path] = struct{}{}
	c.entries = append(c.entries, path)
	c.byTarget[target] = append(c.byTarget[target], path)
}

// AddManifestPiece records a manifest to be merged into the package.
func (c *AndroidPackageableCollector) AddManifestPiece(manifest core.SourcePath) {
	c.manifests = append(c.manifests, manifest)
}

// AddPackageables walks the given rules and everything they require, depth first, collecting
// their contributions. Each rule is visited once. Rules that aren't packageable but have a
// classpath contribute all of it; a rule that is neither is an error.
func (c *AndroidPackageableCollector) AddPackageables(rules []core.BuildRule) error {
	for _, rule := range rules {
		if err := c.add(rule); err != nil {
			return err
		}
	}
	return nil
}

func (c *AndroidPackageableCollector) add(rule core.BuildRule) error {
	target := rule.BuildTarget()
	if _, present := c.visited[target]; present {
		return nil
	}
	c.visited[target] = struct{}{}
	switch r := rule.(type) {
	case AndroidPackageable:
		if err := c.AddPackageables(r.RequiredPackageables()); err != nil {
			return err
		}
		r.AddToCollector(c)
	case jvm.HasClasspathEntries:
		entries, err := r.TransitiveClasspathEntries()
		if err != nil {
			return err
		}
		log.Debug("Adding %d classpath entries from %s to %s", len(entries), target, c.root)
		for _, entry := range entries {
			c.AddClasspathEntry(target, entry)
		}
	default:
		return core.NewHumanReadableError("%s (dep of %s) cannot be included in an Android package", target, c.root)
	}
	return nil
}

// Build returns everything collected so far.
func (c *AndroidPackageableCollector) Build() *AndroidPackageableCollection {
	byTarget := make(map[core.BuildTarget][]string, len(c.byTarget))
	for t, entries := range c.byTarget {
		byTarget[t] = append([]string(nil), entries...)
	}
	return &AndroidPackageableCollection{
		ClasspathEntries:         append([]string(nil), c.entries...),
		ClasspathEntriesByTarget: byTarget,
		Manifests:                append([]core.SourcePath(nil), c.manifests...),
	}
}
