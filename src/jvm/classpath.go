// Package jvm contains the rules for building JVM languages (Java and Scala) and the
// classpath capability that lets them depend on one another.
package jvm

import (
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/core"
)

var log = logging.MustGetLogger("jvm")

// HasClasspathEntries is implemented by rules that contribute to the classpath of anything
// depending on them.
type HasClasspathEntries interface {
	core.BuildRule
	// TransitiveClasspathEntries returns this rule's own output followed by the classpath
	// entries of everything it depends on, without duplicates.
	TransitiveClasspathEntries() ([]string, error)
}

// ClasspathOf returns the classpath formed by the given dependencies of a rule, in order and
// without duplicates. Every dependency must have a classpath; the error otherwise names both
// the dependency and the dependent rule so the user can fix their build definitions.
func ClasspathOf(dependent core.BuildTarget, deps []core.BuildRule) ([]string, error) {
	var cp classpath
	for _, dep := range deps {
		hce, ok := dep.(HasClasspathEntries)
		if !ok {
			return nil, core.NewHumanReadableError("%s (dep of %s) is not known to have a classpath!",
				dep.BuildTarget().FullyQualifiedName(), dependent.FullyQualifiedName())
		}
		entries, err := hce.TransitiveClasspathEntries()
		if err != nil {
			return nil, err
		}
		cp.add(entries...)
	}
	return cp.entries, nil
}

// A classpath is an insertion-ordered set of entries.
type classpath struct {
	entries []string
	seen    map[string]struct{}
}

func (cp *classpath) add(entries ...string) {
	if cp.seen == nil {
		cp.seen = map[string]struct{}{}
	}
	for _, e := range entries {
		if _, present := cp.seen[e]; !present {
			cp.seen[e] = struct{}{}
			cp.entries = append(cp.entries, e)
		}
	}
}

// classpathResult is the memoized outcome of computing a rule's classpath.
type classpathResult struct {
	entries []string
	err     error
}

// memoizeClasspath returns a supplier that computes the transitive classpath of a rule once:
// its own output (if it has one) followed by that of its deps.
func memoizeClasspath(target core.BuildTarget, output string, deps func() []core.BuildRule) core.Supplier[classpathResult] {
	return core.MemoizeFunc(func() classpathResult {
		depEntries, err := ClasspathOf(target, deps())
		if err != nil {
			return classpathResult{err: err}
		}
		var cp classpath
		if output != "" {
			cp.add(output)
		}
		cp.add(depEntries...)
		return classpathResult{entries: cp.entries}
	})
}
