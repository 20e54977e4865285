package core

import "encoding/hex"

// A RuleKey is a deterministic fingerprint of a rule's inputs, used to decide whether it
// needs rebuilding. Two rules with the same key are interchangeable.
type RuleKey [32]byte

// String returns the hex encoded form of this key.
func (k RuleKey) String() string {
	return hex.EncodeToString(k[:])
}

// A RuleKeyBuilder accumulates the fields of a rule that contribute to its key.
// Each field is named, so that adding or removing fields changes the key.
type RuleKeyBuilder interface {
	SetString(name, value string) RuleKeyBuilder
	SetStrings(name string, values []string) RuleKeyBuilder
	SetBool(name string, value bool) RuleKeyBuilder
	SetStringMap(name string, values map[string]string) RuleKeyBuilder
	// SetSourcePath adds a source, which includes the contents of the file (or the key of the
	// rule that produces it).
	SetSourcePath(name string, path SourcePath) RuleKeyBuilder
	SetSourcePaths(name string, paths []SourcePath) RuleKeyBuilder
	// SetRule adds the key of another rule.
	SetRule(name string, rule BuildRule) RuleKeyBuilder
	// Build returns the final key, or the first error encountered adding anything to it.
	Build() (RuleKey, error)
}

// A RuleKeyBuilderFactory creates the RuleKeyBuilders for rules.
// It's passed to rule construction opaquely via BuildRuleParams.
type RuleKeyBuilderFactory interface {
	// NewInstance returns a builder pre-populated with the fields common to every rule:
	// its target, type and the keys of its dependencies.
	NewInstance(rule BuildRule) RuleKeyBuilder
	// Build returns the complete key for a rule. It's memoized per target.
	Build(rule BuildRule) (RuleKey, error)
}
