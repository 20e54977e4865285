package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

// A BuildTarget is the canonical name of a node in the build graph: an unflavored target
// plus a naturally ordered set of flavors, eg. //third_party/java/guava:guava-latest#src,abi
//
// BuildTargets are immutable comparable values, so they can be used directly as map keys.
// Two targets are equal exactly when their fully qualified names are.
type BuildTarget struct {
	unflavored UnflavoredBuildTarget
	// Flavors joined with commas, always in natural order. Kept as a string so the
	// struct remains comparable.
	flavors string
}

// Fully specified targets, e.g. @cell//src/core:core#flavor1,flavor2
var buildTargetRegex = deferredregex.DeferredRegex{Re: `^(?:@([^/]+))?(//[^:#]*):([^:#]+)(?:#(.*))?$`}

// TryNewBuildTarget constructs a new target from the given unflavored target and flavors.
// The flavors must already be in natural order without duplicates; anything else is a
// programming error in the caller and is rejected with ErrFlavorOrdering.
func TryNewBuildTarget(unflavored UnflavoredBuildTarget, flavors []Flavor) (BuildTarget, error) {
	if unflavored.IsZero() {
		return BuildTarget{}, fmt.Errorf("%w: missing unflavored target", ErrInvalidTarget)
	}
	for _, f := range flavors {
		if _, err := NewFlavor(string(f)); err != nil {
			return BuildTarget{}, err
		}
	}
	if !flavorsInNaturalOrder(flavors) {
		return BuildTarget{}, fmt.Errorf("%w: %s#%s", ErrFlavorOrdering, unflavored, joinFlavors(flavors))
	}
	return BuildTarget{unflavored: unflavored, flavors: joinFlavors(flavors)}, nil
}

// NewBuildTarget constructs a new target from the given components. Panics on failure.
func NewBuildTarget(unflavored UnflavoredBuildTarget, flavors ...Flavor) BuildTarget {
	t, err := TryNewBuildTarget(unflavored, flavors)
	if err != nil {
		panic(err)
	}
	return t
}

// BuildTargetOf returns the target for an unflavored target, with no flavors.
func BuildTargetOf(unflavored UnflavoredBuildTarget) BuildTarget {
	return BuildTarget{unflavored: unflavored}
}

// ParseBuildTarget parses a fully qualified target, such as //src/core:core or
// @cell//src/core:core#flavor. Flavors may appear in any order; they're sorted on parsing.
// An empty postfix or a repeated flavor is rejected with ErrInvalidFlavor.
func ParseBuildTarget(s string) (BuildTarget, error) {
	matches := buildTargetRegex.FindStringSubmatch(s)
	if matches == nil {
		return BuildTarget{}, fmt.Errorf("%w: %s", ErrInvalidTarget, s)
	}
	unflavored, err := NewUnflavoredBuildTarget(matches[1], matches[2], matches[3])
	if err != nil {
		return BuildTarget{}, err
	}
	if matches[4] == "" && strings.Contains(s, "#") {
		return BuildTarget{}, fmt.Errorf("%w: empty flavor postfix in %s", ErrInvalidFlavor, s)
	}
	flavors, err := ParseFlavors(matches[4])
	if err != nil {
		return BuildTarget{}, err
	}
	return TryNewBuildTarget(unflavored, flavors)
}

// MustParseBuildTarget is like ParseBuildTarget but panics on failure.
func MustParseBuildTarget(s string) BuildTarget {
	t, err := ParseBuildTarget(s)
	if err != nil {
		panic(err)
	}
	return t
}

// UnflavoredBuildTarget returns this target without any of its flavors.
func (t BuildTarget) UnflavoredBuildTarget() UnflavoredBuildTarget {
	return t.unflavored
}

// Flavors returns the flavors of this target in natural order.
// The returned slice is a fresh copy.
func (t BuildTarget) Flavors() []Flavor {
	return splitFlavors(t.flavors)
}

// Cell returns the name of this target's cell, and false if it's in the root cell.
func (t BuildTarget) Cell() (string, bool) {
	return t.unflavored.Cell()
}

// BaseName returns the base name of the target, eg. //third_party/java/guava
func (t BuildTarget) BaseName() string {
	return t.unflavored.BaseName()
}

// BaseNameWithSlash returns the base name with a trailing slash.
func (t BuildTarget) BaseNameWithSlash() string {
	return t.unflavored.BaseNameWithSlash()
}

// BasePath returns the base name as a relative path, eg. third_party/java/guava
func (t BuildTarget) BasePath() string {
	return t.unflavored.BasePath()
}

// BasePathWithSlash returns the base path with a trailing slash, or empty for the root package.
func (t BuildTarget) BasePathWithSlash() string {
	return t.unflavored.BasePathWithSlash()
}

// ShortName returns the name of the target within its package, without flavors.
func (t BuildTarget) ShortName() string {
	return t.unflavored.ShortName()
}

// ShortNameAndFlavorPostfix returns the short name with any flavors, eg. guava-latest#src
func (t BuildTarget) ShortNameAndFlavorPostfix() string {
	return t.ShortName() + t.FlavorPostfix()
}

// FlavorPostfix returns # followed by the comma-separated flavors, or the empty string
// if this target has none.
func (t BuildTarget) FlavorPostfix() string {
	if t.flavors == "" {
		return ""
	}
	return "#" + t.flavors
}

// FullyQualifiedName returns the complete name of this target, eg. //third_party/java/guava:guava-latest#src
func (t BuildTarget) FullyQualifiedName() string {
	return t.unflavored.FullyQualifiedName() + t.FlavorPostfix()
}

// String implements the fmt.Stringer interface.
func (t BuildTarget) String() string {
	return t.FullyQualifiedName()
}

// IsZero returns true if this is the zero value, which isn't a valid target.
func (t BuildTarget) IsZero() bool {
	return t.unflavored.IsZero()
}

// IsFlavored returns true if this target has any flavors.
func (t BuildTarget) IsFlavored() bool {
	return t.flavors != ""
}

// HasFlavor returns true if this target has the given flavor.
func (t BuildTarget) HasFlavor(flavor Flavor) bool {
	return slices.Contains(t.Flavors(), flavor)
}

// CheckUnflavored returns the unflavored target, or ErrFlavored if this target has any flavors.
// It guards operations that need the exact base declaration.
func (t BuildTarget) CheckUnflavored() (UnflavoredBuildTarget, error) {
	if t.IsFlavored() {
		return UnflavoredBuildTarget{}, fmt.Errorf("%w: %s", ErrFlavored, t)
	}
	return t.unflavored, nil
}

// WithFlavor returns a copy of this target with the given flavor added.
// It's an error if the target already has it.
func (t BuildTarget) WithFlavor(flavor Flavor) (BuildTarget, error) {
	if t.HasFlavor(flavor) {
		return BuildTarget{}, fmt.Errorf("%w: %s already has flavor %s", ErrFlavorPresent, t, flavor)
	}
	return NewBuildTargetBuilder(t).AddFlavors(flavor).Build()
}

// WithFlavors returns a copy of this target with all the given flavors added.
// Flavors that are already present are ignored.
func (t BuildTarget) WithFlavors(flavors ...Flavor) (BuildTarget, error) {
	return NewBuildTargetBuilder(t).AddFlavors(flavors...).Build()
}

// WithoutFlavor returns a copy of this target with the given flavor removed.
// It's an error if the target doesn't have it.
func (t BuildTarget) WithoutFlavor(flavor Flavor) (BuildTarget, error) {
	if !t.HasFlavor(flavor) {
		return BuildTarget{}, fmt.Errorf("%w: %s doesn't have flavor %s", ErrFlavorAbsent, t, flavor)
	}
	return t.WithoutFlavors(flavor), nil
}

// WithoutFlavors returns a copy of this target with any of the given flavors removed.
// Flavors that aren't present are ignored.
func (t BuildTarget) WithoutFlavors(flavors ...Flavor) BuildTarget {
	remaining := slices.DeleteFunc(t.Flavors(), func(f Flavor) bool {
		return slices.Contains(flavors, f)
	})
	return BuildTarget{unflavored: t.unflavored, flavors: joinFlavors(remaining)}
}

// WithoutCell returns a copy of this target in the root cell, keeping its flavors.
func (t BuildTarget) WithoutCell() BuildTarget {
	return BuildTarget{unflavored: t.unflavored.WithoutCell(), flavors: t.flavors}
}

// Compare orders targets lexicographically by their fully qualified names.
func (t BuildTarget) Compare(that BuildTarget) int {
	return strings.Compare(t.FullyQualifiedName(), that.FullyQualifiedName())
}

// Less returns true if this target sorts before the other.
func (t BuildTarget) Less(that BuildTarget) bool {
	return t.Compare(that) < 0
}

// UnmarshalFlag unmarshals a build target from a command line flag. Implementation of flags.Unmarshaler interface.
func (t *BuildTarget) UnmarshalFlag(value string) error {
	target, err := ParseBuildTarget(value)
	if err != nil {
		return err
	}
	*t = target
	return nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (t *BuildTarget) UnmarshalText(text []byte) error {
	return t.UnmarshalFlag(string(text))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (t BuildTarget) MarshalText() ([]byte, error) {
	return []byte(t.FullyQualifiedName()), nil
}

// SortBuildTargets sorts the given targets in natural order, in place.
func SortBuildTargets(targets []BuildTarget) {
	slices.SortFunc(targets, BuildTarget.Compare)
}

// A BuildTargetBuilder assembles a BuildTarget from an unflavored target and a set of flavors.
// Flavors can be added in any order; they're put into natural order when the target is built.
type BuildTargetBuilder struct {
	unflavored UnflavoredBuildTarget
	flavors    []Flavor
}

// NewBuildTargetBuilder returns a builder initialised from an existing target and its flavors.
func NewBuildTargetBuilder(target BuildTarget) *BuildTargetBuilder {
	return &BuildTargetBuilder{unflavored: target.unflavored, flavors: target.Flavors()}
}

// NewBuildTargetBuilderFromUnflavored returns a builder for the given unflavored target.
func NewBuildTargetBuilderFromUnflavored(unflavored UnflavoredBuildTarget) *BuildTargetBuilder {
	return &BuildTargetBuilder{unflavored: unflavored}
}

// NewBuildTargetBuilderFromNames returns a builder for a target in the root cell.
func NewBuildTargetBuilderFromNames(baseName, shortName string) (*BuildTargetBuilder, error) {
	unflavored, err := NewUnflavoredBuildTarget("", baseName, shortName)
	if err != nil {
		return nil, err
	}
	return NewBuildTargetBuilderFromUnflavored(unflavored), nil
}

// SetUnflavoredBuildTarget replaces the unflavored part of the target being built.
func (b *BuildTargetBuilder) SetUnflavoredBuildTarget(unflavored UnflavoredBuildTarget) *BuildTargetBuilder {
	b.unflavored = unflavored
	return b
}

// AddFlavors adds flavors to the target being built.
func (b *BuildTargetBuilder) AddFlavors(flavors ...Flavor) *BuildTargetBuilder {
	b.flavors = append(b.flavors, flavors...)
	return b
}

// Build returns the assembled target.
func (b *BuildTargetBuilder) Build() (BuildTarget, error) {
	return TryNewBuildTarget(b.unflavored, SortFlavors(b.flavors))
}
