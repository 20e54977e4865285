package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

// A Flavor is a tag attached to a build target to denote a variant of it, for example
// a headers-only or platform-specific sub-rule derived from the same declaration.
// Flavors are ordered naturally, ie. by byte-wise comparison of their names.
type Flavor string

// The characters that separate flavors from each other and from the target can't appear in one.
var flavorName = deferredregex.DeferredRegex{Re: `^[A-Za-z0-9_.\-+=]+$`}

// NewFlavor validates and returns a flavor with the given name.
func NewFlavor(name string) (Flavor, error) {
	if flavorName.FindStringSubmatch(name) == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidFlavor, name)
	}
	return Flavor(name), nil
}

// MustNewFlavor is like NewFlavor but panics on an invalid name.
// It's intended for flavors declared as package-level constants.
func MustNewFlavor(name string) Flavor {
	f, err := NewFlavor(name)
	if err != nil {
		panic(err)
	}
	return f
}

// String implements the fmt.Stringer interface.
func (f Flavor) String() string {
	return string(f)
}

// ParseFlavors parses a comma-separated list of flavors, as found after the # in a target.
// The result is naturally ordered. Repeating a flavor is an error.
func ParseFlavors(s string) ([]Flavor, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	flavors := make([]Flavor, 0, len(parts))
	for _, part := range parts {
		f, err := NewFlavor(part)
		if err != nil {
			return nil, err
		}
		if slices.Contains(flavors, f) {
			return nil, fmt.Errorf("%w: %q given more than once", ErrInvalidFlavor, part)
		}
		flavors = append(flavors, f)
	}
	slices.Sort(flavors)
	return flavors, nil
}

// SortFlavors returns a naturally ordered copy of the given flavors with duplicates removed.
func SortFlavors(flavors []Flavor) []Flavor {
	ret := slices.Clone(flavors)
	slices.Sort(ret)
	return slices.Compact(ret)
}

// flavorsInNaturalOrder returns true if the given flavors are strictly ascending.
func flavorsInNaturalOrder(flavors []Flavor) bool {
	for i := 1; i < len(flavors); i++ {
		if flavors[i-1] >= flavors[i] {
			return false
		}
	}
	return true
}

func joinFlavors(flavors []Flavor) string {
	var sb strings.Builder
	for i, f := range flavors {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(f))
	}
	return sb.String()
}

func splitFlavors(s string) []Flavor {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	ret := make([]Flavor, len(parts))
	for i, p := range parts {
		ret[i] = Flavor(p)
	}
	return ret
}
