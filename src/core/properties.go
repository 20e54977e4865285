package core

import "strings"

// A BuildableKind is one of the kinds of thing a rule can be, used by generic graph
// queries to filter rules without needing to know their concrete types.
type BuildableKind uint8

// The kinds of rule we know about.
const (
	ANDROID BuildableKind = 1 << iota
	LIBRARY
	BINARY
	TEST
	PACKAGING
)

var kindNames = []struct {
	kind BuildableKind
	name string
}{
	{ANDROID, "ANDROID"},
	{LIBRARY, "LIBRARY"},
	{BINARY, "BINARY"},
	{TEST, "TEST"},
	{PACKAGING, "PACKAGING"},
}

// BuildableProperties is a set of BuildableKinds.
type BuildableProperties struct {
	kinds BuildableKind
}

// NewBuildableProperties returns a new set of properties with the given kinds.
func NewBuildableProperties(kinds ...BuildableKind) BuildableProperties {
	var p BuildableProperties
	for _, k := range kinds {
		p.kinds |= k
	}
	return p
}

// Is returns true if these properties include the given kind.
func (p BuildableProperties) Is(kind BuildableKind) bool {
	return p.kinds&kind != 0
}

// IsLibrary is a shortcut for Is(LIBRARY).
func (p BuildableProperties) IsLibrary() bool {
	return p.Is(LIBRARY)
}

// IsAndroid is a shortcut for Is(ANDROID).
func (p BuildableProperties) IsAndroid() bool {
	return p.Is(ANDROID)
}

// IsTest is a shortcut for Is(TEST).
func (p BuildableProperties) IsTest() bool {
	return p.Is(TEST)
}

// String implements the fmt.Stringer interface.
func (p BuildableProperties) String() string {
	names := []string{}
	for _, kn := range kindNames {
		if p.Is(kn.kind) {
			names = append(names, kn.name)
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
