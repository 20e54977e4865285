package core

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

// An UnflavoredBuildTarget identifies a declared build rule without any flavors,
// eg. @cell//third_party/java/guava:guava-latest.
// It's an immutable value; the zero value is not a valid target.
type UnflavoredBuildTarget struct {
	// Name of the cell this target lives in; empty if it's in the root cell.
	cell string
	// Base name including the leading //, eg. //third_party/java/guava
	baseName string
	// Name of the rule within its package, eg. guava-latest
	shortName string
}

// This is a little strict; doesn't allow for non-ascii names, for example.
const packagePart = `[A-Za-z0-9._+\-]+`

var baseNameOnly = deferredregex.DeferredRegex{Re: `^//(?:` + packagePart + `(?:/` + packagePart + `)*)?$`}
var shortNameOnly = deferredregex.DeferredRegex{Re: `^[A-Za-z0-9._+\-=]+$`}
var cellNameOnly = deferredregex.DeferredRegex{Re: `^[A-Za-z0-9._\-]+$`}

// NewUnflavoredBuildTarget validates and constructs a new unflavored target.
// The cell may be empty, in which case the target belongs to the root cell.
func NewUnflavoredBuildTarget(cell, baseName, shortName string) (UnflavoredBuildTarget, error) {
	if cell != "" && cellNameOnly.FindStringSubmatch(cell) == nil {
		return UnflavoredBuildTarget{}, fmt.Errorf("%w: invalid cell name %q", ErrInvalidTarget, cell)
	} else if baseNameOnly.FindStringSubmatch(baseName) == nil {
		return UnflavoredBuildTarget{}, fmt.Errorf("%w: base name %q must start with // and be a valid path", ErrInvalidTarget, baseName)
	} else if shortNameOnly.FindStringSubmatch(shortName) == nil {
		return UnflavoredBuildTarget{}, fmt.Errorf("%w: invalid short name %q", ErrInvalidTarget, shortName)
	}
	return UnflavoredBuildTarget{cell: cell, baseName: baseName, shortName: shortName}, nil
}

// MustNewUnflavoredBuildTarget is like NewUnflavoredBuildTarget but panics on failure.
func MustNewUnflavoredBuildTarget(cell, baseName, shortName string) UnflavoredBuildTarget {
	t, err := NewUnflavoredBuildTarget(cell, baseName, shortName)
	if err != nil {
		panic(err)
	}
	return t
}

// Cell returns the name of this target's cell, and false if it's in the root cell.
func (t UnflavoredBuildTarget) Cell() (string, bool) {
	return t.cell, t.cell != ""
}

// BaseName returns the base name of the target, eg. //third_party/java/guava
func (t UnflavoredBuildTarget) BaseName() string {
	return t.baseName
}

// BaseNameWithSlash returns the base name with a trailing slash, eg. //third_party/java/guava/
// The root package is just //.
func (t UnflavoredBuildTarget) BaseNameWithSlash() string {
	if t.baseName == "//" {
		return t.baseName
	}
	return t.baseName + "/"
}

// BasePath returns the base name as a relative path, eg. third_party/java/guava
func (t UnflavoredBuildTarget) BasePath() string {
	return strings.TrimPrefix(t.baseName, "//")
}

// BasePathWithSlash is like BasePath but with a trailing slash, unless it's the root package.
func (t UnflavoredBuildTarget) BasePathWithSlash() string {
	if p := t.BasePath(); p != "" {
		return p + "/"
	}
	return ""
}

// ShortName returns the name of the target within its package, eg. guava-latest
func (t UnflavoredBuildTarget) ShortName() string {
	return t.shortName
}

// FullyQualifiedName returns the complete name of this target, eg. @cell//third_party/java/guava:guava-latest
func (t UnflavoredBuildTarget) FullyQualifiedName() string {
	if t.cell != "" {
		return "@" + t.cell + t.baseName + ":" + t.shortName
	}
	return t.baseName + ":" + t.shortName
}

// String implements the fmt.Stringer interface.
func (t UnflavoredBuildTarget) String() string {
	return t.FullyQualifiedName()
}

// WithoutCell returns a copy of this target in the root cell.
func (t UnflavoredBuildTarget) WithoutCell() UnflavoredBuildTarget {
	t.cell = ""
	return t
}

// Compare orders unflavored targets by cell, base name and then short name.
func (t UnflavoredBuildTarget) Compare(that UnflavoredBuildTarget) int {
	if c := cmp.Compare(t.cell, that.cell); c != 0 {
		return c
	} else if c := cmp.Compare(t.baseName, that.baseName); c != 0 {
		return c
	}
	return cmp.Compare(t.shortName, that.shortName)
}

// IsZero returns true if this is the zero value, which isn't a valid target.
func (t UnflavoredBuildTarget) IsZero() bool {
	return t.baseName == ""
}
