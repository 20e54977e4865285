package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildTarget(t *testing.T) {
	target, err := ParseBuildTarget("//libs/foo:foo")
	require.NoError(t, err)
	assert.Equal(t, "//libs/foo", target.BaseName())
	assert.Equal(t, "libs/foo", target.BasePath())
	assert.Equal(t, "foo", target.ShortName())
	assert.False(t, target.IsFlavored())
	_, hasCell := target.Cell()
	assert.False(t, hasCell)
	assert.Equal(t, "//libs/foo:foo", target.FullyQualifiedName())
}

func TestParseBuildTargetWithCell(t *testing.T) {
	target, err := ParseBuildTarget("@third_party//java/guava:guava#src")
	require.NoError(t, err)
	cell, hasCell := target.Cell()
	assert.True(t, hasCell)
	assert.Equal(t, "third_party", cell)
	assert.Equal(t, []Flavor{"src"}, target.Flavors())
	assert.Equal(t, "@third_party//java/guava:guava#src", target.String())
	assert.Equal(t, "//java/guava:guava#src", target.WithoutCell().String())
}

func TestParseBuildTargetSortsFlavors(t *testing.T) {
	target, err := ParseBuildTarget("//a:b#zzz,aaa")
	require.NoError(t, err)
	assert.Equal(t, []Flavor{"aaa", "zzz"}, target.Flavors())
	assert.Equal(t, "//a:b#aaa,zzz", target.FullyQualifiedName())
	assert.Equal(t, "b#aaa,zzz", target.ShortNameAndFlavorPostfix())
}

func TestParseBuildTargetRejectsMalformedFlavors(t *testing.T) {
	for _, s := range []string{"//a:b#", "//a:b#x,x", "//a:b#x,y,x", "@cell//a:b#"} {
		_, err := ParseBuildTarget(s)
		assert.ErrorIs(t, err, ErrInvalidFlavor, s)
	}
}

func TestParseBuildTargetRootPackage(t *testing.T) {
	target, err := ParseBuildTarget("//:root")
	require.NoError(t, err)
	assert.Equal(t, "//", target.BaseName())
	assert.Equal(t, "//", target.BaseNameWithSlash())
	assert.Equal(t, "", target.BasePath())
	assert.Equal(t, "", target.BasePathWithSlash())
}

func TestParseBuildTargetInvalid(t *testing.T) {
	for _, s := range []string{"", "foo", "//a/b", "a:b", "//a:b:c", "//a:b#x/y", "@//a:b"} {
		_, err := ParseBuildTarget(s)
		assert.Error(t, err, s)
	}
	_, err := ParseBuildTarget("//a:b")
	assert.NoError(t, err)
}

func TestWithFlavor(t *testing.T) {
	target := MustParseBuildTarget("//libs/foo:foo")
	flavored, err := target.WithFlavor("android-manifest")
	require.NoError(t, err)
	assert.Equal(t, "//libs/foo:foo#android-manifest", flavored.FullyQualifiedName())
	assert.True(t, flavored.IsFlavored())
	assert.True(t, flavored.HasFlavor("android-manifest"))
	assert.Equal(t, target.UnflavoredBuildTarget(), flavored.UnflavoredBuildTarget())
}

func TestWithFlavorThenWithoutIsIdentity(t *testing.T) {
	target := MustParseBuildTarget("//libs/foo:foo#abi")
	flavored, err := target.WithFlavor("src")
	require.NoError(t, err)
	assert.Equal(t, "//libs/foo:foo#abi,src", flavored.String())
	unflavored, err := flavored.WithoutFlavor("src")
	require.NoError(t, err)
	assert.Equal(t, target, unflavored)
}

func TestWithFlavorTwice(t *testing.T) {
	target := MustParseBuildTarget("//libs/foo:foo")
	flavored, err := target.WithFlavor("binary")
	require.NoError(t, err)
	_, err = flavored.WithFlavor("binary")
	assert.ErrorIs(t, err, ErrFlavorPresent)
}

func TestWithoutFlavorAbsent(t *testing.T) {
	_, err := MustParseBuildTarget("//libs/foo:foo#abi").WithoutFlavor("src")
	assert.ErrorIs(t, err, ErrFlavorAbsent)
}

func TestWithFlavorInvalid(t *testing.T) {
	_, err := MustParseBuildTarget("//libs/foo:foo").WithFlavor("a#b")
	assert.ErrorIs(t, err, ErrInvalidFlavor)
}

func TestWithFlavors(t *testing.T) {
	target, err := MustParseBuildTarget("//a:b#m").WithFlavors("z", "a", "m")
	require.NoError(t, err)
	assert.Equal(t, "//a:b#a,m,z", target.String())
}

func TestWithoutFlavors(t *testing.T) {
	target := MustParseBuildTarget("//a:b#x,y,z")
	assert.Equal(t, "//a:b#y", target.WithoutFlavors("x", "z", "nope").String())
	assert.Equal(t, "//a:b", target.WithoutFlavors(target.Flavors()...).String())
	assert.False(t, target.WithoutFlavors(target.Flavors()...).IsFlavored())
}

func TestCheckUnflavored(t *testing.T) {
	u, err := MustParseBuildTarget("//a:b").CheckUnflavored()
	assert.NoError(t, err)
	assert.Equal(t, "//a:b", u.String())
	_, err = MustParseBuildTarget("//a:b#c").CheckUnflavored()
	assert.ErrorIs(t, err, ErrFlavored)
}

func TestTryNewBuildTargetOrdering(t *testing.T) {
	u := MustNewUnflavoredBuildTarget("", "//a", "b")
	_, err := TryNewBuildTarget(u, []Flavor{"b", "a"})
	assert.ErrorIs(t, err, ErrFlavorOrdering)
	_, err = TryNewBuildTarget(u, []Flavor{"a", "a"})
	assert.ErrorIs(t, err, ErrFlavorOrdering)
	target, err := TryNewBuildTarget(u, []Flavor{"a", "b"})
	assert.NoError(t, err)
	assert.Equal(t, "//a:b#a,b", target.String())
	_, err = TryNewBuildTarget(UnflavoredBuildTarget{}, nil)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestNewBuildTargetPanics(t *testing.T) {
	u := MustNewUnflavoredBuildTarget("", "//a", "b")
	assert.Panics(t, func() { NewBuildTarget(u, "z", "y") })
	assert.NotPanics(t, func() { NewBuildTarget(u, "y", "z") })
}

func TestBuildTargetOf(t *testing.T) {
	u := MustNewUnflavoredBuildTarget("cell", "//a", "b")
	target := BuildTargetOf(u)
	assert.Equal(t, "@cell//a:b", target.String())
	assert.False(t, target.IsFlavored())
	assert.Equal(t, MustParseBuildTarget("@cell//a:b"), target)
}

func TestBuildTargetBuilder(t *testing.T) {
	b, err := NewBuildTargetBuilderFromNames("//java/com/example", "lib")
	require.NoError(t, err)
	target, err := b.AddFlavors("src").AddFlavors("abi", "src").Build()
	require.NoError(t, err)
	assert.Equal(t, "//java/com/example:lib#abi,src", target.String())

	other := MustNewUnflavoredBuildTarget("", "//java/com/other", "lib")
	retargeted, err := NewBuildTargetBuilder(target).SetUnflavoredBuildTarget(other).Build()
	require.NoError(t, err)
	assert.Equal(t, "//java/com/other:lib#abi,src", retargeted.String())

	_, err = NewBuildTargetBuilderFromNames("java/com/example", "lib")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestBuildTargetEquality(t *testing.T) {
	a := MustParseBuildTarget("//a:b#y,x")
	b := MustParseBuildTarget("//a:b#x,y")
	assert.Equal(t, a, b)
	m := map[BuildTarget]int{a: 1}
	assert.Equal(t, 1, m[b])
	assert.NotEqual(t, MustParseBuildTarget("//a:b"), MustParseBuildTarget("@c//a:b"))
}

func TestSortBuildTargets(t *testing.T) {
	targets := []BuildTarget{
		MustParseBuildTarget("//b:a"),
		MustParseBuildTarget("//a:b#z"),
		MustParseBuildTarget("//a:b"),
		MustParseBuildTarget("//a:a"),
	}
	SortBuildTargets(targets)
	assert.Equal(t, []BuildTarget{
		MustParseBuildTarget("//a:a"),
		MustParseBuildTarget("//a:b"),
		MustParseBuildTarget("//a:b#z"),
		MustParseBuildTarget("//b:a"),
	}, targets)
	assert.True(t, targets[0].Less(targets[1]))
	assert.False(t, targets[1].Less(targets[1]))
}

func TestBuildTargetText(t *testing.T) {
	var target BuildTarget
	require.NoError(t, target.UnmarshalText([]byte("//a:b#c")))
	b, err := target.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "//a:b#c", string(b))
	assert.Error(t, target.UnmarshalFlag("not a target"))
	assert.Equal(t, "//a:b#c", target.String())
}

func TestFlavorsAreCopied(t *testing.T) {
	target := MustParseBuildTarget("//a:b#x,y")
	flavors := target.Flavors()
	flavors[0] = "zzz"
	assert.Equal(t, []Flavor{"x", "y"}, target.Flavors())
}

func TestUnflavoredBuildTargetCompare(t *testing.T) {
	a := MustNewUnflavoredBuildTarget("", "//a", "b")
	b := MustNewUnflavoredBuildTarget("", "//a", "c")
	c := MustNewUnflavoredBuildTarget("cell", "//a", "a")
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, b.Compare(c))
}

func TestNewUnflavoredBuildTargetInvalid(t *testing.T) {
	_, err := NewUnflavoredBuildTarget("", "//a", "")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = NewUnflavoredBuildTarget("", "//a//b", "c")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = NewUnflavoredBuildTarget("bad/cell", "//a", "c")
	assert.ErrorIs(t, err, ErrInvalidTarget)
	assert.Panics(t, func() { MustNewUnflavoredBuildTarget("", "a", "b") })
}

func TestParseFlavors(t *testing.T) {
	flavors, err := ParseFlavors("src,abi")
	assert.NoError(t, err)
	assert.Equal(t, []Flavor{"abi", "src"}, flavors)
	_, err = ParseFlavors("src,abi,src")
	assert.ErrorIs(t, err, ErrInvalidFlavor)
	flavors, err = ParseFlavors("")
	assert.NoError(t, err)
	assert.Empty(t, flavors)
	_, err = ParseFlavors("a,,b")
	assert.ErrorIs(t, err, ErrInvalidFlavor)
}

func TestNewFlavor(t *testing.T) {
	for _, name := range []string{"src", "android-manifest", "shared_lib", "v1.2", "x=y"} {
		_, err := NewFlavor(name)
		assert.NoError(t, err, name)
	}
	for _, name := range []string{"", "a,b", "a#b", "a/b", "a:b", "a b"} {
		_, err := NewFlavor(name)
		assert.ErrorIs(t, err, ErrInvalidFlavor, name)
	}
	assert.Panics(t, func() { MustNewFlavor("a,b") })
}
