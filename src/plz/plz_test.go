package plz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/fs"
	"github.com/thought-machine/rulegraph/src/jvm"
	"github.com/thought-machine/rulegraph/src/python"
)

func target(s string) core.BuildTarget {
	return core.MustParseBuildTarget(s)
}

func targets(s ...string) []core.BuildTarget {
	ret := make([]core.BuildTarget, len(s))
	for i, t := range s {
		ret[i] = target(t)
	}
	return ret
}

func newConfig(t *testing.T) *core.Configuration {
	dir := t.TempDir()
	for _, tool := range []string{"please_pex", "javac", "jar"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, tool), []byte("#!/bin/sh\n"), 0755))
	}
	config := core.DefaultConfiguration()
	config.Build.Path = []string{dir}
	return config
}

func newFilesystem(t *testing.T) *fs.ProjectFilesystem {
	pfs, err := fs.NewProjectFilesystem(t.TempDir())
	require.NoError(t, err)
	return pfs
}

func library(t string, srcs []string, deps ...string) *TargetNode {
	arg := &python.PythonLibraryArg{}
	for _, src := range srcs {
		arg.Srcs = append(arg.Srcs, core.NewPathSourcePath(src))
	}
	return &TargetNode{Target: target(t), Type: python.PythonLibraryType, Arg: arg, DeclaredDeps: targets(deps...)}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(core.DefaultConfiguration())
	assert.Equal(t, []core.BuildRuleType{
		"android_library",
		"java_library",
		"python_binary",
		"python_library",
		"python_test",
		"scala_library",
	}, r.Types())
}

func TestAddDuplicateNode(t *testing.T) {
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:a", nil)))
	assert.ErrorIs(t, g.AddNode(library("//lib:a", nil)), core.ErrDuplicateRule)
}

func TestValidateMissingDep(t *testing.T) {
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:util", nil)))
	require.NoError(t, g.AddNode(library("//lib:a", nil, "//lib:utils")))
	err := g.Validate()
	assert.ErrorIs(t, err, core.ErrRuleNotFound)
	assert.Contains(t, err.Error(), "//lib:utils (dep of //lib:a)")
	assert.Contains(t, err.Error(), "Maybe you meant //lib:util ?")
}

func TestValidateCycle(t *testing.T) {
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:a", nil, "//lib:b")))
	require.NoError(t, g.AddNode(library("//lib:b", nil, "//lib:c")))
	require.NoError(t, g.AddNode(library("//lib:c", nil, "//lib:a")))
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dependency cycle found")
	assert.Contains(t, err.Error(), "//lib:c\n -> //lib:a\n -> //lib:b\n -> //lib:c")
}

func TestValidateSelfCycle(t *testing.T) {
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:a", nil, "//lib:a")))
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "//lib:a\n -> //lib:a")
}

func TestValidateDiamond(t *testing.T) {
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:a", nil, "//lib:b", "//lib:c")))
	require.NoError(t, g.AddNode(library("//lib:b", nil, "//lib:d")))
	require.NoError(t, g.AddNode(library("//lib:c", nil, "//lib:d")))
	require.NoError(t, g.AddNode(library("//lib:d", nil)))
	assert.NoError(t, g.Validate())
}

func TestBuildActionGraph(t *testing.T) {
	config := newConfig(t)
	pfs := newFilesystem(t)
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:util", []string{"lib/util.py"})))
	require.NoError(t, g.AddNode(library("//lib:lib", []string{"lib/lib.py"}, "//lib:util")))
	require.NoError(t, g.AddNode(&TargetNode{
		Target:       target("//tests:lib_test"),
		Type:         python.PythonTestType,
		Arg:          &python.PythonTestArg{Srcs: []core.SourcePath{core.NewPathSourcePath("tests/lib_test.py")}},
		DeclaredDeps: targets("//lib:lib"),
	}))
	for _, f := range []string{"lib/util.py", "lib/lib.py", "tests/lib_test.py"} {
		require.NoError(t, pfs.MkdirAll(filepath.Dir(f)))
		require.NoError(t, os.WriteFile(pfs.Resolve(f), []byte("# "+f), 0644))
	}

	ag, err := BuildActionGraph(context.Background(), g, DefaultRegistry(config), config, pfs)
	require.NoError(t, err)
	lib, err := ag.Rule(target("//lib:lib"))
	require.NoError(t, err)
	assert.Equal(t, targets("//lib:util"), core.Targets(lib.DeclaredDeps()))

	rule, err := ag.Rule(target("//tests:lib_test"))
	require.NoError(t, err)
	test := rule.(*python.PythonTest)
	assert.Equal(t, []string{"lib/lib.py", "lib/util.py", "tests/lib_test.py"}, keys(test.Binary().Components().Modules))
	// The binary was constructed alongside the test.
	_, err = ag.Rule(target("//tests:lib_test#binary"))
	assert.NoError(t, err)
	assert.Len(t, ag.Resolver.Rules(), 4)

	libKey, err := ag.RuleKey(target("//lib:lib"))
	require.NoError(t, err)
	testKey, err := ag.RuleKey(target("//tests:lib_test"))
	require.NoError(t, err)
	assert.NotEqual(t, libKey, testKey)
	again, err := ag.RuleKey(target("//lib:lib"))
	require.NoError(t, err)
	assert.Equal(t, libKey, again)
}

func keys(m map[string]core.SourcePath) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func TestBuildActionGraphLongChain(t *testing.T) {
	config := newConfig(t)
	config.Please.NumThreads = 1
	g := NewTargetGraph()
	const n = 100
	for i := 0; i < n; i++ {
		var deps []string
		if i > 0 {
			deps = append(deps, fmt.Sprintf("//lib:l%03d", i-1))
		}
		require.NoError(t, g.AddNode(library(fmt.Sprintf("//lib:l%03d", i), nil, deps...)))
	}
	ag, err := BuildActionGraph(context.Background(), g, DefaultRegistry(config), config, newFilesystem(t))
	require.NoError(t, err)
	assert.Len(t, ag.Resolver.Rules(), n)
}

func TestBuildActionGraphFailure(t *testing.T) {
	config := newConfig(t)
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(&TargetNode{Target: target("//lib:broken"), Type: python.PythonBinaryType, Arg: &python.PythonBinaryArg{}}))
	require.NoError(t, g.AddNode(library("//lib:dependent", nil, "//lib:broken")))
	_, err := BuildActionGraph(context.Background(), g, DefaultRegistry(config), config, newFilesystem(t))
	assert.ErrorIs(t, err, core.ErrInvalidArg)
	assert.Contains(t, err.Error(), "//lib:broken")
}

func TestBuildActionGraphUnknownType(t *testing.T) {
	config := newConfig(t)
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(&TargetNode{Target: target("//lib:a"), Type: "python_libary", Arg: &python.PythonLibraryArg{}}))
	_, err := BuildActionGraph(context.Background(), g, DefaultRegistry(config), config, newFilesystem(t))
	assert.ErrorIs(t, err, core.ErrUnknownRuleType)
	assert.Contains(t, err.Error(), "python_library")
}

func TestBuildActionGraphRejectsDepWithoutClasspath(t *testing.T) {
	config := newConfig(t)
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//py:lib", nil)))
	require.NoError(t, g.AddNode(&TargetNode{
		Target:       target("//java:a"),
		Type:         jvm.JavaLibraryType,
		Arg:          &jvm.JavaLibraryArg{Srcs: []core.SourcePath{core.NewPathSourcePath("java/A.java")}},
		DeclaredDeps: targets("//py:lib"),
	}))
	_, err := BuildActionGraph(context.Background(), g, DefaultRegistry(config), config, newFilesystem(t))
	require.Error(t, err)
	msg, ok := core.HumanReadableErrorMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "//py:lib (dep of //java:a) is not known to have a classpath!", msg)
}

// mixedGraph returns a graph with a python test and a chain of java libraries.
func mixedGraph(t *testing.T) *TargetGraph {
	g := NewTargetGraph()
	require.NoError(t, g.AddNode(library("//lib:lib", []string{"lib/lib.py"})))
	require.NoError(t, g.AddNode(&TargetNode{
		Target: target("//tests:lib_test"),
		Type:   python.PythonTestType,
		Arg: &python.PythonTestArg{
			Srcs:   []core.SourcePath{core.NewPathSourcePath("tests/lib_test.py")},
			Labels: []string{"py", "unit"},
			Env:    map[string]string{"ZETA": "1", "ALPHA": "2", "MID": "3"},
		},
		DeclaredDeps: targets("//lib:lib"),
	}))
	require.NoError(t, g.AddNode(&TargetNode{
		Target: target("//java:util"),
		Type:   jvm.JavaLibraryType,
		Arg:    &jvm.JavaLibraryArg{Srcs: []core.SourcePath{core.NewPathSourcePath("java/Util.java")}},
	}))
	require.NoError(t, g.AddNode(&TargetNode{
		Target:       target("//java:app"),
		Type:         jvm.JavaLibraryType,
		Arg:          &jvm.JavaLibraryArg{Srcs: []core.SourcePath{core.NewPathSourcePath("java/App.java")}, TargetLevel: "11"},
		DeclaredDeps: targets("//java:util"),
	}))
	return g
}

func TestRuleKeysAreStableAcrossConstructions(t *testing.T) {
	config := newConfig(t)
	all := targets("//lib:lib", "//tests:lib_test", "//tests:lib_test#binary", "//java:util", "//java:app")
	build := func() map[core.BuildTarget]core.RuleKey {
		pfs := newFilesystem(t)
		for _, f := range []string{"lib/lib.py", "tests/lib_test.py", "java/Util.java", "java/App.java"} {
			require.NoError(t, pfs.MkdirAll(filepath.Dir(f)))
			require.NoError(t, os.WriteFile(pfs.Resolve(f), []byte("// "+f), 0644))
		}
		ag, err := BuildActionGraph(context.Background(), mixedGraph(t), DefaultRegistry(config), config, pfs)
		require.NoError(t, err)
		keys := make(map[core.BuildTarget]core.RuleKey, len(all))
		for _, bt := range all {
			key, err := ag.RuleKey(bt)
			require.NoError(t, err)
			keys[bt] = key
		}
		return keys
	}
	first := build()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, build())
	}
	assert.NotEqual(t, first[target("//tests:lib_test")], first[target("//tests:lib_test#binary")])
	assert.NotEqual(t, first[target("//java:util")], first[target("//java:app")])
}
