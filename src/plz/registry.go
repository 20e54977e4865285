// Package plz turns a graph of target declarations into the graph of build rules that
// implement them.
package plz

import (
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/android"
	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/jvm"
	"github.com/thought-machine/rulegraph/src/python"
)

var log = logging.MustGetLogger("plz")

// DefaultRegistry returns a registry containing every rule type we know how to build.
// It's built once at startup and passed around from there.
func DefaultRegistry(config *core.Configuration) *core.Registry {
	r := core.NewRegistry()
	javaConfig := jvm.NewJavaConfig(config)
	pythonConfig := python.NewPythonConfig(config)
	core.MustRegister[*jvm.JavaLibraryArg](r, jvm.NewJavaLibraryDescription(javaConfig))
	core.MustRegister[*jvm.ScalaLibraryArg](r, jvm.NewScalaLibraryDescription(jvm.NewScalaConfig(config)))
	core.MustRegister[*android.AndroidLibraryArg](r, android.NewAndroidLibraryDescription(javaConfig))
	core.MustRegister[*python.PythonLibraryArg](r, &python.PythonLibraryDescription{})
	core.MustRegister[*python.PythonBinaryArg](r, python.NewPythonBinaryDescription(pythonConfig))
	core.MustRegister[*python.PythonTestArg](r, python.NewPythonTestDescription(pythonConfig))
	return r
}
