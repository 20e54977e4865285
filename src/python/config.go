package python

import (
	"fmt"
	"sync"

	"github.com/thought-machine/rulegraph/src/core"
)

// A PythonConfig provides the settings from the [python] section of the config.
type PythonConfig struct {
	pexTool     string
	path        string
	interpreter string
	testRunner  string

	once sync.Once
	pex  core.Tool
	err  error
}

// NewPythonConfig returns a new PythonConfig from the given configuration.
func NewPythonConfig(config *core.Configuration) *PythonConfig {
	return &PythonConfig{
		pexTool:     config.Python.PexTool,
		path:        config.BuildPath(),
		interpreter: config.Python.DefaultInterpreter,
		testRunner:  config.Python.TestRunner,
	}
}

// PexTool returns the tool that builds .pex files. It's looked up the first time it's needed.
func (c *PythonConfig) PexTool() (core.Tool, error) {
	c.once.Do(func() {
		c.pex, c.err = core.FindTool(c.pexTool, c.path)
		if c.err != nil {
			c.err = fmt.Errorf("failed to find python.pextool %q: %w", c.pexTool, c.err)
		} else {
			log.Debug("Using pex tool %s", c.pexTool)
		}
	})
	return c.pex, c.err
}

// Interpreter returns the interpreter that binaries run with unless they specify their own.
func (c *PythonConfig) Interpreter() string {
	return c.interpreter
}

// TestRunner returns the module that python_test rules use as their entry point.
func (c *PythonConfig) TestRunner() string {
	return c.testRunner
}
