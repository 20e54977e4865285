package jvm

import (
	"fmt"

	"github.com/thought-machine/rulegraph/src/core"
)

// toolResult is the memoized outcome of looking up a tool.
type toolResult struct {
	tool core.Tool
	err  error
}

// lazyTool returns a supplier that looks up the given tool on the build path the first
// time it's needed.
func lazyTool(section, command, path string) core.Supplier[toolResult] {
	return core.MemoizeFunc(func() toolResult {
		tool, err := core.FindTool(command, path)
		if err != nil {
			return toolResult{err: fmt.Errorf("failed to find %s tool %q: %w", section, command, err)}
		}
		log.Debug("Using %s tool %s", section, command)
		return toolResult{tool: tool}
	})
}

// A JavaConfig provides the Java settings from the [java] section of the config.
type JavaConfig struct {
	javac       core.Supplier[toolResult]
	jar         core.Supplier[toolResult]
	sourceLevel string
	targetLevel string
}

// NewJavaConfig returns a new JavaConfig from the given configuration.
func NewJavaConfig(config *core.Configuration) *JavaConfig {
	return &JavaConfig{
		javac:       lazyTool("java.javactool", config.Java.JavacTool, config.BuildPath()),
		jar:         lazyTool("java.jartool", config.Java.JarTool, config.BuildPath()),
		sourceLevel: config.Java.SourceLevel,
		targetLevel: config.Java.TargetLevel,
	}
}

// Javac returns the Java compiler.
func (c *JavaConfig) Javac() (core.Tool, error) {
	r := c.javac.Get()
	return r.tool, r.err
}

// Jar returns the tool used to create jar files.
func (c *JavaConfig) Jar() (core.Tool, error) {
	r := c.jar.Get()
	return r.tool, r.err
}

// DefaultJavacOptions returns the options to use for rules that don't specify their own.
func (c *JavaConfig) DefaultJavacOptions() JavacOptions {
	return JavacOptions{SourceLevel: c.sourceLevel, TargetLevel: c.targetLevel}
}

// A ScalaConfig provides the Scala settings from the [scala] section of the config.
type ScalaConfig struct {
	compiler core.Supplier[toolResult]
}

// NewScalaConfig returns a new ScalaConfig from the given configuration.
// The compiler defaults to zinc, found on the build path.
func NewScalaConfig(config *core.Configuration) *ScalaConfig {
	return &ScalaConfig{compiler: lazyTool("scala.compiler", config.Scala.Compiler, config.BuildPath())}
}

// ScalaCompiler returns the Scala compiler.
func (c *ScalaConfig) ScalaCompiler() (core.Tool, error) {
	r := c.compiler.Get()
	return r.tool, r.err
}
