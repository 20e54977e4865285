package core

import (
	"fmt"
	"path"
	"strings"
)

// OutDir is the root output directory for everything.
const OutDir string = "plz-out"

// GenDir is the output directory for non-binary targets.
const GenDir string = "plz-out/gen"

// BinDir is the output directory for binary targets.
const BinDir string = "plz-out/bin"

// ScratchDir is the directory rules use for temporary files during building.
const ScratchDir string = "plz-out/tmp"

// GenPath returns the path of a generated file for a target, relative to the repo root.
// The format should contain a single %s, which is replaced with the target's short name
// and flavor postfix, eg. GenPath(//java/com/example:lib, "%s.jar") is
// plz-out/gen/java/com/example/lib.jar. A format without a %s is taken literally.
func GenPath(target BuildTarget, format string) string {
	return outputPath(GenDir, target, format)
}

// BinPath is like GenPath but for binary outputs.
func BinPath(target BuildTarget, format string) string {
	return outputPath(BinDir, target, format)
}

// ScratchPath is like GenPath but for temporary files that don't outlive the build.
func ScratchPath(target BuildTarget, format string) string {
	return outputPath(ScratchDir, target, format)
}

func outputPath(dir string, target BuildTarget, format string) string {
	name := format
	if strings.Contains(format, "%s") {
		name = fmt.Sprintf(format, target.ShortNameAndFlavorPostfix())
	}
	return path.Join(dir, target.BasePath(), name)
}
