package fs

import (
	"os"
	"strings"

	"github.com/peterebden/go-deferred-regex"
)

var homeRex = deferredregex.DeferredRegex{Re: "(?:^|:)(~(?:[/:]|$))"}

// ExpandHomePath expands all prefixes of ~ without a user specifier to $HOME.
// It handles both single paths and colon-separated path lists.
func ExpandHomePath(path string) string {
	return ExpandHomePathTo(path, os.Getenv("HOME"))
}

// ExpandHomePathTo is like ExpandHomePath but expands to the given directory.
func ExpandHomePathTo(path, home string) string {
	return homeRex.ReplaceAllStringFunc(path, func(subpath string) string {
		return strings.ReplaceAll(subpath, "~", home)
	})
}
