// Package android contains the Android rules, which build on the JVM ones, and the
// collection of everything an Android package needs from its transitive dependencies.
package android

import (
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/jvm"
)

var log = logging.MustGetLogger("android")

// AndroidLibraryType is the rule type of android_library.
const AndroidLibraryType core.BuildRuleType = "android_library"

// An AndroidLibrary is a Java library that can also contribute a manifest to an Android package.
type AndroidLibrary struct {
	*jvm.JavaLibrary
	manifest      core.SourcePath
	isPrebuiltAar bool
}

// NewAndroidLibrary returns a new AndroidLibrary wrapping the given Java library.
// The manifest may be nil.
func NewAndroidLibrary(lib *jvm.JavaLibrary, manifest core.SourcePath, isPrebuiltAar bool) *AndroidLibrary {
	return &AndroidLibrary{JavaLibrary: lib, manifest: manifest, isPrebuiltAar: isPrebuiltAar}
}

// Type implements the core.BuildRule interface.
func (lib *AndroidLibrary) Type() core.BuildRuleType {
	return AndroidLibraryType
}

// Properties implements the core.BuildRule interface.
func (lib *AndroidLibrary) Properties() core.BuildableProperties {
	return core.NewBuildableProperties(core.ANDROID, core.LIBRARY)
}

// ManifestFile returns the manifest associated with this library, if it has one.
func (lib *AndroidLibrary) ManifestFile() (core.SourcePath, bool) {
	return lib.manifest, lib.manifest != nil
}

// IsPrebuiltAar returns true if this library was generated from a prebuilt aar.
func (lib *AndroidLibrary) IsPrebuiltAar() bool {
	return lib.isPrebuiltAar
}

// AppendToRuleKey implements the core.BuildRule interface.
func (lib *AndroidLibrary) AppendToRuleKey(b core.RuleKeyBuilder) core.RuleKeyBuilder {
	b = lib.JavaLibrary.AppendToRuleKey(b)
	if lib.manifest != nil {
		b = b.SetSourcePath("manifest", lib.manifest)
	}
	return b.SetBool("isPrebuiltAar", lib.isPrebuiltAar)
}

// RequiredPackageables implements the AndroidPackageable interface.
func (lib *AndroidLibrary) RequiredPackageables() []core.BuildRule {
	return lib.DeclaredDeps()
}

// AddToCollector implements the AndroidPackageable interface.
func (lib *AndroidLibrary) AddToCollector(collector *AndroidPackageableCollector) {
	collector.AddClasspathEntry(lib.BuildTarget(), lib.PathToOutput())
	if lib.manifest != nil {
		collector.AddManifestPiece(lib.manifest)
	}
}

// An AndroidLibraryArg is the arguments of an android_library declaration.
type AndroidLibraryArg struct {
	jvm.JavaLibraryArg
	Manifest      core.SourcePath
	IsPrebuiltAar bool
}

// AndroidLibraryDescription constructs android_library rules.
type AndroidLibraryDescription struct {
	java *jvm.JavaLibraryDescription
}

// NewAndroidLibraryDescription returns a new AndroidLibraryDescription.
func NewAndroidLibraryDescription(config *jvm.JavaConfig) *AndroidLibraryDescription {
	return &AndroidLibraryDescription{java: jvm.NewJavaLibraryDescription(config)}
}

// BuildRuleType implements the core.Description interface.
func (d *AndroidLibraryDescription) BuildRuleType() core.BuildRuleType {
	return AndroidLibraryType
}

// CreateUnpopulatedConstructorArg implements the core.Description interface.
func (d *AndroidLibraryDescription) CreateUnpopulatedConstructorArg() *AndroidLibraryArg {
	return &AndroidLibraryArg{}
}

// CreateBuildRule implements the core.Description interface.
func (d *AndroidLibraryDescription) CreateBuildRule(params *core.BuildRuleParams, resolver *core.BuildRuleResolver, args *AndroidLibraryArg) (core.BuildRule, error) {
	spr := core.NewSourcePathResolver(resolver)
	javac, jar, options, err := d.java.JavaTools(args.SourceLevel, args.TargetLevel, args.ExtraArgs)
	if err != nil {
		return nil, err
	}
	var manifest []core.SourcePath
	if args.Manifest != nil {
		manifest = append(manifest, args.Manifest)
	}
	params = jvm.WithToolAndSourceDeps(params, spr, []core.Tool{javac, jar}, args.Srcs, args.Resources, manifest)
	lib := jvm.NewJavaLibrary(params, spr, args.Srcs, args.Resources, javac, jar, options)
	if _, err := lib.TransitiveClasspathEntries(); err != nil {
		return nil, err
	}
	log.Debug("Creating android library %s (prebuilt aar: %v)", params.BuildTarget(), args.IsPrebuiltAar)
	return NewAndroidLibrary(lib, args.Manifest, args.IsPrebuiltAar), nil
}
