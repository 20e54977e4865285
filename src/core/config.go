// Utilities for reading the config files.

package core

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/please-build/gcfg"
	"github.com/zeebo/blake3"
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/cli"
)

var log = logging.MustGetLogger("core")

// ConfigFileName is the file name for the typical repo config - this is normally checked in
const ConfigFileName string = ".plzconfig"

// ArchConfigFileName is the architecture-specific config file which overrides the repo one.
var ArchConfigFileName = fmt.Sprintf(".plzconfig_%s_%s", runtime.GOOS, runtime.GOARCH)

// LocalConfigFileName is the file name for the local repo config - this is not normally checked
// in and used to override settings on the local machine.
const LocalConfigFileName string = ".plzconfig.local"

// MachineConfigFileName is the file name for the machine-level config.
const MachineConfigFileName = "/etc/plzconfig"

// DefaultConfigFiles returns the config files that are read by default, in order.
func DefaultConfigFiles() []string {
	return []string{MachineConfigFileName, ConfigFileName, ArchConfigFileName, LocalConfigFileName}
}

// A Configuration contains all the settings that can be configured about a run.
// It's populated from ini-style files; see ReadConfigFiles.
type Configuration struct {
	Please struct {
		Version    cli.Version
		NumThreads int
		Nonce      string
	}
	Build struct {
		Path    []string
		Timeout int
	}
	Java struct {
		JavacTool   string
		JarTool     string
		SourceLevel string
		TargetLevel string
	}
	Scala struct {
		Compiler string
	}
	Python struct {
		PexTool            string
		DefaultInterpreter string
		TestRunner         string
	}
	Test struct {
		Timeout int
	}
	Metrics struct {
		PushGatewayURL string
		PushTimeout    int
		// Each is of the form name=command; the command's output becomes the label's value.
		CustomLabel []string
	}
}

func readConfigFile(config *Configuration, filename string) error {
	if err := gcfg.ReadFileInto(config, filename); err != nil && errors.Is(err, os.ErrNotExist) {
		return nil // It's not an error to not have the file at all.
	} else if err != nil {
		return err
	}
	log.Debug("Read config from %s", filename)
	return nil
}

// ReadConfigFiles reads config from the given locations, in order.
// Values are filled in by defaults initially and then overridden by each file in turn.
func ReadConfigFiles(filenames []string) (*Configuration, error) {
	config := DefaultConfiguration()
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return config, err
		}
	}
	// Slices add rather than overwriting so we can't set them upfront as we would with other values.
	setDefault(&config.Build.Path, []string{"/usr/local/bin", "/usr/bin", "/bin"})
	return config, config.validate()
}

// setDefault sets a slice of strings in the config if the set one is empty.
func setDefault(conf *[]string, def []string) {
	if len(*conf) == 0 {
		*conf = def
	}
}

// DefaultConfiguration returns the default configuration, before any files are read.
func DefaultConfiguration() *Configuration {
	config := Configuration{}
	config.Please.NumThreads = runtime.NumCPU() + 2
	config.Please.Nonce = "1"  // Arbitrary nonce to invalidate config when needed.
	config.Build.Timeout = 600 // Ten minutes
	config.Java.JavacTool = "javac"
	config.Java.JarTool = "jar"
	config.Java.SourceLevel = "8"
	config.Java.TargetLevel = "8"
	config.Scala.Compiler = "zinc"
	config.Python.PexTool = "please_pex"
	config.Python.DefaultInterpreter = "python3"
	config.Python.TestRunner = "unittest"
	config.Test.Timeout = 600
	config.Metrics.PushTimeout = 2
	return &config
}

func (config *Configuration) validate() error {
	if config.Please.NumThreads <= 0 {
		return fmt.Errorf("please.numthreads must be positive, was %d", config.Please.NumThreads)
	}
	for _, label := range config.Metrics.CustomLabel {
		if name, cmd, found := strings.Cut(label, "="); !found || name == "" || cmd == "" {
			return fmt.Errorf("metrics.customlabel must be of the form name=command, was %s", label)
		}
	}
	return nil
}

// CustomMetricLabels returns the configured custom metric labels as a map of name to command.
func (config *Configuration) CustomMetricLabels() map[string]string {
	labels := make(map[string]string, len(config.Metrics.CustomLabel))
	for _, label := range config.Metrics.CustomLabel {
		name, cmd, _ := strings.Cut(label, "=")
		labels[name] = cmd
	}
	return labels
}

// BuildPath returns the configured build path in the colon-separated form used for $PATH.
func (config *Configuration) BuildPath() string {
	return strings.Join(config.Build.Path, ":")
}

// Hash returns a hash of the parts of the config that affect every rule.
// Tool paths are not included; they're picked up by the rules that use them.
func (config *Configuration) Hash() []byte {
	h := blake3.New()
	h.Write([]byte(config.Please.Nonce))
	for _, p := range config.Build.Path {
		h.Write([]byte(p))
	}
	h.Write([]byte(config.Java.SourceLevel))
	h.Write([]byte(config.Java.TargetLevel))
	return h.Sum(nil)
}

// ApplyOverrides applies a set of overrides to the config.
// The keys of the given map are dot notation for the config setting, eg. scala.compiler.
func (config *Configuration) ApplyOverrides(overrides map[string]string) error {
	match := func(s1 string) func(string) bool {
		return func(s2 string) bool {
			return strings.ToLower(s2) == s1
		}
	}
	elem := reflect.ValueOf(config).Elem()
	for k, v := range overrides {
		split := strings.Split(strings.ToLower(k), ".")
		if len(split) != 2 {
			return fmt.Errorf("bad option format: %s", k)
		}
		field := elem.FieldByNameFunc(match(split[0]))
		if !field.IsValid() {
			return fmt.Errorf("unknown config section: %s", split[0])
		} else if field.Kind() != reflect.Struct {
			return fmt.Errorf("unsettable config section: %s", split[0])
		}
		field = field.FieldByNameFunc(match(split[1]))
		if !field.IsValid() {
			return fmt.Errorf("unknown config field: %s", k)
		}
		if u, ok := field.Addr().Interface().(encoding.TextUnmarshaler); ok {
			if err := u.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid value for %s: %w", k, err)
			}
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(v)
		case reflect.Bool:
			v = strings.ToLower(v)
			// Mimics the set of truthy things gcfg accepts in our config file.
			field.SetBool(v == "true" || v == "yes" || v == "on" || v == "1")
		case reflect.Int:
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for an integer field %s: %s", k, v)
			}
			field.SetInt(int64(i))
		case reflect.Slice:
			// We only have to worry about slices of strings. Comma-separated values are accepted.
			field.Set(reflect.ValueOf(strings.Split(v, ",")))
		default:
			return fmt.Errorf("can't override config field %s", k)
		}
	}
	return config.validate()
}
