// Package rulekey implements the rule keys that identify whether a rule needs rebuilding.
//
// A rule's key covers the config, its type and target, the keys of all its dependencies,
// any fields the rule itself adds and the contents of any source files it names. Keys of
// dependencies are computed first (and only once each), so a change anywhere in a rule's
// transitive inputs changes its key.
package rulekey

import (
	"encoding/binary"
	"fmt"
	"hash"
	"sort"

	"github.com/zeebo/blake3"
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/rulegraph/src/cmap"
	"github.com/thought-machine/rulegraph/src/core"
	"github.com/thought-machine/rulegraph/src/fs"
)

var log = logging.MustGetLogger("rulekey")

// Tags preceding each kind of field, so that eg. a string and a single-element list of
// the same string don't hash the same.
const (
	tagString byte = iota + 1
	tagStrings
	tagBool
	tagStringMap
	tagPath
	tagRule
)

// A Factory creates rule key builders and memoizes the keys they build.
// It implements core.RuleKeyBuilderFactory.
type Factory struct {
	configHash []byte
	hasher     *fs.PathHasher
	resolver   *core.BuildRuleResolver
	keys       *cmap.ErrMap[core.BuildTarget, core.RuleKey]
}

// NewFactory returns a new Factory. Source files are read from the given filesystem;
// rules referred to by source paths are found in the given resolver.
func NewFactory(config *core.Configuration, pfs *fs.ProjectFilesystem, resolver *core.BuildRuleResolver) *Factory {
	return &Factory{
		configHash: config.Hash(),
		hasher:     fs.NewPathHasher(pfs.Root(), true, newHash, "blake3"),
		resolver:   resolver,
		keys: cmap.NewErrMap[core.BuildTarget, core.RuleKey](cmap.DefaultShardCount, func(t core.BuildTarget) uint64 {
			return cmap.XXHash(t.FullyQualifiedName())
		}),
	}
}

func newHash() hash.Hash {
	return blake3.New()
}

// NewInstance implements core.RuleKeyBuilderFactory.
func (f *Factory) NewInstance(rule core.BuildRule) core.RuleKeyBuilder {
	b := &builder{factory: f, h: blake3.New()}
	b.h.Write(f.configHash)
	b.SetString(".type", string(rule.Type()))
	b.SetString(".target", rule.BuildTarget().FullyQualifiedName())
	for _, dep := range rule.Deps() {
		b.SetRule(".dep", dep)
	}
	return b
}

// Build implements core.RuleKeyBuilderFactory.
// Concurrent requests for the same rule wait for the first one to finish.
func (f *Factory) Build(rule core.BuildRule) (core.RuleKey, error) {
	target := rule.BuildTarget()
	key, wait, first, err := f.keys.GetOrWait(target)
	if wait == nil {
		return key, err
	} else if !first {
		<-wait
		key, _, err := f.keys.Get(target)
		return key, err
	}
	key, err = rule.AppendToRuleKey(f.NewInstance(rule)).Build()
	if err != nil {
		err = fmt.Errorf("failed to calculate rule key for %s: %w", target, err)
		f.keys.SetError(target, err)
		return key, err
	}
	log.Debug("Rule key for %s: %s", target, key)
	f.keys.Set(target, key)
	return key, nil
}

// A builder accumulates fields into a hash.
// Once any field fails to be added, the rest are ignored and Build returns that error.
type builder struct {
	factory *Factory
	h       hash.Hash
	err     error
}

func (b *builder) writeString(s string) {
	var buf [binary.MaxVarintLen64]byte
	b.h.Write(buf[:binary.PutUvarint(buf[:], uint64(len(s)))])
	b.h.Write([]byte(s))
}

func (b *builder) field(name string, tag byte) {
	b.writeString(name)
	b.h.Write([]byte{tag})
}

func (b *builder) SetString(name, value string) core.RuleKeyBuilder {
	b.field(name, tagString)
	b.writeString(value)
	return b
}

func (b *builder) SetStrings(name string, values []string) core.RuleKeyBuilder {
	b.field(name, tagStrings)
	b.writeString(fmt.Sprint(len(values)))
	for _, v := range values {
		b.writeString(v)
	}
	return b
}

func (b *builder) SetBool(name string, value bool) core.RuleKeyBuilder {
	b.field(name, tagBool)
	if value {
		b.h.Write([]byte{1})
	} else {
		b.h.Write([]byte{0})
	}
	return b
}

func (b *builder) SetStringMap(name string, values map[string]string) core.RuleKeyBuilder {
	b.field(name, tagStringMap)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.writeString(fmt.Sprint(len(keys)))
	for _, k := range keys {
		b.writeString(k)
		b.writeString(values[k])
	}
	return b
}

func (b *builder) SetSourcePath(name string, path core.SourcePath) core.RuleKeyBuilder {
	if b.err != nil {
		return b
	}
	b.field(name, tagPath)
	switch path := path.(type) {
	case core.PathSourcePath:
		h, err := b.factory.hasher.Hash(path.Path())
		if err != nil {
			b.err = fmt.Errorf("failed to hash %s: %w", path, err)
			return b
		}
		b.writeString(path.Path())
		b.h.Write(h)
	case core.BuildTargetSourcePath:
		rule, err := b.factory.resolver.GetRule(path.Target())
		if err != nil {
			b.err = err
			return b
		}
		b.writeString(path.String())
		b.setRule(rule)
	default:
		b.err = fmt.Errorf("unknown source path type %T", path)
	}
	return b
}

func (b *builder) SetSourcePaths(name string, paths []core.SourcePath) core.RuleKeyBuilder {
	b.field(name, tagStrings)
	b.writeString(fmt.Sprint(len(paths)))
	for _, p := range paths {
		b.SetSourcePath(name, p)
	}
	return b
}

func (b *builder) SetRule(name string, rule core.BuildRule) core.RuleKeyBuilder {
	if b.err != nil {
		return b
	}
	b.field(name, tagRule)
	b.setRule(rule)
	return b
}

func (b *builder) setRule(rule core.BuildRule) {
	key, err := b.factory.Build(rule)
	if err != nil {
		b.err = err
		return
	}
	b.h.Write(key[:])
}

func (b *builder) Build() (core.RuleKey, error) {
	var key core.RuleKey
	if b.err != nil {
		return key, b.err
	}
	copy(key[:], b.h.Sum(nil))
	return key, nil
}
