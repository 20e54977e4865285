package core

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/thought-machine/rulegraph/src/cli"
	"github.com/thought-machine/rulegraph/src/metrics"
)

// A Registry maps rule types to the descriptions that construct them.
// It's built once at startup and passed to whatever constructs the graph.
type Registry struct {
	descriptions map[BuildRuleType]registeredDescription
	validate     *validator.Validate
	mutex        sync.RWMutex
}

// registeredDescription erases the arg type of a Description so they can be stored together.
type registeredDescription struct {
	newArg func() any
	create func(params *BuildRuleParams, resolver *BuildRuleResolver, arg any) (BuildRule, error)
}

// NewRegistry returns a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptions: map[BuildRuleType]registeredDescription{},
		validate:     validator.New(),
	}
}

// Register adds a description to the registry. It's an error if one is already registered
// for the same rule type.
func Register[A any](r *Registry, d Description[A]) error {
	ruleType := d.BuildRuleType()
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, present := r.descriptions[ruleType]; present {
		return fmt.Errorf("%w: %s", ErrDuplicateRuleType, ruleType)
	}
	r.descriptions[ruleType] = registeredDescription{
		newArg: func() any { return d.CreateUnpopulatedConstructorArg() },
		create: func(params *BuildRuleParams, resolver *BuildRuleResolver, arg any) (BuildRule, error) {
			a, ok := arg.(A)
			if !ok {
				return nil, fmt.Errorf("%w: %s expects %T, was given %T", ErrInvalidArg, ruleType, *new(A), arg)
			}
			return d.CreateBuildRule(params, resolver, a)
		},
	}
	log.Debug("Registered rule type %s", ruleType)
	return nil
}

// MustRegister is like Register but panics on failure.
func MustRegister[A any](r *Registry, d Description[A]) {
	if err := Register(r, d); err != nil {
		panic(err)
	}
}

// Types returns all the registered rule types, sorted.
func (r *Registry) Types() []BuildRuleType {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	types := make([]BuildRuleType, 0, len(r.descriptions))
	for t := range r.descriptions {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Has returns true if the given rule type is registered.
func (r *Registry) Has(ruleType BuildRuleType) bool {
	_, err := r.get(ruleType)
	return err == nil
}

func (r *Registry) get(ruleType BuildRuleType) (registeredDescription, error) {
	r.mutex.RLock()
	d, present := r.descriptions[ruleType]
	r.mutex.RUnlock()
	if !present {
		types := r.Types()
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		return d, fmt.Errorf("%w: %s%s", ErrUnknownRuleType, ruleType, cli.PrettyPrintSuggestion(string(ruleType), names, 4))
	}
	return d, nil
}

// NewArg returns a fresh, unpopulated arg for the given rule type.
func (r *Registry) NewArg(ruleType BuildRuleType) (any, error) {
	d, err := r.get(ruleType)
	if err != nil {
		return nil, err
	}
	return d.newArg(), nil
}

// CreateBuildRule validates the given arg and constructs a rule of the given type from it.
// The arg must be of the type returned by NewArg for the same rule type.
func (r *Registry) CreateBuildRule(ruleType BuildRuleType, params *BuildRuleParams, resolver *BuildRuleResolver, arg any) (BuildRule, error) {
	d, err := r.get(ruleType)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rule, err := r.createBuildRule(d, params, resolver, arg)
	if err != nil {
		metrics.RuleConstructionFailed(string(ruleType))
		return nil, fmt.Errorf("failed to construct %s %s: %w", ruleType, params.BuildTarget(), err)
	}
	metrics.RuleConstructed(string(ruleType), time.Since(start))
	log.Debug("Constructed %s %s", ruleType, rule.BuildTarget())
	return rule, nil
}

func (r *Registry) createBuildRule(d registeredDescription, params *BuildRuleParams, resolver *BuildRuleResolver, arg any) (BuildRule, error) {
	if err := r.validateArg(arg); err != nil {
		return nil, err
	}
	return d.create(params, resolver, arg)
}

// validateArg checks any validation tags on the arg's fields, eg. `validate:"required"`.
// Args that aren't structs (or pointers to them) have nothing to validate.
func (r *Registry) validateArg(arg any) error {
	v := reflect.ValueOf(arg)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return fmt.Errorf("%w: nil", ErrInvalidArg)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	if err := r.validate.Struct(arg); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArg, err)
	}
	return nil
}
