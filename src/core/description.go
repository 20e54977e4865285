package core

// A Description is the factory for one type of build rule. Given the populated arguments of a
// declaration, and params whose dependencies have already been resolved, it constructs the rule.
//
// CreateBuildRule must be a pure function of its inputs: given equal args and equivalent params
// it must construct rules with equal rule keys. It never resolves targets itself; any rules it
// needs beyond the params' deps are looked up in the resolver.
type Description[A any] interface {
	// BuildRuleType returns the tag this description is registered under.
	BuildRuleType() BuildRuleType
	// CreateUnpopulatedConstructorArg returns a fresh arg for the declaration layer to fill in.
	CreateUnpopulatedConstructorArg() A
	// CreateBuildRule constructs a rule from its params and arguments.
	CreateBuildRule(params *BuildRuleParams, resolver *BuildRuleResolver, args A) (BuildRule, error)
}
