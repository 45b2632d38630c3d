package policies

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

const (
	ActionForce = "force"
	ActionRelax = "relax"
	ActionBlock = "block"
)

// ModuleRule is the accumulated effect of every directive on one module.
type ModuleRule struct {
	Module   string
	Pin      string
	Blocked  []string
	BlockAll bool
	Relax    bool
}

// Admits reports whether version survives the rule's pin and blocks.
func (r ModuleRule) Admits(version string) bool {
	if r.BlockAll {
		return false
	}
	if r.Pin != "" && r.Pin != version {
		return false
	}
	return !slices.Contains(r.Blocked, version)
}

// IgnoresDependentRanges reports whether ranges placed on the module by
// other modules are dropped.
func (r ModuleRule) IgnoresDependentRanges() bool {
	return r.Relax || r.Pin != ""
}

// ApplyResolution folds one directive into rule.
func ApplyResolution(rule ModuleRule, directive types.ResolutionDirective) (ModuleRule, types.ResolutionRecord, error) {
	record := types.ResolutionRecord(directive)
	if strings.TrimSpace(directive.Module) == "" {
		return rule, record, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("resolution directive requires module")
	}
	rule.Module = directive.Module
	value := strings.TrimSpace(directive.Value)

	switch strings.ToLower(directive.Action) {
	case ActionForce:
		if value == "" {
			return rule, record, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("force directive requires value")
		}
		if rule.Pin != "" && rule.Pin != value {
			return rule, record, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("conflicting force directives for %s: %s and %s", directive.Module, rule.Pin, value))
		}
		rule.Pin = value
		return rule, record, nil
	case ActionRelax:
		rule.Relax = true
		return rule, record, nil
	case ActionBlock:
		if value == "" {
			rule.BlockAll = true
			return rule, record, nil
		}
		if !slices.Contains(rule.Blocked, value) {
			rule.Blocked = append(rule.Blocked, value)
		}
		return rule, record, nil
	default:
		return rule, record, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown resolution action: %s", directive.Action))
	}
}

// BuildModuleRules applies every unexpired directive, returning the rules
// keyed by module and one record per applied directive.
func BuildModuleRules(directives []types.ResolutionDirective, now time.Time) (map[string]ModuleRule, []types.ResolutionRecord, error) {
	rules := map[string]ModuleRule{}
	var records []types.ResolutionRecord
	for _, directive := range directives {
		if DirectiveExpired(directive, now) {
			continue
		}
		rule, record, err := ApplyResolution(rules[directive.Module], directive)
		if err != nil {
			return nil, nil, err
		}
		rules[directive.Module] = rule
		records = append(records, record)
	}
	return rules, records, nil
}

// DirectiveExpired reports whether the directive's expiresAt lies before
// now. Directives without a parseable expiry never expire.
func DirectiveExpired(directive types.ResolutionDirective, now time.Time) bool {
	expires := parseTimeFlexible(directive.ExpiresAt)
	if expires.IsZero() {
		return false
	}
	return now.After(expires)
}
