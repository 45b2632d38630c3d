package policies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// DefaultContractTypes is the built-in contract type taxonomy. Custom
// types are admitted through the "custom:*" prefix.
var DefaultContractTypes = []string{
	"openapi-3.0",
	"openapi-3.1",
	"asyncapi-2.6",
	"graphql",
	"grpc-proto",
	"kafka-avro",
	"kafka-json",
	"cloudevents",
	"terraform-output",
	"helm-values",
	"micro-frontend",
	"cli-commands",
	"sdk",
	"sql-schema",
	"custom:*",
}

// ContractTypePolicy decides whether a contract type belongs to the
// taxonomy. Patterns are exact names, prefixes ending in "*", or "*".
type ContractTypePolicy struct {
	Patterns []string
	exact    map[string]int
	prefixes []prefixPattern
	wildcard int
}

type prefixPattern struct {
	prefix  string
	pattern int
}

type patternKind int

const (
	patternExact patternKind = iota
	patternPrefix
	patternWildcard
	patternInvalid
)

// NewContractTypePolicy compiles the default taxonomy plus extra patterns.
func NewContractTypePolicy(extra []string) ContractTypePolicy {
	policy := ContractTypePolicy{wildcard: -1}
	seen := map[string]struct{}{}
	for _, pattern := range append(append([]string{}, DefaultContractTypes...), extra...) {
		normalized := strings.ToLower(strings.TrimSpace(pattern))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		policy.Patterns = append(policy.Patterns, normalized)
	}
	policy.compile()
	return policy
}

// Match returns the pattern admitting contractType. Exact names win over
// prefixes, prefixes over the wildcard; among equals the first pattern wins.
func (p ContractTypePolicy) Match(contractType string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(contractType))
	if idx, ok := p.exact[name]; ok {
		return p.Patterns[idx], nil
	}
	best := -1
	for _, entry := range p.prefixes {
		if len(name) > len(entry.prefix) && strings.HasPrefix(name, entry.prefix) {
			best = minIndex(best, entry.pattern)
		}
	}
	if best < 0 && p.wildcard >= 0 && name != "" {
		best = p.wildcard
	}
	if best >= 0 {
		return p.Patterns[best], nil
	}
	return "", errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("unknown contract type: %s", contractType))
}

// Allowed reports whether contractType belongs to the taxonomy.
func (p ContractTypePolicy) Allowed(contractType string) bool {
	_, err := p.Match(contractType)
	return err == nil
}

// Known returns the sorted exact contract types of the taxonomy.
func (p ContractTypePolicy) Known() []string {
	out := make([]string, 0, len(p.exact))
	for name := range p.exact {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *ContractTypePolicy) compile() {
	p.exact = map[string]int{}
	p.prefixes = nil
	p.wildcard = -1
	for idx, pattern := range p.Patterns {
		name, kind := parseNamePattern(pattern)
		switch kind {
		case patternWildcard:
			if p.wildcard < 0 {
				p.wildcard = idx
			}
		case patternExact:
			if _, ok := p.exact[name]; !ok {
				p.exact[name] = idx
			}
		case patternPrefix:
			p.prefixes = append(p.prefixes, prefixPattern{prefix: name, pattern: idx})
		}
	}
}

func parseNamePattern(value string) (string, patternKind) {
	pattern := strings.TrimSpace(value)
	if pattern == "" {
		return "", patternInvalid
	}
	if pattern == "*" {
		return "", patternWildcard
	}
	if strings.Count(pattern, "*") > 1 || (strings.Contains(pattern, "*") && !strings.HasSuffix(pattern, "*")) {
		return "", patternInvalid
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.TrimSuffix(pattern, "*"), patternPrefix
	}
	return pattern, patternExact
}

func minIndex(current int, candidate int) int {
	if candidate < 0 {
		return current
	}
	if current < 0 || candidate < current {
		return candidate
	}
	return current
}
