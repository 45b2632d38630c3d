package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/policies"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// Issue codes reported by DocumentValidator.
const (
	IssueAPIVersion         = "api-version"
	IssueName               = "name"
	IssueVersion            = "version"
	IssueRange              = "range"
	IssueOwner              = "owner"
	IssuePrimaryCount       = "primary-count"
	IssueDuplicate          = "duplicate"
	IssueComponentMissing   = "component-missing"
	IssueComponentModule    = "component-module"
	IssueComponentKind      = "component-kind"
	IssueContractComponent  = "contract-component"
	IssueContractDuplicate  = "contract-duplicate"
	IssueContractType       = "contract-type"
	IssueDependencyMissing  = "dependency-missing"
	IssueDependencyRange    = "dependency-unsatisfiable"
	IssueDependencyContract = "dependency-contract"
	IssueSelfDependency     = "self-dependency"
	IssueConfigKey          = "config-key"
	IssueConfigOverlap      = "config-overlap"
	IssueCompliance         = "compliance"
	IssueApplicationModule  = "application-module"
	IssueResolution         = "resolution"
	IssueCycle              = "cycle"
)

var validDataClassifications = map[types.DataClassification]struct{}{
	types.DataPublic:       {},
	types.DataInternal:     {},
	types.DataConfidential: {},
	types.DataRestricted:   {},
}

// DocumentValidator checks the cross-document invariants of a registry.
// It never stops at the first problem.
type DocumentValidator struct {
	ContractTypes policies.ContractTypePolicy
}

func NewDocumentValidator(contractTypes policies.ContractTypePolicy) DocumentValidator {
	return DocumentValidator{ContractTypes: contractTypes}
}

type issueCollector struct {
	issues []types.ValidationIssue
}

func (c *issueCollector) add(severity types.Severity, code string, path string, field string, format string, args ...any) {
	c.issues = append(c.issues, types.ValidationIssue{
		Severity: severity,
		Code:     code,
		Path:     path,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *issueCollector) errorf(code string, path string, field string, format string, args ...any) {
	c.add(types.SeverityError, code, path, field, format, args...)
}

func (c *issueCollector) warnf(code string, path string, field string, format string, args ...any) {
	c.add(types.SeverityWarning, code, path, field, format, args...)
}

// Validate returns every issue in the set, including the load-time issues
// already attached to it, sorted by path, field and code.
func (v DocumentValidator) Validate(ctx context.Context, set types.DocumentSet) types.ValidationReport {
	collector := &issueCollector{issues: append([]types.ValidationIssue(nil), set.Issues...)}
	cache := newVersionCache(types.VersionSchemeSemver)

	v.checkDuplicates(collector, set)
	for _, module := range set.Modules {
		assert.NotEmpty(ctx, string(module.Kind), "module kind must be set after loading")
		v.validateModule(collector, set, module, cache)
	}
	for _, component := range set.Components {
		v.validateComponent(collector, component)
	}
	v.checkComponentMembership(collector, set)
	for _, application := range set.Applications {
		v.validateApplication(collector, set, application)
	}
	v.checkCycles(collector, set)

	sortIssues(collector.issues)
	report := types.ValidationReport{
		Documents: len(set.Modules) + len(set.Components) + len(set.Applications),
		Issues:    collector.issues,
	}
	log.Ctx(ctx).Debug().
		Int("documents", report.Documents).
		Int("errors", report.Errors()).
		Int("warnings", report.Warnings()).
		Msg("registry validated")
	return report
}

func (v DocumentValidator) checkDuplicates(c *issueCollector, set types.DocumentSet) {
	modules := map[string]string{}
	for _, module := range set.Modules {
		if first, ok := modules[module.Ref()]; ok {
			c.errorf(IssueDuplicate, module.Path, "metadata", "module %s already defined in %s", module.Ref(), first)
			continue
		}
		modules[module.Ref()] = module.Path
	}
	components := map[string]string{}
	for _, component := range set.Components {
		if first, ok := components[component.Ref()]; ok {
			c.errorf(IssueDuplicate, component.Path, "metadata", "component %s already defined in %s", component.Ref(), first)
			continue
		}
		components[component.Ref()] = component.Path
	}
	applications := map[string]string{}
	for _, application := range set.Applications {
		if first, ok := applications[application.Metadata.Name]; ok {
			c.errorf(IssueDuplicate, application.Path, "metadata.name", "application %s already defined in %s", application.Metadata.Name, first)
			continue
		}
		applications[application.Metadata.Name] = application.Path
	}
}

func (v DocumentValidator) validateModule(c *issueCollector, set types.DocumentSet, module types.Module, cache *versionCache) {
	path := module.Path
	name := module.Metadata.Name

	if module.APIVersion != types.APIVersion {
		c.errorf(IssueAPIVersion, path, "apiVersion", "apiVersion must be %s, got %q", types.APIVersion, module.APIVersion)
	}
	if !ValidName(name) {
		c.errorf(IssueName, path, "metadata.name", "invalid module name %q", name)
	}
	if err := cache.parse(module.Metadata.Version); err != nil {
		c.errorf(IssueVersion, path, "metadata.version", "invalid semantic version %q", module.Metadata.Version)
	}
	if strings.TrimSpace(module.Metadata.Owner) == "" {
		c.errorf(IssueOwner, path, "metadata.owner", "module %s has no owning team", name)
	}

	if count := len(module.Components.Primary); count != 1 {
		c.errorf(IssuePrimaryCount, path, "components.primary", "module %s must have exactly one primary component, found %d", module.Ref(), count)
	}
	listed := map[string]string{}
	for _, ref := range module.Components.All() {
		field := fmt.Sprintf("components.%s", ref.Classification)
		if !ValidName(ref.Name) {
			c.errorf(IssueName, path, field, "invalid component name %q", ref.Name)
		}
		if ref.Version == "" {
			c.errorf(IssueVersion, path, field, "component %s has no version", ref.Name)
		} else if _, ok := set.Component(ref.Name, ref.Version); !ok {
			// Without a document the ref is checked under the scheme of any
			// other version of the component, semver otherwise.
			scheme := componentRefScheme(set, ref.Name)
			if err := newVersionCache(scheme).parse(ref.Version); err != nil {
				c.errorf(IssueVersion, path, field, "component %s has invalid %s version %q", ref.Name, scheme, ref.Version)
			}
		}
		if _, ok := listed[ref.Name]; ok {
			c.errorf(IssueDuplicate, path, field, "component %s listed more than once", ref.Name)
		}
		listed[ref.Name] = ref.Version
	}

	contractNames := map[string]struct{}{}
	for i, contract := range module.Contracts {
		field := fmt.Sprintf("contracts[%d]", i)
		if _, ok := contractNames[contract.Name]; ok {
			c.errorf(IssueContractDuplicate, path, field, "contract %s declared more than once", contract.Name)
		}
		contractNames[contract.Name] = struct{}{}
		v.validateContract(c, path, field, contract, cache)
		if contract.Component != "" {
			if _, ok := listed[contract.Component]; !ok {
				c.errorf(IssueContractComponent, path, field+".component", "contract %s is owned by %s which is not a component of %s", contract.Name, contract.Component, module.Ref())
			}
		}
	}

	byName := set.ModuleVersions()
	for i, dep := range module.Dependencies {
		v.validateModuleDependency(c, module, fmt.Sprintf("dependencies[%d]", i), dep, byName[dep.Module], cache)
	}

	if module.Compatibility.Supported != "" {
		if _, err := cache.semverRange(module.Compatibility.Supported); err != nil {
			c.errorf(IssueRange, path, "compatibility.supported", "invalid version range %q", module.Compatibility.Supported)
		}
	}
	if dc := module.Compliance.DataClassification; dc != "" {
		if _, ok := validDataClassifications[dc]; !ok {
			c.errorf(IssueCompliance, path, "compliance.dataClassification", "unknown data classification %q", dc)
		}
	}
	if module.Compliance.PIIHandling && module.Compliance.DataClassification == types.DataPublic {
		c.warnf(IssueCompliance, path, "compliance", "module %s handles PII but is classified public", name)
	}
}

func componentRefScheme(set types.DocumentSet, name string) types.VersionScheme {
	for _, component := range set.Components {
		if component.Metadata.Name == name {
			return component.Scheme()
		}
	}
	return types.VersionSchemeSemver
}

func (v DocumentValidator) validateContract(c *issueCollector, path string, field string, contract types.Contract, cache *versionCache) {
	if strings.TrimSpace(contract.Name) == "" {
		c.errorf(IssueName, path, field+".name", "contract name must not be empty")
	}
	if !v.ContractTypes.Allowed(contract.Type) {
		c.errorf(IssueContractType, path, field+".type", "contract %s has unknown type %q", contract.Name, contract.Type)
	}
	if err := cache.parse(contract.Version); err != nil {
		c.errorf(IssueVersion, path, field+".version", "contract %s has invalid version %q", contract.Name, contract.Version)
	}
}

func (v DocumentValidator) validateModuleDependency(c *issueCollector, module types.Module, field string, dep types.ModuleDependency, targets []types.Module, cache *versionCache) {
	path := module.Path
	if dep.Module == module.Metadata.Name {
		c.errorf(IssueSelfDependency, path, field, "module %s depends on itself", module.Metadata.Name)
		return
	}
	if _, err := cache.semverRange(dep.Version); err != nil {
		c.errorf(IssueRange, path, field+".version", "invalid version range %q for %s", dep.Version, dep.Module)
		return
	}
	if len(targets) == 0 {
		if dep.Optional {
			c.warnf(IssueDependencyMissing, path, field, "optional dependency %s is not in the registry", dep.Module)
			return
		}
		c.errorf(IssueDependencyMissing, path, field, "dependency %s is not in the registry", dep.Module)
		return
	}
	matching := moduleTargets(targets, dep.Version, nil, cache)
	if len(matching) == 0 {
		c.warnf(IssueDependencyRange, path, field, "no version of %s satisfies %q", dep.Module, normalizeRange(dep.Version))
		return
	}
	for _, contract := range dep.Contracts {
		if !anyProvides(matching, contract) {
			c.errorf(IssueDependencyContract, path, field+".contracts", "no version of %s in %q provides contract %s", dep.Module, normalizeRange(dep.Version), contract)
		}
	}
}

func (v DocumentValidator) validateComponent(c *issueCollector, component types.Component) {
	path := component.Path
	if component.APIVersion != types.APIVersion {
		c.errorf(IssueAPIVersion, path, "apiVersion", "apiVersion must be %s, got %q", types.APIVersion, component.APIVersion)
	}
	if !ValidName(component.Metadata.Name) {
		c.errorf(IssueName, path, "metadata.name", "invalid component name %q", component.Metadata.Name)
	}
	if strings.TrimSpace(component.Metadata.Module) == "" {
		c.errorf(IssueComponentModule, path, "metadata.module", "component %s has no owning module", component.Metadata.Name)
	}
	scheme := newVersionCache(component.Scheme())
	if err := scheme.parse(component.Metadata.Version); err != nil {
		c.errorf(IssueVersion, path, "metadata.version", "invalid %s version %q", component.Scheme(), component.Metadata.Version)
	}

	semverCache := newVersionCache(types.VersionSchemeSemver)
	for i, contract := range component.Contracts {
		v.validateContract(c, path, fmt.Sprintf("contracts[%d]", i), contract, semverCache)
	}
	for i, dep := range component.Dependencies {
		field := fmt.Sprintf("dependencies[%d]", i)
		if dep.Module == component.Metadata.Module {
			c.errorf(IssueSelfDependency, path, field, "component %s depends on its own module", component.Metadata.Name)
		}
		if strings.TrimSpace(dep.Contract) == "" {
			c.errorf(IssueDependencyContract, path, field+".contract", "dependency on %s names no contract", dep.Module)
		}
		if _, err := semverCache.semverRange(dep.Version); err != nil {
			c.errorf(IssueRange, path, field+".version", "invalid version range %q for contract %s", dep.Version, dep.Contract)
		}
	}

	required := map[string]struct{}{}
	for _, key := range component.Configuration.Required {
		if !ValidConfigKey(key) {
			c.errorf(IssueConfigKey, path, "configuration.required", "invalid configuration key %q", key)
		}
		required[key] = struct{}{}
	}
	for _, key := range component.Configuration.Optional {
		if !ValidConfigKey(key) {
			c.errorf(IssueConfigKey, path, "configuration.optional", "invalid configuration key %q", key)
		}
		if _, ok := required[key]; ok {
			c.errorf(IssueConfigOverlap, path, "configuration", "key %s is both required and optional", key)
		}
	}
}

// checkComponentMembership matches module component refs against the
// component documents in the tree. It also resolves component contract
// dependencies against the registry.
func (v DocumentValidator) checkComponentMembership(c *issueCollector, set types.DocumentSet) {
	cache := newVersionCache(types.VersionSchemeSemver)
	byName := set.ModuleVersions()
	referenced := map[string]struct{}{}
	for _, module := range set.Modules {
		for _, ref := range module.Components.All() {
			field := fmt.Sprintf("components.%s", ref.Classification)
			component, ok := set.Component(ref.Name, ref.Version)
			if !ok {
				c.warnf(IssueComponentMissing, module.Path, field, "component document %s@%s not found", ref.Name, ref.Version)
				continue
			}
			referenced[component.Ref()] = struct{}{}
			if component.Metadata.Module != module.Metadata.Name {
				c.errorf(IssueComponentModule, module.Path, field, "component %s belongs to module %q, not %s", component.Ref(), component.Metadata.Module, module.Metadata.Name)
			}
			if component.Classification() != ref.Classification {
				c.errorf(IssueComponentKind, module.Path, field, "component %s has kind %s but is listed as %s", component.Ref(), component.Kind, ref.Classification)
			}
		}
	}
	for _, component := range set.Components {
		if _, ok := referenced[component.Ref()]; !ok {
			c.warnf(IssueComponentMissing, component.Path, "metadata", "component %s is not part of any module version", component.Ref())
		}
		for i, dep := range component.Dependencies {
			field := fmt.Sprintf("dependencies[%d]", i)
			targets := byName[dep.Module]
			if len(targets) == 0 {
				if dep.Optional {
					c.warnf(IssueDependencyMissing, component.Path, field, "optional dependency %s is not in the registry", dep.Module)
				} else {
					c.errorf(IssueDependencyMissing, component.Path, field, "dependency %s is not in the registry", dep.Module)
				}
				continue
			}
			if _, err := cache.semverRange(dep.Version); err != nil {
				continue
			}
			if len(contractTargets(targets, dep.Contract, dep.Version, cache)) == 0 {
				c.warnf(IssueDependencyContract, component.Path, field, "no version of %s provides contract %s in %q", dep.Module, dep.Contract, normalizeRange(dep.Version))
			}
		}
	}
}

func (v DocumentValidator) validateApplication(c *issueCollector, set types.DocumentSet, application types.Application) {
	path := application.Path
	if application.APIVersion != types.APIVersion {
		c.errorf(IssueAPIVersion, path, "apiVersion", "apiVersion must be %s, got %q", types.APIVersion, application.APIVersion)
	}
	if !ValidName(application.Metadata.Name) {
		c.errorf(IssueName, path, "metadata.name", "invalid application name %q", application.Metadata.Name)
	}
	if len(application.Modules) == 0 {
		c.errorf(IssueApplicationModule, path, "modules", "application %s selects no modules", application.Metadata.Name)
	}
	byName := set.ModuleVersions()
	for i, selected := range application.Modules {
		field := fmt.Sprintf("modules[%d]", i)
		if _, err := ParseRange(selected.Version); err != nil {
			c.errorf(IssueRange, path, field+".version", "invalid version range %q for %s", selected.Version, selected.Name)
		}
		if len(byName[selected.Name]) == 0 {
			c.errorf(IssueApplicationModule, path, field, "module %s is not in the registry", selected.Name)
		}
	}
	for i, directive := range application.Resolutions {
		for _, problem := range resolutionProblems(directive) {
			c.errorf(IssueResolution, path, fmt.Sprintf("resolutions[%d]", i), "%s", problem)
		}
	}
}

func anyProvides(modules []types.Module, contract string) bool {
	for _, module := range modules {
		if _, ok := module.Contract(contract); ok {
			return true
		}
	}
	return false
}

func resolutionProblems(directive types.ResolutionDirective) []string {
	var problems []string
	if strings.TrimSpace(directive.Module) == "" {
		problems = append(problems, "resolution directive module must not be empty")
	}
	action := strings.ToLower(strings.TrimSpace(directive.Action))
	switch action {
	case policies.ActionForce, policies.ActionRelax, policies.ActionBlock:
	default:
		problems = append(problems, fmt.Sprintf("resolution directive has invalid action: %q", directive.Action))
	}
	if strings.TrimSpace(directive.Reason) == "" {
		problems = append(problems, "resolution directive reason must not be empty")
	}
	if strings.TrimSpace(directive.Owner) == "" {
		problems = append(problems, "resolution directive owner must not be empty")
	}
	if action == policies.ActionForce && strings.TrimSpace(directive.Value) == "" {
		problems = append(problems, "resolution directive value must not be empty for force")
	}
	return problems
}

func (v DocumentValidator) checkCycles(c *issueCollector, set types.DocumentSet) {
	graph, err := NewGraphBuilder().ModuleNameGraph(set)
	if err != nil {
		return
	}
	paths := map[string]string{}
	for _, module := range set.Modules {
		if _, ok := paths[module.Metadata.Name]; !ok {
			paths[module.Metadata.Name] = module.Path
		}
	}
	for _, cycle := range graph.DetectCycles() {
		c.errorf(IssueCycle, paths[cycle[0]], "dependencies", "dependency cycle: %s", strings.Join(cycle, " -> "))
	}
}

func sortIssues(issues []types.ValidationIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Path != issues[j].Path {
			return issues[i].Path < issues[j].Path
		}
		if issues[i].Field != issues[j].Field {
			return issues[i].Field < issues[j].Field
		}
		return issues[i].Code < issues[j].Code
	})
}
