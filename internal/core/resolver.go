package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/policies"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// ApplicationResolver turns an application's module ranges into a lock.
type ApplicationResolver struct {
	AllowDeprecated bool
	Generator       string
	Clock           func() time.Time
}

type ResolveResult struct {
	Lock         types.ApplicationLock
	Requirements map[string][]types.VersionRequirement
}

func NewApplicationResolver() ApplicationResolver {
	return ApplicationResolver{Clock: time.Now}
}

// Resolve applies the application's resolution directives, solves for one
// version per reachable module and checks every environment for missing
// required configuration.
func (r ApplicationResolver) Resolve(ctx context.Context, application types.Application, set types.DocumentSet) (ResolveResult, error) {
	now := time.Now()
	if r.Clock != nil {
		now = r.Clock()
	}
	for _, directive := range application.Resolutions {
		if policies.DirectiveExpired(directive, now) {
			log.Ctx(ctx).Warn().
				Str("module", directive.Module).
				Str("action", directive.Action).
				Str("expiresAt", directive.ExpiresAt).
				Msg("ignoring expired resolution directive")
		}
	}
	rules, records, err := policies.BuildModuleRules(application.Resolutions, now)
	if err != nil {
		return ResolveResult{}, err
	}
	available := set.ModuleVersions()
	for name, rule := range rules {
		if rule.Pin == "" {
			continue
		}
		if _, ok := set.Module(name, rule.Pin); !ok {
			return ResolveResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no available versions for %s: forced version %s is not in the registry", name, rule.Pin))
		}
	}

	selected, requirements, err := solveModules(ctx, solverInput{
		Application:     application,
		Available:       available,
		Components:      set.Component,
		Rules:           rules,
		AllowDeprecated: r.AllowDeprecated,
	})
	if err != nil {
		return ResolveResult{}, err
	}

	lock, err := r.buildLock(application, set, selected, records)
	if err != nil {
		return ResolveResult{}, err
	}
	log.Ctx(ctx).Debug().
		Str("application", application.Metadata.Name).
		Int("modules", len(lock.Modules)).
		Int("directives", len(records)).
		Msg("application resolved")
	return ResolveResult{Lock: lock, Requirements: requirements}, nil
}

func (r ApplicationResolver) buildLock(application types.Application, set types.DocumentSet, selected map[string]string, records []types.ResolutionRecord) (types.ApplicationLock, error) {
	roots := map[string]types.ApplicationModule{}
	for _, root := range application.Modules {
		roots[root.Name] = root
	}

	names := make([]string, 0, len(selected))
	for name := range selected {
		names = append(names, name)
	}
	sort.Strings(names)

	var locked []types.LockedModule
	var deployed []types.Component
	for _, name := range names {
		module, ok := set.Module(name, selected[name])
		if !ok {
			return types.ApplicationLock{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("solver selected unknown module %s@%s", name, selected[name]))
		}
		root, isRoot := roots[name]
		components, err := lockedComponents(module, root.Components)
		if err != nil {
			return types.ApplicationLock{}, err
		}
		entry := types.LockedModule{
			Name:       name,
			Version:    module.Metadata.Version,
			Transitive: !isRoot,
			Components: components,
		}
		if isRoot {
			entry.Constraint = normalizeRange(root.Version)
		}
		locked = append(locked, entry)
		for _, component := range components {
			if doc, ok := set.Component(component.Name, component.Version); ok {
				deployed = append(deployed, doc)
			}
		}
	}

	lock := types.ApplicationLock{
		APIVersion: types.APIVersion,
		Kind:       types.KindApplicationLock,
		Metadata: types.LockMetadata{
			Application: application.Metadata.Name,
			Version:     application.Metadata.Version,
			Generator:   r.Generator,
		},
		Modules:      locked,
		Resolutions:  records,
		Environments: CheckEnvironments(application.Environments, deployed),
	}
	lock.Metadata.Digest = lockDigest(lock)
	return lock, nil
}

// lockedComponents lists the components deployed from a module version.
// A non-empty subset keeps the primary component plus the named ones.
func lockedComponents(module types.Module, subset []string) ([]types.LockedComponent, error) {
	wanted := map[string]bool{}
	for _, name := range subset {
		wanted[name] = false
	}
	var out []types.LockedComponent
	for _, ref := range module.Components.All() {
		if _, ok := wanted[ref.Name]; ok {
			wanted[ref.Name] = true
		} else if len(subset) > 0 && ref.Classification != types.ClassificationPrimary {
			continue
		}
		out = append(out, types.LockedComponent{
			Name:           ref.Name,
			Classification: ref.Classification,
			Version:        ref.Version,
		})
	}
	for _, name := range subset {
		if !wanted[name] {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("component %s is not part of %s", name, module.Ref()))
		}
	}
	return out, nil
}

func lockDigest(lock types.ApplicationLock) string {
	var lines []string
	for _, module := range lock.Modules {
		lines = append(lines, module.Name+"@"+module.Version)
		for _, component := range module.Components {
			lines = append(lines, "  "+component.Name+"@"+component.Version)
		}
	}
	return digestLines(lines)
}
