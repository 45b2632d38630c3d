package core

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// GraphBuilder turns a document set into a dependency graph.
type GraphBuilder struct{}

func NewGraphBuilder() GraphBuilder {
	return GraphBuilder{}
}

// Build creates one node per module version and per component version and
// links them:
//   - module -> module for each dependency, one edge per matching target
//     version, labelled with the required contracts;
//   - component -> component for each contract dependency, pointing at the
//     component owning the contract in each matching target version;
//   - module -> component for composition.
//
// Targets that do not exist are skipped; the validator reports them.
func (b GraphBuilder) Build(ctx context.Context, set types.DocumentSet) (*Graph, error) {
	graph := NewGraph()
	cache := newVersionCache(types.VersionSchemeSemver)
	byName := set.ModuleVersions()

	for _, module := range set.Modules {
		moduleID := ModuleNodeID(module.Metadata.Name, module.Metadata.Version)
		graph.AddNode(moduleID, types.NodeModule)
		for _, ref := range module.Components.All() {
			componentID := ComponentNodeID(ref.Name, ref.Version)
			graph.AddNode(componentID, types.NodeComponent)
			if err := graph.AddEdge(types.GraphEdge{From: moduleID, To: componentID, Kind: types.EdgeContains, Label: string(ref.Classification)}); err != nil {
				return nil, graphError(err)
			}
		}
	}

	for _, module := range set.Modules {
		moduleID := ModuleNodeID(module.Metadata.Name, module.Metadata.Version)
		for _, dep := range module.Dependencies {
			targets := moduleTargets(byName[dep.Module], dep.Version, dep.Contracts, cache)
			for _, target := range targets {
				edge := types.GraphEdge{
					From:  moduleID,
					To:    ModuleNodeID(target.Metadata.Name, target.Metadata.Version),
					Kind:  types.EdgeDependsOn,
					Label: dependencyLabel(dep.Contracts, dep.Optional),
				}
				if edge.From == edge.To {
					continue
				}
				if err := graph.AddEdge(edge); err != nil {
					return nil, graphError(err)
				}
			}
		}
		for _, ref := range module.Components.All() {
			component, ok := set.Component(ref.Name, ref.Version)
			if !ok {
				continue
			}
			if err := b.addContractEdges(graph, component, byName, cache); err != nil {
				return nil, err
			}
		}
	}

	log.Ctx(ctx).Debug().
		Int("modules", len(set.Modules)).
		Int("components", len(set.Components)).
		Int("edges", len(graph.edges)).
		Msg("dependency graph built")
	return graph, nil
}

func (b GraphBuilder) addContractEdges(graph *Graph, component types.Component, byName map[string][]types.Module, cache *versionCache) error {
	fromID := ComponentNodeID(component.Metadata.Name, component.Metadata.Version)
	for _, dep := range component.Dependencies {
		for _, target := range contractTargets(byName[dep.Module], dep.Contract, dep.Version, cache) {
			toID := ModuleNodeID(target.Metadata.Name, target.Metadata.Version)
			if owner, ok := contractOwner(target, dep.Contract); ok {
				toID = ComponentNodeID(owner.Name, owner.Version)
			}
			if toID == fromID {
				continue
			}
			label := dep.Contract + " " + normalizeRange(dep.Version)
			if dep.Optional {
				label += " (optional)"
			}
			if err := graph.AddEdge(types.GraphEdge{From: fromID, To: toID, Kind: types.EdgeConsumes, Label: label}); err != nil {
				return graphError(err)
			}
		}
	}
	return nil
}

// ModuleNameGraph collapses versions: one node per module name with an
// edge wherever any version of one module depends on any version of
// another, directly or through a component contract dependency.
func (b GraphBuilder) ModuleNameGraph(set types.DocumentSet) (*Graph, error) {
	graph := NewGraph()
	for _, name := range set.ModuleNames() {
		graph.AddNode(name, types.NodeModule)
	}
	link := func(from string, to string, label string) error {
		if from == to {
			return nil
		}
		if _, ok := graph.nodes[to]; !ok {
			return nil
		}
		return graph.AddEdge(types.GraphEdge{From: from, To: to, Kind: types.EdgeDependsOn, Label: label})
	}
	for _, module := range set.Modules {
		for _, dep := range module.Dependencies {
			if err := link(module.Metadata.Name, dep.Module, strings.Join(dep.Contracts, ",")); err != nil {
				return nil, graphError(err)
			}
		}
		for _, ref := range module.Components.All() {
			component, ok := set.Component(ref.Name, ref.Version)
			if !ok {
				continue
			}
			for _, dep := range component.Dependencies {
				if err := link(module.Metadata.Name, dep.Module, dep.Contract); err != nil {
					return nil, graphError(err)
				}
			}
		}
	}
	return graph, nil
}

// moduleTargets returns the versions of a module inside rng that provide
// every required contract, newest first. An empty rng admits every
// version, prereleases included.
func moduleTargets(versions []types.Module, rng string, contracts []string, cache *versionCache) []types.Module {
	var out []types.Module
	for _, candidate := range versions {
		if !inRange(candidate.Metadata.Version, rng, cache) {
			continue
		}
		if !providesAll(candidate, contracts) {
			continue
		}
		out = append(out, candidate)
	}
	return newestFirst(out, cache)
}

// contractTargets returns the module versions providing the named
// contract with a contract version inside rng, newest first.
func contractTargets(versions []types.Module, contract string, rng string, cache *versionCache) []types.Module {
	var out []types.Module
	for _, candidate := range versions {
		provided, ok := candidate.Contract(contract)
		if !ok {
			continue
		}
		if !inRange(provided.Version, rng, cache) {
			continue
		}
		out = append(out, candidate)
	}
	return newestFirst(out, cache)
}

func inRange(version string, rng string, cache *versionCache) bool {
	if strings.TrimSpace(rng) == "" {
		return true
	}
	ok, err := cache.satisfies(version, rng)
	return err == nil && ok
}

func providesAll(module types.Module, contracts []string) bool {
	for _, name := range contracts {
		if _, ok := module.Contract(name); !ok {
			return false
		}
	}
	return true
}

// contractOwner finds the component ref owning a contract in a module
// version. Contracts without an owner belong to the primary component.
func contractOwner(module types.Module, contract string) (types.ComponentRef, bool) {
	provided, ok := module.Contract(contract)
	if !ok {
		return types.ComponentRef{}, false
	}
	for _, ref := range module.Components.All() {
		if provided.Component == "" && ref.Classification == types.ClassificationPrimary {
			return ref.ComponentRef, true
		}
		if ref.Name == provided.Component {
			return ref.ComponentRef, true
		}
	}
	return types.ComponentRef{}, false
}

func newestFirst(modules []types.Module, cache *versionCache) []types.Module {
	versions := make([]string, 0, len(modules))
	byVersion := make(map[string]types.Module, len(modules))
	for _, module := range modules {
		versions = append(versions, module.Metadata.Version)
		byVersion[module.Metadata.Version] = module
	}
	out := make([]types.Module, 0, len(modules))
	for _, version := range cache.sortDescending(versions) {
		out = append(out, byVersion[version])
	}
	return out
}

func dependencyLabel(contracts []string, optional bool) string {
	label := strings.Join(contracts, ",")
	if optional {
		if label == "" {
			return "(optional)"
		}
		label += " (optional)"
	}
	return label
}

func graphError(err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to build dependency graph").
		WithCause(err)
}
