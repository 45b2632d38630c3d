package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/crillab/gophersat/solver"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/policies"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// moduleVarKey maps a SAT variable ID back to its module version.
type moduleVarKey struct {
	Name    string
	Version string
}

// solverInput is everything the module solver needs for one application.
type solverInput struct {
	Application     types.Application
	Available       map[string][]types.Module
	Components      func(name string, version string) (types.Component, bool)
	Rules           map[string]policies.ModuleRule
	AllowDeprecated bool
}

// moduleSolverState holds the bookkeeping for one SAT invocation.
type moduleSolverState struct {
	input        solverInput
	cache        *versionCache
	candidates   map[string][]types.Module
	versionID    map[string]map[string]int
	varKey       map[int]moduleVarKey
	varModule    map[int]types.Module
	requirements map[string][]types.VersionRequirement
	varID        int
	costLits     []solver.Lit
	costWeights  []int
}

// solveModules selects one version for every module reachable from the
// application so that every non-optional dependency range and contract
// requirement holds. Fewer modules and newer versions are preferred.
func solveModules(ctx context.Context, input solverInput) (map[string]string, map[string][]types.VersionRequirement, error) {
	if len(input.Application.Modules) == 0 {
		return nil, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("application %s selects no modules", input.Application.Metadata.Name))
	}
	state, err := buildModuleSolverState(input)
	if err != nil {
		return nil, nil, err
	}
	clauses, err := buildModuleClauses(state)
	if err != nil {
		return nil, nil, err
	}
	selected, err := solveModuleSAT(ctx, state, clauses)
	if err != nil {
		return nil, nil, err
	}
	return selected, state.requirements, nil
}

// buildModuleSolverState walks the dependency closure of the application
// roots and enumerates every admissible module version as a variable.
func buildModuleSolverState(input solverInput) (*moduleSolverState, error) {
	s := &moduleSolverState{
		input:        input,
		cache:        newVersionCache(types.VersionSchemeSemver),
		candidates:   map[string][]types.Module{},
		versionID:    map[string]map[string]int{},
		varKey:       map[int]moduleVarKey{},
		varModule:    map[int]types.Module{},
		requirements: map[string][]types.VersionRequirement{},
	}

	var queue []string
	for _, root := range input.Application.Modules {
		if len(input.Available[root.Name]) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("no available versions for %s", root.Name))
		}
		if rule, ok := input.Rules[root.Name]; ok && rule.BlockAll {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf("module blocked by directive: %s", root.Name))
		}
		queue = append(queue, root.Name)
	}

	visited := map[string]bool{}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true
		s.addCandidates(name)
		for _, module := range s.candidates[name] {
			for _, dep := range module.Dependencies {
				if !dep.Optional && !visited[dep.Module] {
					queue = append(queue, dep.Module)
				}
			}
			for _, component := range s.componentsOf(module) {
				for _, dep := range component.Dependencies {
					if !dep.Optional && !visited[dep.Module] {
						queue = append(queue, dep.Module)
					}
				}
			}
		}
	}
	if s.varID == 0 {
		if err := blockedRequirement(s); err != nil {
			return nil, err
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no compatible version set for application %s", input.Application.Metadata.Name)).
			WithCause(fmt.Errorf("every candidate version was excluded"))
	}
	return s, nil
}

// addCandidates registers the admissible versions of a module, newest
// first. Each selected version costs 1 plus its age rank.
func (s *moduleSolverState) addCandidates(name string) {
	rule := s.input.Rules[name]
	var admitted []types.Module
	for _, module := range s.input.Available[name] {
		if module.Compatibility.Deprecated && !s.input.AllowDeprecated && rule.Pin != module.Metadata.Version {
			continue
		}
		if !rule.Admits(module.Metadata.Version) {
			continue
		}
		if err := s.cache.parse(module.Metadata.Version); err != nil {
			continue
		}
		admitted = append(admitted, module)
	}
	ordered := newestFirst(admitted, s.cache)
	s.candidates[name] = ordered
	for rank, module := range ordered {
		s.varID++
		id := s.varID
		if s.versionID[name] == nil {
			s.versionID[name] = map[string]int{}
		}
		s.versionID[name][module.Metadata.Version] = id
		s.varKey[id] = moduleVarKey{Name: name, Version: module.Metadata.Version}
		s.varModule[id] = module
		s.costLits = append(s.costLits, solver.IntToLit(int32(id))) //nolint:gosec // id is bounded by the number of module versions
		s.costWeights = append(s.costWeights, 1+rank)
	}
}

// componentsOf returns the component documents a module version ships.
// For application roots with a component subset only the subset and the
// primary component count.
func (s *moduleSolverState) componentsOf(module types.Module) []types.Component {
	if s.input.Components == nil {
		return nil
	}
	subset := rootComponentSubset(s.input.Application, module.Metadata.Name)
	var out []types.Component
	for _, ref := range module.Components.All() {
		if subset != nil && ref.Classification != types.ClassificationPrimary {
			if _, ok := subset[ref.Name]; !ok {
				continue
			}
		}
		if component, ok := s.input.Components(ref.Name, ref.Version); ok {
			out = append(out, component)
		}
	}
	return out
}

func rootComponentSubset(application types.Application, module string) map[string]struct{} {
	for _, root := range application.Modules {
		if root.Name != module || len(root.Components) == 0 {
			continue
		}
		subset := map[string]struct{}{}
		for _, name := range root.Components {
			subset[name] = struct{}{}
		}
		return subset
	}
	return nil
}

// buildModuleClauses generates three kinds of SAT clauses:
//  1. At-most-one: only one version of each module can be selected.
//  2. Root demands: each application module needs a version in its range.
//  3. Transitive: a selected version needs its dependencies satisfied.
func buildModuleClauses(s *moduleSolverState) ([][]int, error) {
	var clauses [][]int

	for _, name := range sortedCandidateNames(s.candidates) {
		ids := moduleIDs(s, name)
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				clauses = append(clauses, []int{-ids[i], -ids[j]})
			}
		}
	}

	appName := s.input.Application.Metadata.Name
	for _, root := range s.input.Application.Modules {
		rng := root.Version
		if rule := s.input.Rules[root.Name]; rule.Pin != "" {
			rng = ""
		}
		if _, err := s.cache.semverRange(rng); err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid version range %q for %s", root.Version, root.Name)).
				WithCause(err)
		}
		s.require(types.VersionRequirement{Module: root.Name, Range: normalizeRange(root.Version), Source: "application:" + appName})
		var ids []int
		for _, target := range moduleTargets(s.candidates[root.Name], rng, nil, s.cache) {
			ids = append(ids, s.versionID[root.Name][target.Metadata.Version])
		}
		if len(ids) == 0 {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("no compatible version for %s", root.Name)).
				WithCause(fmt.Errorf("application %s requires %s %s; admissible versions: %s",
					appName, root.Name, normalizeRange(root.Version), candidateList(s.candidates[root.Name])))
		}
		clauses = append(clauses, ids)
	}

	ids := make([]int, 0, len(s.varModule))
	for id := range s.varModule {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		transitive, err := s.transitiveClauses(id)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, transitive...)
	}
	return clauses, nil
}

// transitiveClauses emits implication clauses for one module version:
// if variable X is true, at least one candidate satisfying each of its
// dependencies must also be true. An unsatisfiable dependency yields ¬X.
func (s *moduleSolverState) transitiveClauses(id int) ([][]int, error) {
	module := s.varModule[id]
	source := module.Ref()
	var clauses [][]int
	for _, dep := range module.Dependencies {
		if dep.Optional {
			continue
		}
		rng := dep.Version
		if s.input.Rules[dep.Module].IgnoresDependentRanges() {
			rng = ""
		}
		s.require(types.VersionRequirement{Module: dep.Module, Range: normalizeRange(dep.Version), Source: source})
		var candidates []int
		for _, target := range moduleTargets(s.candidates[dep.Module], rng, dep.Contracts, s.cache) {
			candidates = append(candidates, s.versionID[dep.Module][target.Metadata.Version])
		}
		clauses = append(clauses, implication(id, candidates))
	}
	for _, component := range s.componentsOf(module) {
		for _, dep := range component.Dependencies {
			if dep.Optional {
				continue
			}
			rng := dep.Version
			if s.input.Rules[dep.Module].IgnoresDependentRanges() {
				rng = ""
			}
			s.require(types.VersionRequirement{
				Module:   dep.Module,
				Range:    normalizeRange(dep.Version),
				Source:   source + "/" + component.Metadata.Name,
				Contract: dep.Contract,
			})
			var candidates []int
			for _, target := range contractTargets(s.candidates[dep.Module], dep.Contract, rng, s.cache) {
				candidates = append(candidates, s.versionID[dep.Module][target.Metadata.Version])
			}
			clauses = append(clauses, implication(id, candidates))
		}
	}
	return clauses, nil
}

func implication(id int, candidates []int) []int {
	candidates = uniqueInts(candidates)
	if len(candidates) == 0 {
		return []int{-id}
	}
	return append([]int{-id}, candidates...)
}

// require records a range placed on a module, once per source.
func (s *moduleSolverState) require(req types.VersionRequirement) {
	for _, existing := range s.requirements[req.Module] {
		if existing == req {
			return
		}
	}
	s.requirements[req.Module] = append(s.requirements[req.Module], req)
}

// solveModuleSAT feeds the clauses to gophersat's optimization solver and
// extracts the selected module versions from the model.
func solveModuleSAT(ctx context.Context, s *moduleSolverState, clauses [][]int) (map[string]string, error) {
	problem := solver.ParseSliceNb(clauses, s.varID)
	problem.SetCostFunc(s.costLits, s.costWeights)
	sat := solver.New(problem)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cost := sat.Minimize(); cost < 0 {
		if err := blockedRequirement(s); err != nil {
			return nil, err
		}
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("no compatible version set for application %s", s.input.Application.Metadata.Name)).
			WithCause(fmt.Errorf("%s", explainConflict(s)))
	}
	model := sat.Model()
	selected := map[string]string{}
	for id, key := range s.varKey {
		if id-1 < 0 || id-1 >= len(model) || !model[id-1] {
			continue
		}
		selected[key.Name] = key.Version
	}
	log.Ctx(ctx).Debug().
		Int("variables", s.varID).
		Int("clauses", len(clauses)).
		Int("selected", len(selected)).
		Msg("module solver finished")
	return selected, nil
}

// blockedRequirement names the first required module, by name, that a
// block directive removed entirely. Only called once solving has failed,
// so a parent version that avoids the blocked module has already been
// ruled out.
func blockedRequirement(s *moduleSolverState) error {
	names := make([]string, 0, len(s.requirements))
	for name := range s.requirements {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if s.input.Rules[name].BlockAll {
			return errbuilder.New().
				WithCode(errbuilder.CodePermissionDenied).
				WithMsg(fmt.Sprintf("module blocked by directive: %s", name)).
				WithCause(fmt.Errorf("%s", explainConflict(s)))
		}
	}
	return nil
}

// explainConflict lists the ranges placed on every module involved so the
// user can see which requirements cannot hold together.
func explainConflict(s *moduleSolverState) string {
	var lines []string
	for _, name := range sortedCandidateNames(s.candidates) {
		reqs := s.requirements[name]
		if len(reqs) == 0 {
			continue
		}
		parts := make([]string, 0, len(reqs))
		for _, req := range reqs {
			part := fmt.Sprintf("%s (%s)", req.Range, req.Source)
			if req.Contract != "" {
				part = fmt.Sprintf("%s %s (%s)", req.Contract, req.Range, req.Source)
			}
			parts = append(parts, part)
		}
		lines = append(lines, fmt.Sprintf("%s [available: %s] requires %s", name, candidateList(s.candidates[name]), strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "; ")
}

func candidateList(modules []types.Module) string {
	if len(modules) == 0 {
		return "none"
	}
	versions := make([]string, 0, len(modules))
	for _, module := range modules {
		versions = append(versions, module.Metadata.Version)
	}
	return strings.Join(versions, ", ")
}

func moduleIDs(s *moduleSolverState, name string) []int {
	ids := make([]int, 0, len(s.candidates[name]))
	for _, module := range s.candidates[name] {
		ids = append(ids, s.versionID[name][module.Metadata.Version])
	}
	return ids
}

func sortedCandidateNames(candidates map[string][]types.Module) []string {
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// uniqueInts deduplicates a slice of ints while preserving order.
func uniqueInts(values []int) []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
