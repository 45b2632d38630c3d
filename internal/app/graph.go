package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/liquid-forge/forge-architecture/internal/core"
)

// Graph builds the version-level dependency graph. Cycles, at version
// level or between module names, fail with FailedPrecondition after the
// result has been filled in.
func (s Service) Graph(ctx context.Context, req GraphRequest) (GraphResult, error) {
	set, err := s.loadDocuments(ctx, req.Source)
	if err != nil {
		return GraphResult{}, err
	}
	builder := core.NewGraphBuilder()
	graph, err := builder.Build(ctx, set)
	if err != nil {
		return GraphResult{}, err
	}
	names, err := builder.ModuleNameGraph(set)
	if err != nil {
		return GraphResult{}, err
	}
	result := GraphResult{
		Report:       graph.Report(),
		ModuleCycles: names.DetectCycles(),
	}

	if node := strings.TrimSpace(req.Node); node != "" {
		deps, err := graph.Dependencies(node)
		if err != nil {
			return GraphResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("graph node not found: %s", node)).
				WithCause(err)
		}
		dependents, err := graph.Dependents(node)
		if err != nil {
			return GraphResult{}, err
		}
		result.Dependencies = deps
		result.Dependents = dependents
	}

	cycles := append(append([][]string(nil), result.Report.Cycles...), result.ModuleCycles...)
	if len(cycles) > 0 {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycles[0], " -> ")))
	}
	return result, nil
}
