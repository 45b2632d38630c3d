package core

import (
	"fmt"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// testModule builds a valid module version with a single primary component
// named "<name>-service" at componentVersion.
func testModule(name string, version string, componentVersion string) types.Module {
	return types.Module{
		APIVersion: types.APIVersion,
		Kind:       types.KindModule,
		Metadata: types.ModuleMetadata{
			Name:    name,
			Version: version,
			Owner:   "team-" + name,
		},
		Components: types.ComponentGroups{
			Primary: []types.ComponentRef{{Name: name + "-service", Version: componentVersion}},
		},
		Path: fmt.Sprintf("modules/%s/%s/module.yaml", name, version),
	}
}

func testComponent(module string, name string, version string, kind types.DocumentKind) types.Component {
	return types.Component{
		APIVersion: types.APIVersion,
		Kind:       kind,
		Metadata: types.ComponentMetadata{
			Name:    name,
			Module:  module,
			Version: version,
		},
		Path: fmt.Sprintf("modules/%s/components/%s-%s.yaml", module, name, version),
	}
}

func withContract(m types.Module, name string, contractType string, version string) types.Module {
	m.Contracts = append(m.Contracts, types.Contract{
		Name:      name,
		Type:      contractType,
		Version:   version,
		Component: m.Components.Primary[0].Name,
	})
	return m
}

func withDependency(m types.Module, target string, rng string, contracts ...string) types.Module {
	m.Dependencies = append(m.Dependencies, types.ModuleDependency{Module: target, Version: rng, Contracts: contracts})
	return m
}

func testApplication(name string, modules ...types.ApplicationModule) types.Application {
	return types.Application{
		APIVersion: types.APIVersion,
		Kind:       types.KindApplication,
		Metadata:   types.ApplicationMetadata{Name: name, Version: "1.0.0"},
		Modules:    modules,
		Path:       "applications/" + name + ".yaml",
	}
}

func issueCodes(report types.ValidationReport, severity types.Severity) []string {
	var codes []string
	for _, issue := range report.Issues {
		if issue.Severity == severity {
			codes = append(codes, issue.Code)
		}
	}
	return codes
}
