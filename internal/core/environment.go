package core

import (
	"sort"
	"strings"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// CheckEnvironments lists, per environment, the required configuration
// keys of the deployed components that the environment leaves unset or
// empty.
func CheckEnvironments(environments []types.Environment, components []types.Component) []types.EnvironmentReport {
	if len(environments) == 0 {
		return nil
	}
	ordered := append([]types.Component(nil), components...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Metadata.Name < ordered[j].Metadata.Name
	})
	reports := make([]types.EnvironmentReport, 0, len(environments))
	for _, environment := range environments {
		report := types.EnvironmentReport{Name: environment.Name}
		for _, component := range ordered {
			values := environment.Configuration[component.Metadata.Name]
			keys := append([]string(nil), component.Configuration.Required...)
			sort.Strings(keys)
			for _, key := range keys {
				if strings.TrimSpace(values[key]) != "" {
					continue
				}
				report.Missing = append(report.Missing, types.MissingConfiguration{
					Component: component.Metadata.Name,
					Key:       key,
				})
			}
		}
		reports = append(reports, report)
	}
	return reports
}

// MissingConfigurationCount sums the missing keys over every environment.
func MissingConfigurationCount(reports []types.EnvironmentReport) int {
	n := 0
	for _, report := range reports {
		n += len(report.Missing)
	}
	return n
}
