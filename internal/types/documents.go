package types

import "sort"

// DocumentSet is every document loaded from a registry tree, together
// with the issues found while loading it (malformed yaml, unknown kinds,
// schema failures).
type DocumentSet struct {
	Root         string
	Modules      []Module
	Components   []Component
	Applications []Application
	Issues       []ValidationIssue
}

// ModuleVersions groups modules by name.
func (s DocumentSet) ModuleVersions() map[string][]Module {
	out := map[string][]Module{}
	for _, module := range s.Modules {
		out[module.Metadata.Name] = append(out[module.Metadata.Name], module)
	}
	return out
}

// Module finds one module version.
func (s DocumentSet) Module(name string, version string) (Module, bool) {
	for _, module := range s.Modules {
		if module.Metadata.Name == name && module.Metadata.Version == version {
			return module, true
		}
	}
	return Module{}, false
}

// Component finds one component version.
func (s DocumentSet) Component(name string, version string) (Component, bool) {
	for _, component := range s.Components {
		if component.Metadata.Name == name && component.Metadata.Version == version {
			return component, true
		}
	}
	return Component{}, false
}

// ModuleNames returns the sorted distinct module names.
func (s DocumentSet) ModuleNames() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, module := range s.Modules {
		if _, ok := seen[module.Metadata.Name]; ok {
			continue
		}
		seen[module.Metadata.Name] = struct{}{}
		names = append(names, module.Metadata.Name)
	}
	sort.Strings(names)
	return names
}
