package types

type RegistryMetadata struct {
	Generator string `yaml:"generator" json:"generator"`
	Digest    string `yaml:"digest" json:"digest"`
	Documents int    `yaml:"documents" json:"documents"`
}

// ModuleEntry summarizes every version of one module. Version lists are
// ordered newest first.
type ModuleEntry struct {
	Name               string   `yaml:"name" json:"name"`
	Description        string   `yaml:"description,omitempty" json:"description,omitempty"`
	Owner              string   `yaml:"owner,omitempty" json:"owner,omitempty"`
	LatestVersion      string   `yaml:"latestVersion" json:"latestVersion"`
	AvailableVersions  []string `yaml:"availableVersions" json:"availableVersions"`
	SupportedVersions  []string `yaml:"supportedVersions" json:"supportedVersions"`
	DeprecatedVersions []string `yaml:"deprecatedVersions,omitempty" json:"deprecatedVersions,omitempty"`
}

type ComponentEntry struct {
	Name              string         `yaml:"name" json:"name"`
	Module            string         `yaml:"module" json:"module"`
	Classification    Classification `yaml:"classification" json:"classification"`
	VersionScheme     VersionScheme  `yaml:"versionScheme" json:"versionScheme"`
	LatestVersion     string         `yaml:"latestVersion" json:"latestVersion"`
	AvailableVersions []string       `yaml:"availableVersions" json:"availableVersions"`
}

type RegistrySummary struct {
	Modules          int                    `yaml:"modules" json:"modules"`
	ModuleVersions   int                    `yaml:"moduleVersions" json:"moduleVersions"`
	Components       int                    `yaml:"components" json:"components"`
	Contracts        int                    `yaml:"contracts" json:"contracts"`
	ByClassification map[Classification]int `yaml:"byClassification" json:"byClassification"`
	ContractTypes    map[string]int         `yaml:"contractTypes,omitempty" json:"contractTypes,omitempty"`
}

// RegistryIndex is the derived, read-only catalog of a registry tree.
type RegistryIndex struct {
	APIVersion string           `yaml:"apiVersion" json:"apiVersion"`
	Kind       DocumentKind     `yaml:"kind" json:"kind"`
	Metadata   RegistryMetadata `yaml:"metadata" json:"metadata"`
	Modules    []ModuleEntry    `yaml:"modules" json:"modules"`
	Components []ComponentEntry `yaml:"components,omitempty" json:"components,omitempty"`
	Summary    RegistrySummary  `yaml:"summary" json:"summary"`
}

// Module looks up an entry by name.
func (r RegistryIndex) Module(name string) (ModuleEntry, bool) {
	for _, entry := range r.Modules {
		if entry.Name == name {
			return entry, true
		}
	}
	return ModuleEntry{}, false
}
