package app

import "github.com/liquid-forge/forge-architecture/internal/types"

// SourceOptions selects where registry documents come from: a local tree
// filtered by doublestar patterns, or a remote registry when RegistryURL
// is set.
type SourceOptions struct {
	Root        string
	Include     []string
	Exclude     []string
	RegistryURL string
}

type ValidateRequest struct {
	Source        SourceOptions
	ContractTypes []string
	Strict        bool
}

type ValidateResult struct {
	Report types.ValidationReport
	Failed bool
}

type GraphRequest struct {
	Source SourceOptions
	// Node optionally focuses the result on one node id, such as
	// module:payments@2.3.0.
	Node string
}

type GraphResult struct {
	Report       types.GraphReport `yaml:"graph" json:"graph"`
	ModuleCycles [][]string        `yaml:"moduleCycles,omitempty" json:"moduleCycles,omitempty"`
	Dependencies []string          `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Dependents   []string          `yaml:"dependents,omitempty" json:"dependents,omitempty"`
}

// SnapshotRequest selects the documents of a snapshot. ContractTypes
// extends the accepted contract taxonomy as for Validate.
type SnapshotRequest struct {
	Source        SourceOptions
	ContractTypes []string
}

type ResolveRequest struct {
	Source SourceOptions
	// Application is a path to an Application document or the name of
	// an application inside the registry.
	Application     string
	Output          string
	AllowDeprecated bool
	StrictEnv       bool
}

type ResolveResult struct {
	Lock         types.ApplicationLock
	OutputPath   string
	Requirements map[string][]types.VersionRequirement
	MissingKeys  int
}

type IndexRequest struct {
	Source        SourceOptions
	Output        string
	ContractTypes []string
	SkipValidate  bool
}

type IndexResult struct {
	Index      types.RegistryIndex
	OutputPath string
	Report     types.ValidationReport
	Changed    bool
}

type InspectRequest struct {
	Path   string
	Module string
}

type InspectResult struct {
	Index  types.RegistryIndex
	Module *types.ModuleEntry
}
