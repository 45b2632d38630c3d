package types

// DocumentHeader is the envelope shared by every registry document. It is
// decoded first so the loader can dispatch on Kind.
type DocumentHeader struct {
	APIVersion string       `yaml:"apiVersion" json:"apiVersion"`
	Kind       DocumentKind `yaml:"kind" json:"kind"`
}

type ModuleMetadata struct {
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Owner       string   `yaml:"owner" json:"owner"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// ComponentRef pins one component version inside a module version.
type ComponentRef struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// ComponentGroups holds the component refs of a module grouped by
// classification.
type ComponentGroups struct {
	Primary        []ComponentRef `yaml:"primary" json:"primary"`
	Interface      []ComponentRef `yaml:"interface,omitempty" json:"interface,omitempty"`
	Integration    []ComponentRef `yaml:"integration,omitempty" json:"integration,omitempty"`
	Infrastructure []ComponentRef `yaml:"infrastructure,omitempty" json:"infrastructure,omitempty"`
}

// ByClassification returns the refs of one group.
func (g ComponentGroups) ByClassification(c Classification) []ComponentRef {
	switch c {
	case ClassificationPrimary:
		return g.Primary
	case ClassificationInterface:
		return g.Interface
	case ClassificationIntegration:
		return g.Integration
	case ClassificationInfrastructure:
		return g.Infrastructure
	default:
		return nil
	}
}

// ClassifiedComponent is a component ref tagged with its group.
type ClassifiedComponent struct {
	ComponentRef   `yaml:",inline"`
	Classification Classification `yaml:"classification" json:"classification"`
}

// All flattens the groups in classification order.
func (g ComponentGroups) All() []ClassifiedComponent {
	var out []ClassifiedComponent
	for _, c := range Classifications {
		for _, ref := range g.ByClassification(c) {
			out = append(out, ClassifiedComponent{ComponentRef: ref, Classification: c})
		}
	}
	return out
}

// Contract is a versioned interface published by a component. Spec is a
// pointer (path or URL) to the contract artifact.
type Contract struct {
	Name      string `yaml:"name" json:"name"`
	Type      string `yaml:"type" json:"type"`
	Version   string `yaml:"version" json:"version"`
	Spec      string `yaml:"spec,omitempty" json:"spec,omitempty"`
	Component string `yaml:"component,omitempty" json:"component,omitempty"`
}

// ModuleDependency declares that a module needs another module within a
// semver range and, optionally, specific named contracts from it.
type ModuleDependency struct {
	Module    string   `yaml:"module" json:"module"`
	Version   string   `yaml:"version" json:"version"`
	Contracts []string `yaml:"contracts,omitempty" json:"contracts,omitempty"`
	Optional  bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
}

type Compliance struct {
	DataClassification DataClassification `yaml:"dataClassification,omitempty" json:"dataClassification,omitempty"`
	Frameworks         []string           `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
	PIIHandling        bool               `yaml:"piiHandling,omitempty" json:"piiHandling,omitempty"`
}

type Compatibility struct {
	Supported  string `yaml:"supported,omitempty" json:"supported,omitempty"`
	Deprecated bool   `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
}

type Module struct {
	APIVersion    string             `yaml:"apiVersion" json:"apiVersion"`
	Kind          DocumentKind       `yaml:"kind" json:"kind"`
	Metadata      ModuleMetadata     `yaml:"metadata" json:"metadata"`
	Components    ComponentGroups    `yaml:"components" json:"components"`
	Contracts     []Contract         `yaml:"contracts,omitempty" json:"contracts,omitempty"`
	Dependencies  []ModuleDependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Compliance    Compliance         `yaml:"compliance,omitempty" json:"compliance,omitempty"`
	Compatibility Compatibility      `yaml:"compatibility,omitempty" json:"compatibility,omitempty"`

	// Path is the source file the document was loaded from.
	Path string `yaml:"-" json:"-"`
}

// Ref returns the module@version identifier.
func (m Module) Ref() string {
	return m.Metadata.Name + "@" + m.Metadata.Version
}

// Contract looks up a contract by name.
func (m Module) Contract(name string) (Contract, bool) {
	for _, contract := range m.Contracts {
		if contract.Name == name {
			return contract, true
		}
	}
	return Contract{}, false
}

type ComponentMetadata struct {
	Name          string        `yaml:"name" json:"name"`
	Module        string        `yaml:"module" json:"module"`
	Version       string        `yaml:"version" json:"version"`
	VersionScheme VersionScheme `yaml:"versionScheme,omitempty" json:"versionScheme,omitempty"`
	Repository    string        `yaml:"repository,omitempty" json:"repository,omitempty"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
}

// ComponentDependency targets a named contract of another module; Version
// is a range over the contract version.
type ComponentDependency struct {
	Module   string `yaml:"module" json:"module"`
	Contract string `yaml:"contract" json:"contract"`
	Version  string `yaml:"version" json:"version"`
	Optional bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
}

type Configuration struct {
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
	Optional []string `yaml:"optional,omitempty" json:"optional,omitempty"`
}

type Component struct {
	APIVersion    string                `yaml:"apiVersion" json:"apiVersion"`
	Kind          DocumentKind          `yaml:"kind" json:"kind"`
	Metadata      ComponentMetadata     `yaml:"metadata" json:"metadata"`
	Contracts     []Contract            `yaml:"contracts,omitempty" json:"contracts,omitempty"`
	Dependencies  []ComponentDependency `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Configuration Configuration         `yaml:"configuration,omitempty" json:"configuration,omitempty"`

	Path string `yaml:"-" json:"-"`
}

func (c Component) Ref() string {
	return c.Metadata.Name + "@" + c.Metadata.Version
}

// Classification derives the component's classification from its kind.
func (c Component) Classification() Classification {
	classification, _ := ClassificationForKind(c.Kind)
	return classification
}

// Scheme returns the declared version scheme, defaulting to semver.
func (c Component) Scheme() VersionScheme {
	if c.Metadata.VersionScheme == "" {
		return VersionSchemeSemver
	}
	return c.Metadata.VersionScheme
}

type ApplicationMetadata struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
	Owner   string `yaml:"owner,omitempty" json:"owner,omitempty"`
}

// ApplicationModule selects a module by range. Components optionally
// narrows the deployed subset; the primary component is always included.
type ApplicationModule struct {
	Name       string   `yaml:"name" json:"name"`
	Version    string   `yaml:"version" json:"version"`
	Components []string `yaml:"components,omitempty" json:"components,omitempty"`
}

// Environment carries per-component configuration values for one
// deployment target.
type Environment struct {
	Name          string                       `yaml:"name" json:"name"`
	Configuration map[string]map[string]string `yaml:"configuration,omitempty" json:"configuration,omitempty"`
}

type Application struct {
	APIVersion   string                `yaml:"apiVersion" json:"apiVersion"`
	Kind         DocumentKind          `yaml:"kind" json:"kind"`
	Metadata     ApplicationMetadata   `yaml:"metadata" json:"metadata"`
	Modules      []ApplicationModule   `yaml:"modules" json:"modules"`
	Resolutions  []ResolutionDirective `yaml:"resolutions,omitempty" json:"resolutions,omitempty"`
	Environments []Environment         `yaml:"environments,omitempty" json:"environments,omitempty"`

	Path string `yaml:"-" json:"-"`
}
