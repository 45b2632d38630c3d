package types

// ResolutionDirective overrides how the resolver treats one module.
// ExpiresAt is optional; expired directives are ignored.
type ResolutionDirective struct {
	Module    string `yaml:"module" json:"module"`
	Action    string `yaml:"action" json:"action"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	Reason    string `yaml:"reason" json:"reason"`
	Owner     string `yaml:"owner" json:"owner"`
	ExpiresAt string `yaml:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

type ResolutionRecord struct {
	Module    string `yaml:"module" json:"module"`
	Action    string `yaml:"action" json:"action"`
	Value     string `yaml:"value,omitempty" json:"value,omitempty"`
	Reason    string `yaml:"reason" json:"reason"`
	Owner     string `yaml:"owner" json:"owner"`
	ExpiresAt string `yaml:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// VersionRequirement is one range placed on a module by a dependent
// (another module version, a component contract dependency, or the
// application itself).
type VersionRequirement struct {
	Module   string
	Range    string
	Source   string
	Contract string
}
