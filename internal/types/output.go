package types

// ValidationIssue is one finding of the validator. Path is the document
// file, Field a dotted path inside it.
type ValidationIssue struct {
	Severity Severity `yaml:"severity" json:"severity"`
	Code     string   `yaml:"code" json:"code"`
	Path     string   `yaml:"path" json:"path"`
	Field    string   `yaml:"field,omitempty" json:"field,omitempty"`
	Message  string   `yaml:"message" json:"message"`
}

type ValidationReport struct {
	Documents int               `yaml:"documents" json:"documents"`
	Issues    []ValidationIssue `yaml:"issues" json:"issues"`
}

// Errors counts error-severity issues.
func (r ValidationReport) Errors() int {
	return r.count(SeverityError)
}

// Warnings counts warning-severity issues.
func (r ValidationReport) Warnings() int {
	return r.count(SeverityWarning)
}

func (r ValidationReport) count(severity Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

type LockMetadata struct {
	Application string `yaml:"application" json:"application"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Digest      string `yaml:"digest" json:"digest"`
	Generator   string `yaml:"generator,omitempty" json:"generator,omitempty"`
}

type LockedComponent struct {
	Name           string         `yaml:"name" json:"name"`
	Classification Classification `yaml:"classification" json:"classification"`
	Version        string         `yaml:"version" json:"version"`
}

type LockedModule struct {
	Name       string            `yaml:"name" json:"name"`
	Constraint string            `yaml:"constraint,omitempty" json:"constraint,omitempty"`
	Version    string            `yaml:"version" json:"version"`
	Transitive bool              `yaml:"transitive,omitempty" json:"transitive,omitempty"`
	Components []LockedComponent `yaml:"components" json:"components"`
}

type MissingConfiguration struct {
	Component string `yaml:"component" json:"component"`
	Key       string `yaml:"key" json:"key"`
}

type EnvironmentReport struct {
	Name    string                 `yaml:"name" json:"name"`
	Missing []MissingConfiguration `yaml:"missing,omitempty" json:"missing,omitempty"`
}

// ApplicationLock is the resolver output: one version per module reachable
// from the application.
type ApplicationLock struct {
	APIVersion   string              `yaml:"apiVersion" json:"apiVersion"`
	Kind         DocumentKind        `yaml:"kind" json:"kind"`
	Metadata     LockMetadata        `yaml:"metadata" json:"metadata"`
	Modules      []LockedModule      `yaml:"modules" json:"modules"`
	Resolutions  []ResolutionRecord  `yaml:"resolutions,omitempty" json:"resolutions,omitempty"`
	Environments []EnvironmentReport `yaml:"environments,omitempty" json:"environments,omitempty"`
}
