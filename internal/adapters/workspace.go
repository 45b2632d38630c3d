package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/liquid-forge/forge-architecture/internal/ports"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// Issue codes raised while loading documents.
const (
	IssueParse     = "parse"
	IssueKind      = "unknown-kind"
	IssueMultiDocs = "multiple-documents"
)

var (
	DefaultIncludePatterns = []string{"**/*.yaml", "**/*.yml"}
	DefaultExcludePatterns = []string{"registry.yaml", "**/*.lock.yaml"}
)

// WorkspaceAdapter loads the documents of a registry tree on disk.
// Include and exclude are doublestar patterns relative to the root.
type WorkspaceAdapter struct {
	Include []string
	Exclude []string
	Schema  ports.SchemaValidatorPort
}

func NewWorkspaceAdapter(schema ports.SchemaValidatorPort) WorkspaceAdapter {
	return WorkspaceAdapter{
		Include: DefaultIncludePatterns,
		Exclude: DefaultExcludePatterns,
		Schema:  schema,
	}
}

// FindDocuments lists candidate document files as sorted slash paths
// relative to root.
func (a WorkspaceAdapter) FindDocuments(root string) ([]string, error) {
	if root == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry root is empty")
	}
	if err := validatePatterns(a.Include, a.Exclude); err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("registry root not found: %s", root)).
			WithCause(err)
	}
	if !info.IsDir() {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("registry root is not a directory: %s", root))
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldSkipWorkspaceDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if a.matches(rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan registry").
			WithCause(err)
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDocuments decodes every document under root. Malformed files,
// unknown kinds and schema failures become issues on the returned set;
// only I/O failures abort the load.
func (a WorkspaceAdapter) LoadDocuments(ctx context.Context, root string) (types.DocumentSet, error) {
	paths, err := a.FindDocuments(root)
	if err != nil {
		return types.DocumentSet{}, err
	}
	set := types.DocumentSet{Root: root}
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return types.DocumentSet{}, err
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return types.DocumentSet{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("failed to read %s", rel)).
				WithCause(err)
		}
		decodeDocument(&set, rel, data, a.Schema)
	}
	log.Ctx(ctx).Debug().
		Str("root", root).
		Int("files", len(paths)).
		Int("modules", len(set.Modules)).
		Int("components", len(set.Components)).
		Int("applications", len(set.Applications)).
		Int("issues", len(set.Issues)).
		Msg("registry documents loaded")
	return set, nil
}

// decodeDocument dispatches one raw document on its kind and appends it,
// or the issues it raised, to set.
func decodeDocument(set *types.DocumentSet, path string, data []byte, schema ports.SchemaValidatorPort) {
	var header types.DocumentHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		set.Issues = append(set.Issues, loadIssue(path, IssueParse, "", err.Error()))
		return
	}
	if multipleDocuments(data) {
		set.Issues = append(set.Issues, loadIssue(path, IssueMultiDocs, "", "a file holds exactly one document"))
		return
	}
	switch header.Kind {
	case types.KindModuleRegistry, types.KindApplicationLock:
		// generated outputs living in the tree
		return
	case "":
		set.Issues = append(set.Issues, loadIssue(path, IssueKind, "kind", "document has no kind"))
		return
	}
	_, isComponent := types.ClassificationForKind(header.Kind)
	if header.Kind != types.KindModule && header.Kind != types.KindApplication && !isComponent {
		set.Issues = append(set.Issues, loadIssue(path, IssueKind, "kind", fmt.Sprintf("unknown document kind %q", header.Kind)))
		return
	}
	if schema != nil {
		if issues := schema.ValidateDocument(path, header.Kind, data); len(issues) > 0 {
			set.Issues = append(set.Issues, issues...)
			return
		}
	}

	var err error
	switch {
	case header.Kind == types.KindModule:
		var module types.Module
		if err = yaml.Unmarshal(data, &module); err == nil {
			module.Path = path
			set.Modules = append(set.Modules, module)
		}
	case header.Kind == types.KindApplication:
		var application types.Application
		if err = yaml.Unmarshal(data, &application); err == nil {
			application.Path = path
			set.Applications = append(set.Applications, application)
		}
	default:
		var component types.Component
		if err = yaml.Unmarshal(data, &component); err == nil {
			component.Path = path
			set.Components = append(set.Components, component)
		}
	}
	if err != nil {
		set.Issues = append(set.Issues, loadIssue(path, IssueParse, "", err.Error()))
	}
}

// multipleDocuments reports whether data holds a second YAML document
// after the first.
func multipleDocuments(data []byte) bool {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var node yaml.Node
	if err := decoder.Decode(&node); err != nil {
		return false
	}
	return decoder.Decode(&node) == nil
}

func loadIssue(path string, code string, field string, message string) types.ValidationIssue {
	return types.ValidationIssue{
		Severity: types.SeverityError,
		Code:     code,
		Path:     path,
		Field:    field,
		Message:  message,
	}
}

func (a WorkspaceAdapter) matches(rel string) bool {
	include := a.Include
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	for _, pattern := range a.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func validatePatterns(groups ...[]string) error {
	for _, patterns := range groups {
		for _, pattern := range patterns {
			if !doublestar.ValidatePattern(pattern) {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid glob pattern: %q", pattern))
			}
		}
	}
	return nil
}

func shouldSkipWorkspaceDir(name string) bool {
	switch name {
	case ".git", ".github", "node_modules", "vendor", "dist", "build":
		return true
	default:
		return false
	}
}

var _ ports.DocumentSourcePort = WorkspaceAdapter{}
