package adapters

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/liquid-forge/forge-architecture/internal/ports"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// IssueSchema marks a document that does not match the structural schema.
const IssueSchema = "schema"

//go:embed schemas/registry.cue
var registrySchema []byte

// CUESchemaAdapter checks raw YAML documents against the embedded CUE
// definitions. A cue.Context is not safe for concurrent use, so calls are
// serialized.
type CUESchemaAdapter struct {
	mu      sync.Mutex
	ctx     *cue.Context
	schemas map[types.DocumentKind]cue.Value
}

func NewCUESchemaAdapter() (*CUESchemaAdapter, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(registrySchema, cue.Filename("registry.cue"))
	if root.Err() != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to compile registry schema").
			WithCause(root.Err())
	}
	definitions := map[types.DocumentKind]string{
		types.KindModule:                  "#Module",
		types.KindPrimaryComponent:        "#Component",
		types.KindInterfaceComponent:      "#Component",
		types.KindIntegrationComponent:    "#Component",
		types.KindInfrastructureComponent: "#Component",
		types.KindApplication:             "#Application",
	}
	schemas := make(map[types.DocumentKind]cue.Value, len(definitions))
	for kind, path := range definitions {
		value := root.LookupPath(cue.ParsePath(path))
		if value.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg(fmt.Sprintf("schema definition %s not found", path)).
				WithCause(value.Err())
		}
		schemas[kind] = value
	}
	return &CUESchemaAdapter{ctx: ctx, schemas: schemas}, nil
}

// ValidateDocument unifies one YAML document with the definition for its
// kind. Kinds without a definition are not checked here.
func (a *CUESchemaAdapter) ValidateDocument(path string, kind types.DocumentKind, data []byte) []types.ValidationIssue {
	schema, ok := a.schemas[kind]
	if !ok {
		return nil
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return []types.ValidationIssue{{
			Severity: types.SeverityError,
			Code:     IssueParse,
			Path:     path,
			Message:  err.Error(),
		}}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	value := a.ctx.Encode(raw)
	if value.Err() != nil {
		return cueIssues(path, value.Err())
	}
	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueIssues(path, err)
	}
	return nil
}

func cueIssues(path string, err error) []types.ValidationIssue {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []types.ValidationIssue{{
			Severity: types.SeverityError,
			Code:     IssueSchema,
			Path:     path,
			Message:  err.Error(),
		}}
	}
	seen := map[string]struct{}{}
	var issues []types.ValidationIssue
	for _, e := range errs {
		field := formatCUEPath(cueerrors.Path(e))
		format, args := e.Msg()
		message := fmt.Sprintf(format, args...)
		key := field + "\x00" + message
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		issues = append(issues, types.ValidationIssue{
			Severity: types.SeverityError,
			Code:     IssueSchema,
			Path:     path,
			Field:    field,
			Message:  message,
		})
	}
	return issues
}

// formatCUEPath renders ["components","primary","0","version"] as
// components.primary[0].version.
func formatCUEPath(parts []string) string {
	var b strings.Builder
	for i, part := range parts {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(part string) bool {
	if part == "" {
		return false
	}
	for _, c := range part {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

var _ ports.SchemaValidatorPort = (*CUESchemaAdapter)(nil)
