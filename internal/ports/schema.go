package ports

import "github.com/liquid-forge/forge-architecture/internal/types"

// SchemaValidatorPort checks the structure of one raw document.
type SchemaValidatorPort interface {
	ValidateDocument(path string, kind types.DocumentKind, data []byte) []types.ValidationIssue
}
