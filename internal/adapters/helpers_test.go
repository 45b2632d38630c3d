package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

const paymentsModuleYAML = `apiVersion: registry.forge.dev/v1
kind: Module
metadata:
  name: payments
  version: 2.3.0
  owner: team-payments
  description: Payment processing
components:
  primary:
    - name: payments-service
      version: 1.8.2
  interface:
    - name: payments-gateway
      version: 1.2.0
contracts:
  - name: payment-events
    type: kafka-avro
    version: 1.0.0
    component: payments-service
dependencies:
  - module: identity
    version: ^1.4.0
    contracts: [identity-api]
`

const paymentsServiceYAML = `apiVersion: registry.forge.dev/v1
kind: PrimaryComponent
metadata:
  name: payments-service
  module: payments
  version: 1.8.2
configuration:
  required: [DATABASE_URL]
  optional: [LOG_LEVEL]
`

const storefrontYAML = `apiVersion: registry.forge.dev/v1
kind: Application
metadata:
  name: storefront
  version: 1.0.0
modules:
  - name: payments
    version: ^2.0.0
resolutions:
  - module: identity
    action: force
    value: 1.5.0
    reason: CVE fix
    owner: team-security
environments:
  - name: production
    configuration:
      payments-service:
        DATABASE_URL: postgres://db
`

func writeFile(t *testing.T, root string, rel string, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newSchema(t *testing.T) *CUESchemaAdapter {
	t.Helper()
	schema, err := NewCUESchemaAdapter()
	require.NoError(t, err)
	return schema
}

func issueFields(issues []types.ValidationIssue) []string {
	var fields []string
	for _, issue := range issues {
		fields = append(fields, issue.Field)
	}
	return fields
}

func issueCodes(issues []types.ValidationIssue) []string {
	var codes []string
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}
