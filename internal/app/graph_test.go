package app

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphFixtureIsAcyclic(t *testing.T) {
	result, err := newTestService(t).Graph(t.Context(), GraphRequest{Source: fixtureSource()})
	require.NoError(t, err)
	assert.Empty(t, result.Report.Cycles)
	assert.Empty(t, result.ModuleCycles)
	assert.Nil(t, result.Dependencies)
}

func TestGraphFocusesNode(t *testing.T) {
	result, err := newTestService(t).Graph(t.Context(), GraphRequest{
		Source: fixtureSource(),
		Node:   "module:payments@2.3.0",
	})
	require.NoError(t, err)
	assert.Contains(t, result.Dependencies, "component:payments-service@1.8.2")
	assert.Contains(t, result.Dependencies, "module:identity@1.5.0")
	assert.Contains(t, result.Dependents, "module:notifications@1.0.0")
}

func TestGraphUnknownNode(t *testing.T) {
	_, err := newTestService(t).Graph(t.Context(), GraphRequest{
		Source: fixtureSource(),
		Node:   "module:payments@9.9.9",
	})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestGraphReportsModuleCycle(t *testing.T) {
	root := copyFixture(t)
	writeDoc(t, root, "modules/identity/1.6.0/module.yaml", `apiVersion: registry.forge.dev/v1
kind: Module
metadata:
  name: identity
  version: 1.6.0
  owner: team-identity
components:
  primary:
    - name: identity-service
      version: 2.1.0
dependencies:
  - module: notifications
    version: ^1.0.0
`)

	result, err := newTestService(t).Graph(t.Context(), GraphRequest{Source: SourceOptions{Root: root}})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "dependency cycle detected")
	require.NotEmpty(t, result.ModuleCycles)
	assert.Equal(t, result.ModuleCycles[0][0], result.ModuleCycles[0][len(result.ModuleCycles[0])-1])
}
