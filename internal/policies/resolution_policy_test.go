package policies

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

func TestApplyResolutionForcePins(t *testing.T) {
	rule, record, err := ApplyResolution(ModuleRule{}, types.ResolutionDirective{
		Module: "identity", Action: "force", Value: "1.5.0", Reason: "cve", Owner: "security",
	})
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", rule.Pin)
	assert.True(t, rule.Admits("1.5.0"))
	assert.False(t, rule.Admits("1.6.0"))
	assert.True(t, rule.IgnoresDependentRanges())
	assert.Equal(t, "identity", record.Module)
}

func TestApplyResolutionForceRequiresValue(t *testing.T) {
	_, _, err := ApplyResolution(ModuleRule{}, types.ResolutionDirective{Module: "identity", Action: "force"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestApplyResolutionConflictingForce(t *testing.T) {
	rule, _, err := ApplyResolution(ModuleRule{}, types.ResolutionDirective{Module: "identity", Action: "force", Value: "1.5.0"})
	require.NoError(t, err)
	_, _, err = ApplyResolution(rule, types.ResolutionDirective{Module: "identity", Action: "force", Value: "1.6.0"})
	require.Error(t, err)
}

func TestApplyResolutionBlock(t *testing.T) {
	rule, _, err := ApplyResolution(ModuleRule{}, types.ResolutionDirective{Module: "ledger", Action: "BLOCK", Value: "3.0.0"})
	require.NoError(t, err)
	assert.False(t, rule.Admits("3.0.0"))
	assert.True(t, rule.Admits("3.0.1"))
	assert.False(t, rule.IgnoresDependentRanges())

	rule, _, err = ApplyResolution(rule, types.ResolutionDirective{Module: "ledger", Action: "block"})
	require.NoError(t, err)
	assert.False(t, rule.Admits("3.0.1"))
}

func TestApplyResolutionUnknownAction(t *testing.T) {
	_, _, err := ApplyResolution(ModuleRule{}, types.ResolutionDirective{Module: "ledger", Action: "replace", Value: "x"})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestBuildModuleRulesSkipsExpired(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	rules, records, err := BuildModuleRules([]types.ResolutionDirective{
		{Module: "identity", Action: "relax", Reason: "migration", Owner: "web", ExpiresAt: "2026-09-30"},
		{Module: "ledger", Action: "block", Value: "2.0.0", Reason: "broken", Owner: "finance", ExpiresAt: "2026-12-31"},
	}, now)
	require.NoError(t, err)

	_, hasIdentity := rules["identity"]
	assert.False(t, hasIdentity)
	want := []types.ResolutionRecord{{
		Module: "ledger", Action: "block", Value: "2.0.0", Reason: "broken", Owner: "finance", ExpiresAt: "2026-12-31",
	}}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("unexpected records (-want +got):\n%s", diff)
	}
}
