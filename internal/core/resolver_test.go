package core

import (
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

func fixedResolver() ApplicationResolver {
	resolver := NewApplicationResolver()
	resolver.Clock = func() time.Time { return time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC) }
	return resolver
}

func selectedVersions(lock types.ApplicationLock) map[string]string {
	out := map[string]string{}
	for _, module := range lock.Modules {
		out[module.Name] = module.Version
	}
	return out
}

func identityVersions() []types.Module {
	return []types.Module{
		withContract(testModule("identity", "1.4.0", "2.0.0"), "identity-api", "openapi-3.0", "1.2.0"),
		withContract(testModule("identity", "1.5.0", "2.1.0"), "identity-api", "openapi-3.0", "1.3.0"),
	}
}

func TestResolvePicksNewestSatisfyingVersions(t *testing.T) {
	set := types.DocumentSet{Modules: append(identityVersions(),
		withDependency(testModule("payments", "2.2.0", "1.8.0"), "identity", "^1.4.0"),
		withDependency(testModule("payments", "2.3.0", "1.8.2"), "identity", "^1.4.0"),
		testModule("payments", "3.0.0", "2.0.0"),
	)}
	app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "^2.0.0"})

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)

	if diff := cmp.Diff(map[string]string{"payments": "2.3.0", "identity": "1.5.0"}, selectedVersions(result.Lock)); diff != "" {
		t.Fatalf("unexpected selection (-want +got):\n%s", diff)
	}
	assert.Equal(t, types.KindApplicationLock, result.Lock.Kind)
	assert.Equal(t, "storefront", result.Lock.Metadata.Application)
	assert.NotEmpty(t, result.Lock.Metadata.Digest)

	require.Len(t, result.Lock.Modules, 2)
	identity := result.Lock.Modules[0]
	assert.Equal(t, "identity", identity.Name)
	assert.True(t, identity.Transitive)
	assert.Empty(t, identity.Constraint)
	payments := result.Lock.Modules[1]
	assert.Equal(t, "^2.0.0", payments.Constraint)
	assert.Equal(t, []types.LockedComponent{{Name: "payments-service", Classification: types.ClassificationPrimary, Version: "1.8.2"}}, payments.Components)
}

func TestResolveBacktracksToOlderVersion(t *testing.T) {
	set := types.DocumentSet{Modules: append(identityVersions(),
		testModule("identity", "2.0.0", "3.0.0"),
		withDependency(testModule("payments", "2.2.0", "1.8.0"), "identity", "^1.0.0"),
		withDependency(testModule("payments", "2.3.0", "1.8.2"), "identity", "^2.0.0"),
	)}
	app := testApplication("storefront",
		types.ApplicationModule{Name: "payments", Version: "^2.0.0"},
		types.ApplicationModule{Name: "identity", Version: "^1.0.0"},
	)

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	if diff := cmp.Diff(map[string]string{"payments": "2.2.0", "identity": "1.5.0"}, selectedVersions(result.Lock)); diff != "" {
		t.Fatalf("unexpected selection (-want +got):\n%s", diff)
	}
}

func TestResolveRequiresNamedContracts(t *testing.T) {
	identity := identityVersions()
	identity[1].Contracts = nil
	set := types.DocumentSet{Modules: append(identity,
		withDependency(testModule("payments", "2.3.0", "1.8.2"), "identity", "^1.0.0", "identity-api"),
	)}
	app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "^2.0.0"})

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", selectedVersions(result.Lock)["identity"])
}

func TestResolveComponentContractRanges(t *testing.T) {
	identity := identityVersions()
	identity[0].Contracts[0].Version = "2.0.0"
	payments := testModule("payments", "2.3.0", "1.8.2")
	service := testComponent("payments", "payments-service", "1.8.2", types.KindPrimaryComponent)
	service.Dependencies = []types.ComponentDependency{{Module: "identity", Contract: "identity-api", Version: "^2.0.0"}}
	set := types.DocumentSet{
		Modules:    append(identity, payments),
		Components: []types.Component{service},
	}
	app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "*"})

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", selectedVersions(result.Lock)["identity"])
}

func TestResolveSkipsOptionalDependencies(t *testing.T) {
	payments := testModule("payments", "2.3.0", "1.8.2")
	payments.Dependencies = []types.ModuleDependency{{Module: "identity", Version: "^1.0.0", Optional: true}}
	set := types.DocumentSet{Modules: append(identityVersions(), payments)}
	app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "^2.0.0"})

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"payments": "2.3.0"}, selectedVersions(result.Lock))
}

func TestResolveUnsatisfiable(t *testing.T) {
	set := types.DocumentSet{Modules: append(identityVersions(),
		withDependency(testModule("payments", "2.3.0", "1.8.2"), "identity", "^2.0.0"),
	)}
	app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "^2.0.0"})

	_, err := fixedResolver().Resolve(t.Context(), app, set)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "no compatible version set for application storefront")
}

func TestResolveRootRangeWithoutCandidates(t *testing.T) {
	set := types.DocumentSet{Modules: identityVersions()}
	app := testApplication("storefront", types.ApplicationModule{Name: "identity", Version: "^9.0.0"})

	_, err := fixedResolver().Resolve(t.Context(), app, set)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "no compatible version for identity")
}

func TestResolveUnknownModule(t *testing.T) {
	set := types.DocumentSet{Modules: identityVersions()}
	app := testApplication("storefront", types.ApplicationModule{Name: "ledger", Version: "^1.0.0"})

	_, err := fixedResolver().Resolve(t.Context(), app, set)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestResolveDirectives(t *testing.T) {
	base := func() types.DocumentSet {
		return types.DocumentSet{Modules: append(identityVersions(),
			withDependency(testModule("payments", "2.3.0", "1.8.2"), "identity", "^1.5.0"),
		)}
	}
	tests := []struct {
		name      string
		directive types.ResolutionDirective
		set       func() types.DocumentSet
		want      string
		fails     bool
		code      errbuilder.ErrCode
	}{
		{
			name:      "force overrides dependent range",
			directive: types.ResolutionDirective{Module: "identity", Action: "force", Value: "1.4.0", Reason: "rollback", Owner: "security"},
			set:       base,
			want:      "1.4.0",
		},
		{
			name:      "force of unknown version",
			directive: types.ResolutionDirective{Module: "identity", Action: "force", Value: "9.9.9", Reason: "typo", Owner: "security"},
			set:       base,
			fails:     true,
			code:      errbuilder.CodeNotFound,
		},
		{
			name:      "block version leaves nothing in range",
			directive: types.ResolutionDirective{Module: "identity", Action: "block", Value: "1.5.0", Reason: "broken", Owner: "security"},
			set:       base,
			fails:     true,
			code:      errbuilder.CodeFailedPrecondition,
		},
		{
			name:      "block root module",
			directive: types.ResolutionDirective{Module: "payments", Action: "block", Reason: "frozen", Owner: "cab"},
			set:       base,
			fails:     true,
			code:      errbuilder.CodePermissionDenied,
		},
		{
			name:      "block transitive required module",
			directive: types.ResolutionDirective{Module: "identity", Action: "block", Reason: "incident", Owner: "security"},
			set:       base,
			fails:     true,
			code:      errbuilder.CodePermissionDenied,
		},
		{
			name:      "block transitive module avoided by older parent",
			directive: types.ResolutionDirective{Module: "identity", Action: "block", Reason: "incident", Owner: "security"},
			set: func() types.DocumentSet {
				set := base()
				set.Modules = append(set.Modules, testModule("payments", "2.2.0", "1.8.1"))
				return set
			},
			want: "",
		},
		{
			name:      "relax widens dependent range",
			directive: types.ResolutionDirective{Module: "identity", Action: "relax", Reason: "migration", Owner: "web"},
			set: func() types.DocumentSet {
				set := base()
				set.Modules[2].Dependencies[0].Version = "^2.0.0"
				return set
			},
			want: "1.5.0",
		},
		{
			name:      "expired directive is ignored",
			directive: types.ResolutionDirective{Module: "identity", Action: "force", Value: "1.4.0", Reason: "rollback", Owner: "security", ExpiresAt: "2026-01-01"},
			set:       base,
			want:      "1.5.0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "^2.0.0"})
			app.Resolutions = []types.ResolutionDirective{tt.directive}

			result, err := fixedResolver().Resolve(t.Context(), app, tt.set())
			if tt.fails {
				require.Error(t, err)
				assert.Equal(t, tt.code, errbuilder.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, selectedVersions(result.Lock)["identity"])
			if tt.directive.ExpiresAt == "" {
				require.Len(t, result.Lock.Resolutions, 1)
				assert.Equal(t, tt.directive.Action, result.Lock.Resolutions[0].Action)
			} else {
				assert.Empty(t, result.Lock.Resolutions)
			}
		})
	}
}

func TestResolveDeprecatedVersions(t *testing.T) {
	identity := identityVersions()
	identity[1].Compatibility.Deprecated = true
	set := types.DocumentSet{Modules: identity}
	app := testApplication("storefront", types.ApplicationModule{Name: "identity", Version: "^1.0.0"})

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", selectedVersions(result.Lock)["identity"])

	resolver := fixedResolver()
	resolver.AllowDeprecated = true
	result, err = resolver.Resolve(t.Context(), app, set)
	require.NoError(t, err)
	assert.Equal(t, "1.5.0", selectedVersions(result.Lock)["identity"])
}

func TestResolveComponentSubsetAndEnvironments(t *testing.T) {
	payments := testModule("payments", "2.3.0", "1.8.2")
	payments.Components.Interface = []types.ComponentRef{{Name: "payments-gateway", Version: "1.2.0"}}
	payments.Components.Integration = []types.ComponentRef{{Name: "payments-events", Version: "0.4.0"}}
	service := testComponent("payments", "payments-service", "1.8.2", types.KindPrimaryComponent)
	service.Configuration.Required = []string{"DATABASE_URL", "API_KEY"}
	gateway := testComponent("payments", "payments-gateway", "1.2.0", types.KindInterfaceComponent)
	gateway.Configuration.Required = []string{"UPSTREAM_URL"}
	events := testComponent("payments", "payments-events", "0.4.0", types.KindIntegrationComponent)
	events.Configuration.Required = []string{"BROKERS"}
	set := types.DocumentSet{
		Modules:    []types.Module{payments},
		Components: []types.Component{service, gateway, events},
	}

	app := testApplication("storefront", types.ApplicationModule{Name: "payments", Version: "^2.0.0", Components: []string{"payments-gateway"}})
	app.Environments = []types.Environment{
		{Name: "production", Configuration: map[string]map[string]string{
			"payments-service": {"DATABASE_URL": "postgres://db", "API_KEY": "k"},
			"payments-gateway": {"UPSTREAM_URL": "https://psp"},
		}},
		{Name: "staging", Configuration: map[string]map[string]string{
			"payments-service": {"DATABASE_URL": "postgres://db", "API_KEY": " "},
		}},
	}

	result, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)

	wantComponents := []types.LockedComponent{
		{Name: "payments-service", Classification: types.ClassificationPrimary, Version: "1.8.2"},
		{Name: "payments-gateway", Classification: types.ClassificationInterface, Version: "1.2.0"},
	}
	if diff := cmp.Diff(wantComponents, result.Lock.Modules[0].Components); diff != "" {
		t.Fatalf("unexpected components (-want +got):\n%s", diff)
	}
	wantEnvironments := []types.EnvironmentReport{
		{Name: "production"},
		{Name: "staging", Missing: []types.MissingConfiguration{
			{Component: "payments-gateway", Key: "UPSTREAM_URL"},
			{Component: "payments-service", Key: "API_KEY"},
		}},
	}
	if diff := cmp.Diff(wantEnvironments, result.Lock.Environments); diff != "" {
		t.Fatalf("unexpected environments (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, MissingConfigurationCount(result.Lock.Environments))

	app.Modules[0].Components = []string{"payments-admin"}
	_, err = fixedResolver().Resolve(t.Context(), app, set)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestResolveDigestIsStable(t *testing.T) {
	set := types.DocumentSet{Modules: identityVersions()}
	app := testApplication("storefront", types.ApplicationModule{Name: "identity", Version: "^1.0.0"})

	first, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	second, err := fixedResolver().Resolve(t.Context(), app, set)
	require.NoError(t, err)
	assert.Equal(t, first.Lock.Metadata.Digest, second.Lock.Metadata.Digest)
}
