package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

func TestCheckEnvironments(t *testing.T) {
	service := testComponent("payments", "payments-service", "1.8.2", types.KindPrimaryComponent)
	service.Configuration.Required = []string{"DATABASE_URL", "API_KEY"}
	service.Configuration.Optional = []string{"LOG_LEVEL"}

	tests := []struct {
		name         string
		environments []types.Environment
		want         []types.EnvironmentReport
	}{
		{name: "no environments"},
		{
			name: "all keys set",
			environments: []types.Environment{{Name: "prod", Configuration: map[string]map[string]string{
				"payments-service": {"DATABASE_URL": "postgres://db", "API_KEY": "k"},
			}}},
			want: []types.EnvironmentReport{{Name: "prod"}},
		},
		{
			name:         "component missing from environment",
			environments: []types.Environment{{Name: "dev"}},
			want: []types.EnvironmentReport{{Name: "dev", Missing: []types.MissingConfiguration{
				{Component: "payments-service", Key: "API_KEY"},
				{Component: "payments-service", Key: "DATABASE_URL"},
			}}},
		},
		{
			name: "blank value counts as missing",
			environments: []types.Environment{{Name: "qa", Configuration: map[string]map[string]string{
				"payments-service": {"DATABASE_URL": "", "API_KEY": "k"},
			}}},
			want: []types.EnvironmentReport{{Name: "qa", Missing: []types.MissingConfiguration{
				{Component: "payments-service", Key: "DATABASE_URL"},
			}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckEnvironments(tt.environments, []types.Component{service})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected reports (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMissingConfigurationCount(t *testing.T) {
	assert.Equal(t, 0, MissingConfigurationCount(nil))
	assert.Equal(t, 3, MissingConfigurationCount([]types.EnvironmentReport{
		{Name: "a", Missing: make([]types.MissingConfiguration, 2)},
		{Name: "b"},
		{Name: "c", Missing: make([]types.MissingConfiguration, 1)},
	}))
}
