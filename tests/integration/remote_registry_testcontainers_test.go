//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liquid-forge/forge-architecture/internal/adapters"
	"github.com/liquid-forge/forge-architecture/internal/app"
	"github.com/liquid-forge/forge-architecture/internal/server"
	"github.com/liquid-forge/forge-architecture/internal/types"
	"github.com/liquid-forge/forge-architecture/tests/testutil"
)

const nginxRoot = "/usr/share/nginx/html"

// TestRemoteRegistryFromStaticHost exports the fixture registry as static
// files, serves them from nginx and loads them back through the HTTP
// source.
func TestRemoteRegistryFromStaticHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping testcontainers test in short mode")
	}
	ctx := t.Context()
	service := newService(t)

	srv := server.New(service, server.Options{Source: app.SourceOptions{Root: testutil.FixtureRegistry(t)}})
	require.NoError(t, srv.Holder().Reload(ctx))
	api := httptest.NewServer(srv.Handler())
	defer api.Close()

	static := t.TempDir()
	files := exportStaticRegistry(t, api.URL, static)
	endpoint, cleanup := startStaticHost(ctx, t, static, files)
	t.Cleanup(cleanup)

	remote := adapters.NewHTTPRegistryAdapter()
	remote.Workers = 2
	remote.Timeout = 10 * time.Second
	set, err := remote.LoadDocuments(ctx, endpoint)
	require.NoError(t, err)
	local := srv.Holder().Get().Set
	assert.Len(t, set.Modules, len(local.Modules))
	assert.Len(t, set.Components, len(local.Components))

	resolved, err := service.Resolve(ctx, app.ResolveRequest{
		Source:      app.SourceOptions{RegistryURL: endpoint},
		Application: filepath.Join(testutil.FixtureRegistry(t), "applications", "storefront.yaml"),
	})
	require.NoError(t, err)
	versions := map[string]string{}
	for _, module := range resolved.Lock.Modules {
		versions[module.Name] = module.Version
	}
	assert.Equal(t, map[string]string{"identity": "1.5.0", "notifications": "1.0.0", "payments": "2.3.0"}, versions)
}

// exportStaticRegistry mirrors every document the API serves into dir and
// returns the relative paths written.
func exportStaticRegistry(t *testing.T, baseURL string, dir string) []string {
	t.Helper()
	var written []string
	fetch := func(rel string, out any) bool {
		resp, err := http.Get(baseURL + "/" + rel)
		require.NoError(t, err)
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return false
		}
		require.Equal(t, http.StatusOK, resp.StatusCode, rel)
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		target := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, data, 0o644))
		written = append(written, rel)
		if out != nil {
			require.NoError(t, json.Unmarshal(data, out))
		}
		return true
	}

	var index types.RegistryIndex
	require.True(t, fetch("v1/index", &index))
	for _, entry := range index.Modules {
		for _, version := range entry.AvailableVersions {
			var module types.Module
			require.True(t, fetch(path.Join("v1/modules", entry.Name, version), &module))
			for _, ref := range module.Components.All() {
				fetch(path.Join("v1/components", ref.Name, ref.Version), nil)
			}
		}
	}
	return written
}

func startStaticHost(ctx context.Context, t *testing.T, dir string, files []string) (string, func()) {
	t.Helper()
	containerFiles := make([]testcontainers.ContainerFile, 0, len(files))
	for _, rel := range files {
		containerFiles = append(containerFiles, testcontainers.ContainerFile{
			HostFilePath:      filepath.Join(dir, filepath.FromSlash(rel)),
			ContainerFilePath: path.Join(nginxRoot, rel),
			FileMode:          0o644,
		})
	}
	req := testcontainers.ContainerRequest{
		Image:        "nginx:1.27-alpine",
		ExposedPorts: []string{"80/tcp"},
		Files:        containerFiles,
		WaitingFor:   wait.ForHTTP("/v1/index").WithPort("80/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "80/tcp")
	require.NoError(t, err)

	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())
	cleanup := func() {
		_ = container.Terminate(context.WithoutCancel(ctx))
	}
	return endpoint, cleanup
}
