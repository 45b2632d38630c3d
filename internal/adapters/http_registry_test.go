package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

func registryServer(t *testing.T, flaky *atomic.Int32) *httptest.Server {
	t.Helper()
	payments := types.Module{
		APIVersion: types.APIVersion,
		Kind:       types.KindModule,
		Metadata:   types.ModuleMetadata{Name: "payments", Version: "2.3.0", Owner: "team-payments"},
		Components: types.ComponentGroups{
			Primary:   []types.ComponentRef{{Name: "payments-service", Version: "1.8.2"}},
			Interface: []types.ComponentRef{{Name: "payments-gateway", Version: "1.2.0"}},
		},
	}
	older := payments
	older.Metadata.Version = "2.2.0"
	service := types.Component{
		APIVersion: types.APIVersion,
		Kind:       types.KindPrimaryComponent,
		Metadata:   types.ComponentMetadata{Name: "payments-service", Module: "payments", Version: "1.8.2"},
	}
	index := types.RegistryIndex{
		APIVersion: types.APIVersion,
		Kind:       types.KindModuleRegistry,
		Modules: []types.ModuleEntry{{
			Name:              "payments",
			LatestVersion:     "2.3.0",
			AvailableVersions: []string{"2.3.0", "2.2.0"},
		}},
	}
	documents := map[string]any{
		"/v1/index":                             index,
		"/v1/modules/payments/2.3.0":            payments,
		"/v1/modules/payments/2.2.0":            older,
		"/v1/components/payments-service/1.8.2": service,
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if flaky != nil && r.URL.Path == "/v1/index" && flaky.Add(-1) >= 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		doc, ok := documents[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(doc))
	}))
}

func fastHTTPRegistry() HTTPRegistryAdapter {
	adapter := NewHTTPRegistryAdapter()
	adapter.Workers = 2
	adapter.RetryDelay = time.Millisecond
	return adapter
}

func TestHTTPRegistryAdapterLoadDocuments(t *testing.T) {
	server := registryServer(t, nil)
	defer server.Close()

	set, err := fastHTTPRegistry().LoadDocuments(t.Context(), server.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, server.URL, set.Root)

	require.Len(t, set.Modules, 2)
	assert.Equal(t, "v1/modules/payments/2.2.0", set.Modules[0].Path)
	assert.Equal(t, "payments@2.3.0", set.Modules[1].Ref())

	// payments-gateway is unknown to the server and skipped; the shared
	// payments-service document is kept once.
	require.Len(t, set.Components, 1)
	assert.Equal(t, "payments-service@1.8.2", set.Components[0].Ref())
	assert.Equal(t, "v1/components/payments-service/1.8.2", set.Components[0].Path)
}

func TestHTTPRegistryAdapterRetriesUnavailable(t *testing.T) {
	var flaky atomic.Int32
	flaky.Store(2)
	server := registryServer(t, &flaky)
	defer server.Close()

	set, err := fastHTTPRegistry().LoadDocuments(t.Context(), server.URL)
	require.NoError(t, err)
	assert.Len(t, set.Modules, 2)
}

func TestHTTPRegistryAdapterErrors(t *testing.T) {
	_, err := fastHTTPRegistry().LoadDocuments(t.Context(), " ")
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))

	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()
	_, err = fastHTTPRegistry().LoadDocuments(t.Context(), missing.URL)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	_, err = fastHTTPRegistry().LoadDocuments(t.Context(), down.URL)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "registry request failed")

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer garbage.Close()
	_, err = fastHTTPRegistry().LoadDocuments(t.Context(), garbage.URL)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestDoRequestBackoffStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unavailable.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	cfg := normalizeHTTPConfig(5*time.Second, 5, time.Minute)
	started := time.Now()
	_, err := doRequest(ctx, unavailable.URL, "", "", cfg)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.Contains(t, err.Error(), "request canceled")
	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPRetryDelayIsCapped(t *testing.T) {
	cfg := normalizeHTTPConfig(0, 0, 0)
	assert.Equal(t, defaultHTTPRetries, cfg.retries)
	assert.Equal(t, defaultHTTPTimeout, cfg.timeout)
	for attempt := 0; attempt < 10; attempt++ {
		assert.LessOrEqual(t, httpRetryDelay(attempt, cfg), maxHTTPRetryDelay+maxHTTPRetryDelay/2)
	}
}
