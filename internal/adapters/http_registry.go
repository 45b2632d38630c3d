package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/ports"
	"github.com/liquid-forge/forge-architecture/internal/shared"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

const defaultFetchWorkers = 8
const defaultHTTPTimeout = 30 * time.Second
const defaultHTTPRetries = 3
const defaultHTTPRetryDelay = 200 * time.Millisecond
const maxHTTPRetryDelay = 2 * time.Second

type httpRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
}

func normalizeHTTPConfig(timeout time.Duration, retries int, delay time.Duration) httpRetryConfig {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if retries <= 0 {
		retries = defaultHTTPRetries
	}
	if delay <= 0 {
		delay = defaultHTTPRetryDelay
	}
	return httpRetryConfig{
		timeout:   timeout,
		retries:   retries,
		baseDelay: delay,
	}
}

// HTTPRegistryAdapter loads registry documents from a running registry
// server, or any static host laid out with the same paths:
//
//	/v1/index
//	/v1/modules/{name}/{version}
//	/v1/components/{name}/{version}
type HTTPRegistryAdapter struct {
	User       string
	APIKey     string
	Workers    int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

func NewHTTPRegistryAdapter() HTTPRegistryAdapter {
	return HTTPRegistryAdapter{}
}

type moduleFetch struct {
	module     types.Module
	components []types.Component
	err        error
}

func (a HTTPRegistryAdapter) LoadDocuments(ctx context.Context, location string) (types.DocumentSet, error) {
	base := strings.TrimRight(strings.TrimSpace(location), "/")
	if base == "" {
		return types.DocumentSet{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry url is required")
	}
	cfg := normalizeHTTPConfig(a.Timeout, a.Retries, a.RetryDelay)

	var index types.RegistryIndex
	if err := a.getJSON(ctx, base+"/v1/index", cfg, &index); err != nil {
		return types.DocumentSet{}, err
	}
	var refs []types.ComponentRef
	for _, entry := range index.Modules {
		for _, version := range entry.AvailableVersions {
			refs = append(refs, types.ComponentRef{Name: entry.Name, Version: version})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	workers := a.Workers
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	if len(refs) < workers {
		workers = len(refs)
	}
	tasks := make(chan types.ComponentRef)
	results := make(chan moduleFetch, len(refs))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range tasks {
				if ctx.Err() != nil {
					results <- moduleFetch{err: ctx.Err()}
					continue
				}
				results <- a.fetchModule(ctx, base, ref, cfg)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		tasks <- ref
	}
	close(tasks)

	set := types.DocumentSet{Root: base}
	seen := map[string]struct{}{}
	var firstErr error
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		set.Modules = append(set.Modules, result.module)
		for _, component := range result.components {
			if _, ok := seen[component.Ref()]; ok {
				continue
			}
			seen[component.Ref()] = struct{}{}
			set.Components = append(set.Components, component)
		}
	}
	if firstErr != nil {
		return types.DocumentSet{}, firstErr
	}
	sort.Slice(set.Modules, func(i, j int) bool { return set.Modules[i].Path < set.Modules[j].Path })
	sort.Slice(set.Components, func(i, j int) bool { return set.Components[i].Path < set.Components[j].Path })
	log.Ctx(ctx).Debug().
		Str("registry", base).
		Int("modules", len(set.Modules)).
		Int("components", len(set.Components)).
		Msg("remote registry loaded")
	return set, nil
}

// fetchModule loads one module version and the component documents it
// lists. Components the server does not know are skipped, as on disk.
func (a HTTPRegistryAdapter) fetchModule(ctx context.Context, base string, ref types.ComponentRef, cfg httpRetryConfig) moduleFetch {
	path := documentPath("modules", ref.Name, ref.Version)
	var module types.Module
	if err := a.getJSON(ctx, base+"/"+path, cfg, &module); err != nil {
		return moduleFetch{err: err}
	}
	module.Path = path
	out := moduleFetch{module: module}
	for _, component := range module.Components.All() {
		path := documentPath("components", component.Name, component.Version)
		var doc types.Component
		err := a.getJSON(ctx, base+"/"+path, cfg, &doc)
		if err != nil && errbuilder.CodeOf(err) == errbuilder.CodeNotFound {
			continue
		}
		if err != nil {
			return moduleFetch{err: err}
		}
		doc.Path = path
		out.components = append(out.components, doc)
	}
	return out
}

func documentPath(collection string, name string, version string) string {
	return "v1/" + collection + "/" + url.PathEscape(name) + "/" + url.PathEscape(version)
}

func (a HTTPRegistryAdapter) getJSON(ctx context.Context, target string, cfg httpRetryConfig, out any) error {
	resp, err := doRequest(ctx, target, a.User, a.APIKey, cfg)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("registry document not found: %s", target)).
			WithCause(&shared.StatusError{Status: resp.StatusCode, URL: target})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("registry request failed").
			WithCause(&shared.StatusError{Status: resp.StatusCode, URL: target, Body: strings.TrimSpace(string(body))})
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid registry response from %s", target)).
			WithCause(err)
	}
	return nil
}

func doRequest(ctx context.Context, target string, user string, apiKey string, cfg httpRetryConfig) (*http.Response, error) {
	client := &http.Client{Timeout: cfg.timeout}
	var lastErr error
	for attempt := 0; attempt < cfg.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(ctx.Err())
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create request").
				WithCause(err)
		}
		req.Header.Set("Accept", "application/json")
		if strings.TrimSpace(apiKey) != "" {
			authUser := strings.TrimSpace(user)
			if authUser == "" {
				authUser = "api"
			}
			req.SetBasicAuth(authUser, apiKey)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("request canceled").
					WithCause(ctx.Err())
			}
			lastErr = err
			if attempt < cfg.retries-1 {
				if err := waitRetry(ctx, httpRetryDelay(attempt, cfg)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request failed").
				WithCause(err)
		}
		if shared.RetryableStatus(resp.StatusCode) && attempt < cfg.retries-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if err := waitRetry(ctx, httpRetryDelay(attempt, cfg)); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("request failed")
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("request failed").
		WithCause(lastErr)
}

// waitRetry sleeps for the backoff delay unless ctx ends first.
func waitRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request canceled").
			WithCause(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func httpRetryDelay(attempt int, cfg httpRetryConfig) time.Duration {
	delay := cfg.baseDelay * time.Duration(1<<attempt)
	if delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

var _ ports.DocumentSourcePort = HTTPRegistryAdapter{}
