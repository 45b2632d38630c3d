package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/core"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	if strings.TrimSpace(req.Application) == "" {
		return ResolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("application is required")
	}
	set, err := s.loadDocuments(ctx, req.Source)
	if err != nil {
		return ResolveResult{}, err
	}
	application, err := s.findApplication(set, req.Application)
	if err != nil {
		return ResolveResult{}, err
	}
	result, err := s.resolveApplication(ctx, application, set, req.AllowDeprecated)
	if err != nil {
		return ResolveResult{}, err
	}

	if output := strings.TrimSpace(req.Output); output != "" {
		if err := s.LockWriter.WriteLock(output, result.Lock); err != nil {
			return ResolveResult{}, err
		}
		result.OutputPath = output
	}
	if req.StrictEnv && result.MissingKeys > 0 {
		return result, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("%d required configuration key(s) missing across environments", result.MissingKeys))
	}
	return result, nil
}

// resolveApplication runs the resolver against an already loaded set. The
// server calls it directly for POST /v1/resolve.
func (s Service) resolveApplication(ctx context.Context, application types.Application, set types.DocumentSet, allowDeprecated bool) (ResolveResult, error) {
	resolver := core.NewApplicationResolver()
	resolver.AllowDeprecated = allowDeprecated
	resolver.Generator = s.Generator
	if s.Clock != nil {
		resolver.Clock = s.Clock
	}
	resolved, err := resolver.Resolve(ctx, application, set)
	if err != nil {
		return ResolveResult{}, err
	}
	missing := core.MissingConfigurationCount(resolved.Lock.Environments)
	if missing > 0 {
		log.Ctx(ctx).Warn().
			Str("application", application.Metadata.Name).
			Int("missing", missing).
			Msg("environments are missing required configuration")
	}
	return ResolveResult{
		Lock:         resolved.Lock,
		Requirements: resolved.Requirements,
		MissingKeys:  missing,
	}, nil
}

// ResolveApplication resolves an application document against a loaded
// document set without writing anything.
func (s Service) ResolveApplication(ctx context.Context, application types.Application, set types.DocumentSet) (ResolveResult, error) {
	return s.resolveApplication(ctx, application, set, false)
}

// findApplication treats ref as a file path when such a file exists and
// as an application name from the registry otherwise.
func (s Service) findApplication(set types.DocumentSet, ref string) (types.Application, error) {
	ref = strings.TrimSpace(ref)
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return s.Applications.LoadApplication(ref)
	}
	for _, application := range set.Applications {
		if application.Metadata.Name == ref {
			return application, nil
		}
	}
	return types.Application{}, errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("application not found: %s", ref))
}
