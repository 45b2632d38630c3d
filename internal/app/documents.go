package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

func (s Service) loadDocuments(ctx context.Context, opts SourceOptions) (types.DocumentSet, error) {
	if registryURL := strings.TrimSpace(opts.RegistryURL); registryURL != "" {
		if s.Remote == nil {
			return types.DocumentSet{}, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("remote registry source is not configured")
		}
		return s.Remote.LoadDocuments(ctx, registryURL)
	}
	root := strings.TrimSpace(opts.Root)
	if root == "" {
		return types.DocumentSet{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry root is required")
	}
	return s.workspace(opts).LoadDocuments(ctx, root)
}
