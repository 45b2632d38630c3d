package ports

import (
	"context"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// DocumentSourcePort loads every registry document reachable from a
// location (a directory for the file source, a base URL for the remote
// source).
type DocumentSourcePort interface {
	LoadDocuments(ctx context.Context, location string) (types.DocumentSet, error)
}

type ApplicationLoaderPort interface {
	LoadApplication(path string) (types.Application, error)
}
