package app

import (
	"context"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/core"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// Snapshot is one loaded view of a registry: the documents, the index
// derived from them and the version-level graph. A new ID is minted on
// every load.
type Snapshot struct {
	ID       string
	LoadedAt time.Time
	Set      types.DocumentSet
	Index    types.RegistryIndex
	Graph    types.GraphReport
	Report   types.ValidationReport
}

// LoadSnapshot loads and derives everything the server needs in one pass.
// Validation issues are kept on the snapshot rather than failing the load,
// so a server keeps answering for the valid part of the tree.
func (s Service) LoadSnapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error) {
	set, err := s.loadDocuments(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	graph, err := core.NewGraphBuilder().Build(ctx, set)
	if err != nil {
		return nil, err
	}
	snapshot := &Snapshot{
		ID:       uuid.NewString(),
		LoadedAt: s.now(),
		Set:      set,
		Index:    core.NewIndexGenerator(s.Generator).Generate(ctx, set),
		Graph:    graph.Report(),
		Report:   validateSet(ctx, set, req.ContractTypes),
	}
	log.Ctx(ctx).Info().
		Str("snapshot", snapshot.ID).
		Int("modules", len(set.Modules)).
		Int("components", len(set.Components)).
		Int("errors", snapshot.Report.Errors()).
		Msg("registry snapshot loaded")
	return snapshot, nil
}

// WatchSource calls onChange after documents under the local root settle.
// It blocks until ctx is done.
func (s Service) WatchSource(ctx context.Context, opts SourceOptions, onChange func(context.Context)) error {
	root := strings.TrimSpace(opts.Root)
	if root == "" || strings.TrimSpace(opts.RegistryURL) != "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("watch mode needs a local registry root")
	}
	return s.watcher(opts).Watch(ctx, root, onChange)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock().UTC()
}
