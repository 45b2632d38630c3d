package app

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/core"
)

// DefaultIndexFile is the index name written at the registry root.
const DefaultIndexFile = "registry.yaml"

// Index regenerates the registry index. The file is only rewritten when
// its content changes, so an index inside a watched tree cannot trigger
// itself.
func (s Service) Index(ctx context.Context, req IndexRequest) (IndexResult, error) {
	output, err := indexOutput(req)
	if err != nil {
		return IndexResult{}, err
	}
	set, err := s.loadDocuments(ctx, req.Source)
	if err != nil {
		return IndexResult{}, err
	}
	report := validateSet(ctx, set, req.ContractTypes)
	if !req.SkipValidate {
		if err := validationError(report, false); err != nil {
			return IndexResult{Report: report}, err
		}
	}

	index := core.NewIndexGenerator(s.Generator).Generate(ctx, set)
	result := IndexResult{Index: index, OutputPath: output, Report: report, Changed: true}
	if previous, err := s.OutputReader.ReadIndex(output); err == nil {
		result.Changed = !cmp.Equal(previous, index, cmpopts.EquateEmpty())
	}
	if !result.Changed {
		log.Ctx(ctx).Debug().Str("output", output).Msg("registry index unchanged")
		return result, nil
	}
	if err := s.IndexWriter.WriteIndex(output, index); err != nil {
		return IndexResult{}, err
	}
	log.Ctx(ctx).Info().
		Str("output", output).
		Str("digest", index.Metadata.Digest).
		Int("modules", index.Summary.Modules).
		Msg("registry index written")
	return result, nil
}

// WatchIndex generates the index once and again after every settled
// change under the registry root, until ctx is done. Failures are handed
// to onResult and never stop the watch.
func (s Service) WatchIndex(ctx context.Context, req IndexRequest, onResult func(IndexResult, error)) error {
	if strings.TrimSpace(req.Source.RegistryURL) != "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("watch mode needs a local registry root")
	}
	if _, err := indexOutput(req); err != nil {
		return err
	}
	regenerate := func(ctx context.Context) {
		result, err := s.Index(ctx, req)
		onResult(result, err)
	}
	regenerate(ctx)
	return s.WatchSource(ctx, req.Source, regenerate)
}

func indexOutput(req IndexRequest) (string, error) {
	if output := strings.TrimSpace(req.Output); output != "" {
		return output, nil
	}
	root := strings.TrimSpace(req.Source.Root)
	if root == "" || strings.TrimSpace(req.Source.RegistryURL) != "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("index output path is required")
	}
	return filepath.Join(root, DefaultIndexFile), nil
}
