package app

import (
	"time"

	"github.com/liquid-forge/forge-architecture/internal/adapters"
	"github.com/liquid-forge/forge-architecture/internal/ports"
)

// DefaultGenerator is stamped into generated indexes and locks.
const DefaultGenerator = "forge-registry"

type Service struct {
	Schema        ports.SchemaValidatorPort
	Applications  ports.ApplicationLoaderPort
	Remote        ports.DocumentSourcePort
	IndexWriter   ports.IndexWriterPort
	LockWriter    ports.LockWriterPort
	OutputReader  ports.OutputReaderPort
	WatchDebounce time.Duration
	Generator     string
	Clock         func() time.Time
}

func NewService() (Service, error) {
	schema, err := adapters.NewCUESchemaAdapter()
	if err != nil {
		return Service{}, err
	}
	output := adapters.NewOutputFileAdapter()
	return Service{
		Schema:        schema,
		Applications:  adapters.NewApplicationFileAdapter(schema),
		Remote:        adapters.NewHTTPRegistryAdapter(),
		IndexWriter:   output,
		LockWriter:    output,
		OutputReader:  adapters.NewOutputReaderAdapter(),
		WatchDebounce: adapters.DefaultWatchDebounce,
		Generator:     DefaultGenerator,
		Clock:         time.Now,
	}, nil
}

// workspace returns the on-disk document source for the given patterns.
func (s Service) workspace(opts SourceOptions) adapters.WorkspaceAdapter {
	workspace := adapters.NewWorkspaceAdapter(s.Schema)
	if len(opts.Include) > 0 {
		workspace.Include = opts.Include
	}
	if len(opts.Exclude) > 0 {
		workspace.Exclude = opts.Exclude
	}
	return workspace
}

func (s Service) watcher(opts SourceOptions) ports.WatcherPort {
	watcher := adapters.NewWatcherAdapter(s.workspace(opts))
	if s.WatchDebounce > 0 {
		watcher.Debounce = s.WatchDebounce
	}
	return watcher
}
