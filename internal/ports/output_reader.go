package ports

import "github.com/liquid-forge/forge-architecture/internal/types"

type OutputReaderPort interface {
	ReadIndex(path string) (types.RegistryIndex, error)
	ReadLock(path string) (types.ApplicationLock, error)
}
