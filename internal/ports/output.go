package ports

import "github.com/liquid-forge/forge-architecture/internal/types"

type IndexWriterPort interface {
	WriteIndex(path string, index types.RegistryIndex) error
}

type LockWriterPort interface {
	WriteLock(path string, lock types.ApplicationLock) error
}
