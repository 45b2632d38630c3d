package adapters

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/liquid-forge/forge-architecture/internal/ports"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// OutputFileAdapter writes generated documents as YAML. Writes go to a
// temp file in the target directory and are renamed into place, so
// readers never observe a partial file.
type OutputFileAdapter struct{}

func NewOutputFileAdapter() OutputFileAdapter {
	return OutputFileAdapter{}
}

func (a OutputFileAdapter) WriteIndex(path string, index types.RegistryIndex) error {
	return writeYAMLAtomic(path, "registry index", index)
}

func (a OutputFileAdapter) WriteLock(path string, lock types.ApplicationLock) error {
	return writeYAMLAtomic(path, "lock file", lock)
}

func writeYAMLAtomic(path string, what string, value any) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("output path is required")
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to marshal %s", what)).
			WithCause(err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create output directory").
			WithCause(err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", what)).
			WithCause(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", what)).
			WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", what)).
			WithCause(err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to write %s", what)).
			WithCause(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to replace %s", path)).
			WithCause(err)
	}
	return nil
}

var (
	_ ports.IndexWriterPort = OutputFileAdapter{}
	_ ports.LockWriterPort  = OutputFileAdapter{}
)
