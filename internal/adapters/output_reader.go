package adapters

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/liquid-forge/forge-architecture/internal/ports"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

type OutputReaderAdapter struct{}

func NewOutputReaderAdapter() OutputReaderAdapter {
	return OutputReaderAdapter{}
}

func (a OutputReaderAdapter) ReadIndex(path string) (types.RegistryIndex, error) {
	var index types.RegistryIndex
	if err := readGenerated(path, "registry index", &index); err != nil {
		return types.RegistryIndex{}, err
	}
	if index.Kind != types.KindModuleRegistry {
		return types.RegistryIndex{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s is not a %s document (kind %q)", path, types.KindModuleRegistry, index.Kind))
	}
	return index, nil
}

func (a OutputReaderAdapter) ReadLock(path string) (types.ApplicationLock, error) {
	var lock types.ApplicationLock
	if err := readGenerated(path, "lock file", &lock); err != nil {
		return types.ApplicationLock{}, err
	}
	if lock.Kind != types.KindApplicationLock {
		return types.ApplicationLock{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("%s is not a %s document (kind %q)", path, types.KindApplicationLock, lock.Kind))
	}
	return lock, nil
}

func readGenerated(path string, what string, out any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("%s not found", what)).
			WithCause(err)
	}
	if err := yaml.Unmarshal(content, out); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid %s format", what)).
			WithCause(err)
	}
	return nil
}

var _ ports.OutputReaderPort = OutputReaderAdapter{}
