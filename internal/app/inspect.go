package app

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("index path is required")
	}
	index, err := s.OutputReader.ReadIndex(path)
	if err != nil {
		return InspectResult{}, err
	}
	result := InspectResult{Index: index}
	if name := strings.TrimSpace(req.Module); name != "" {
		entry, ok := index.Module(name)
		if !ok {
			return InspectResult{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg(fmt.Sprintf("module not found in index: %s", name))
		}
		result.Module = &entry
	}
	return result, nil
}

// InspectLock reads a lock file written by Resolve.
func (s Service) InspectLock(path string) (types.ApplicationLock, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return types.ApplicationLock{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("lock path is required")
	}
	return s.OutputReader.ReadLock(path)
}
