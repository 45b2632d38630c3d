package adapters

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/liquid-forge/forge-architecture/internal/ports"
	"github.com/liquid-forge/forge-architecture/internal/types"
)

// ApplicationFileAdapter loads a single Application document, for
// applications kept outside the registry tree.
type ApplicationFileAdapter struct {
	Schema ports.SchemaValidatorPort
}

func NewApplicationFileAdapter(schema ports.SchemaValidatorPort) ApplicationFileAdapter {
	return ApplicationFileAdapter{Schema: schema}
}

func (a ApplicationFileAdapter) LoadApplication(path string) (types.Application, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Application{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("application file not found").
			WithCause(err)
	}
	var header types.DocumentHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return types.Application{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse application yaml").
			WithCause(err)
	}
	if header.Kind != types.KindApplication {
		return types.Application{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("document kind is %q, not Application", header.Kind))
	}
	name := filepath.ToSlash(path)
	if a.Schema != nil {
		if issues := a.Schema.ValidateDocument(name, header.Kind, data); len(issues) > 0 {
			first := issues[0]
			msg := first.Message
			if first.Field != "" {
				msg = first.Field + ": " + msg
			}
			return types.Application{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("application %s does not match the schema (%d issue(s))", name, len(issues))).
				WithCause(fmt.Errorf("%s", msg))
		}
	}
	var application types.Application
	if err := yaml.Unmarshal(data, &application); err != nil {
		return types.Application{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse application yaml").
			WithCause(err)
	}
	application.Path = name
	return application, nil
}

var _ ports.ApplicationLoaderPort = ApplicationFileAdapter{}
