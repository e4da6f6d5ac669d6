package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"extension-mirror/internal/policies"
	"extension-mirror/internal/types"
)

func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	registry, selected, unknown, err := s.loadSelection(req.RegistryPath, req.Extensions)
	if err != nil {
		return ValidateResult{}, err
	}
	return ValidateResult{
		Format:   registry.Format,
		Total:    len(registry.Packages),
		Selected: selected.IDs(),
		Unknown:  unknown,
	}, nil
}

// loadSelection loads the registry and applies the allow-list. An allow-list
// matching nothing is an error; unknown ids alone are reported, not fatal.
func (s Service) loadSelection(path string, extensions []string) (types.Registry, types.Registry, []string, error) {
	registryPath := strings.TrimSpace(path)
	if registryPath == "" {
		return types.Registry{}, types.Registry{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("registry file path is required")
	}
	if s.Registry == nil {
		return types.Registry{}, types.Registry{}, nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("registry loader is not configured")
	}
	registry, err := s.Registry.Load(registryPath)
	if err != nil {
		return types.Registry{}, types.Registry{}, nil, err
	}
	selection := policies.NewSelectionPolicy(extensions)
	selected := selection.Apply(registry)
	unknown := selection.Unknown(registry)
	if !selection.Empty() && len(selected.Packages) == 0 {
		return types.Registry{}, types.Registry{}, unknown, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no registry entries match the extension allow-list (%s)", strings.Join(extensions, ",")))
	}
	return registry, selected, unknown, nil
}
