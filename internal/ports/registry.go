package ports

import "extension-mirror/internal/types"

type RegistryPort interface {
	Load(path string) (types.Registry, error)
}
