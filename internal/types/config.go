package types

import (
	"strings"
	"time"
)

const DefaultTimeoutMinutes = 5

// SchemaKey is the reserved registry key pointing at the definition schema.
// It never names a package.
const SchemaKey = "$schema"

// PackageConfig is one registry entry. ID is filled in from the registry key
// and is never part of the serialized entry itself.
type PackageConfig struct {
	ID            string   `json:"-" yaml:"-" toml:"-"`
	Repository    string   `json:"repository" yaml:"repository" toml:"repository"`
	Version       string   `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	Location      string   `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
	Prepublish    string   `json:"prepublish,omitempty" yaml:"prepublish,omitempty" toml:"prepublish,omitempty"`
	ExtensionFile string   `json:"extensionFile,omitempty" yaml:"extensionFile,omitempty" toml:"extensionFile,omitempty"`
	Custom        []string `json:"custom,omitempty" yaml:"custom,omitempty" toml:"custom,omitempty"`
	Timeout       int      `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Unmaintained  bool     `json:"unmaintained,omitempty" yaml:"unmaintained,omitempty" toml:"unmaintained,omitempty"`
}

func (c PackageConfig) TimeoutMinutes() int {
	if c.Timeout <= 0 {
		return DefaultTimeoutMinutes
	}
	return c.Timeout
}

func (c PackageConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.TimeoutMinutes()) * time.Minute
}

// Publisher returns the part of the id before the first dot.
func (c PackageConfig) Publisher() string {
	publisher, _, _ := strings.Cut(c.ID, ".")
	return publisher
}

// Name returns the part of the id after the first dot.
func (c PackageConfig) Name() string {
	_, name, _ := strings.Cut(c.ID, ".")
	return name
}

// Registry is the validated registry definition. Packages keep the order in
// which they appear in the definition file.
type Registry struct {
	Path     string
	Format   RegistryFormat
	Packages []PackageConfig
}

func (r Registry) IDs() []string {
	ids := make([]string, 0, len(r.Packages))
	for _, pkg := range r.Packages {
		ids = append(ids, pkg.ID)
	}
	return ids
}

func (r Registry) Lookup(id string) (PackageConfig, bool) {
	for _, pkg := range r.Packages {
		if pkg.ID == id {
			return pkg, true
		}
	}
	return PackageConfig{}, false
}
