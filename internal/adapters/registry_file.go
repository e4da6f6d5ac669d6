package adapters

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"extension-mirror/internal/ports"
	"extension-mirror/internal/types"
)

var extensionIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*\.[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// rawEntry is one registry entry before validation, in file order.
// timeoutSet tells an explicit zero timeout apart from an omitted one.
type rawEntry struct {
	id         string
	cfg        types.PackageConfig
	err        error
	timeoutSet bool
}

const timeoutField = "timeout"

type RegistryFileAdapter struct{}

func NewRegistryFileAdapter() RegistryFileAdapter {
	return RegistryFileAdapter{}
}

// Load reads and validates a registry definition. The whole file is rejected
// when any entry is invalid.
func (a RegistryFileAdapter) Load(path string) (types.Registry, error) {
	format, err := registryFormat(path)
	if err != nil {
		return types.Registry{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Registry{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("registry file not found").
			WithCause(err)
	}

	var entries []rawEntry
	switch format {
	case types.RegistryFormatJSON:
		entries, err = decodeJSONRegistry(data)
	case types.RegistryFormatYAML:
		entries, err = decodeYAMLRegistry(data)
	case types.RegistryFormatTOML:
		entries, err = decodeTOMLRegistry(data)
	}
	if err != nil {
		return types.Registry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("failed to parse %s registry %s: %v", format, path, err)).
			WithCause(err)
	}

	registry := types.Registry{Path: path, Format: format}
	var issues []string
	seen := map[string]bool{}
	for _, entry := range entries {
		if seen[entry.id] {
			issues = append(issues, fmt.Sprintf("%s: duplicate entry", entry.id))
			continue
		}
		seen[entry.id] = true
		if entry.err != nil {
			issues = append(issues, fmt.Sprintf("%s: %v", entry.id, entry.err))
			continue
		}
		entry.cfg.ID = entry.id
		if problems := validatePackageConfig(entry.cfg, entry.timeoutSet); len(problems) > 0 {
			issues = append(issues, fmt.Sprintf("%s: %s", entry.id, strings.Join(problems, "; ")))
			continue
		}
		registry.Packages = append(registry.Packages, entry.cfg)
	}
	if len(issues) > 0 {
		return types.Registry{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("invalid registry definition %s:\n%s", path, strings.Join(issues, "\n")))
	}
	return registry, nil
}

func registryFormat(path string) (types.RegistryFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return types.RegistryFormatJSON, nil
	case ".yaml", ".yml":
		return types.RegistryFormatYAML, nil
	case ".toml":
		return types.RegistryFormatTOML, nil
	default:
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported registry file extension %q", filepath.Ext(path)))
	}
}

func validatePackageConfig(cfg types.PackageConfig, timeoutSet bool) []string {
	var problems []string
	if !extensionIDPattern.MatchString(cfg.ID) {
		problems = append(problems, "id must have the form <publisher>.<name>")
	}
	if strings.TrimSpace(cfg.Repository) == "" {
		problems = append(problems, "repository is required")
	}
	if cfg.Timeout < 0 || (timeoutSet && cfg.Timeout == 0) {
		problems = append(problems, "timeout must be at least 1 minute")
	}
	for i, step := range cfg.Custom {
		if strings.TrimSpace(step) == "" {
			problems = append(problems, fmt.Sprintf("custom[%d] is empty", i))
		}
	}
	return problems
}

// decodeJSONRegistry walks the top-level object token by token to keep the
// definition order.
func decodeJSONRegistry(data []byte) ([]rawEntry, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("registry must be an object keyed by extension id")
	}
	var entries []rawEntry
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		id, _ := token.(string)
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, err
		}
		if id == types.SchemaKey {
			continue
		}
		entry := rawEntry{id: id}
		strict := json.NewDecoder(bytes.NewReader(raw))
		strict.DisallowUnknownFields()
		entry.err = strict.Decode(&entry.cfg)
		if entry.err == nil {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(raw, &fields); err == nil {
				_, entry.timeoutSet = fields[timeoutField]
			}
		}
		entries = append(entries, entry)
	}
	if _, err := decoder.Token(); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("unexpected content after registry object")
	}
	return entries, nil
}

func decodeYAMLRegistry(data []byte) ([]rawEntry, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	if len(document.Content) == 0 {
		return nil, nil
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("registry must be a mapping keyed by extension id")
	}
	var entries []rawEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		id := root.Content[i].Value
		if id == types.SchemaKey {
			continue
		}
		entry := rawEntry{id: id}
		entry.err = decodeYAMLStrict(root.Content[i+1], &entry.cfg)
		entry.timeoutSet = yamlHasKey(root.Content[i+1], timeoutField)
		entries = append(entries, entry)
	}
	return entries, nil
}

func yamlHasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

// decodeYAMLStrict re-encodes a node so the decoder can reject unknown
// fields; Node.Decode has no such option.
func decodeYAMLStrict(node *yaml.Node, out *types.PackageConfig) error {
	if node.Kind != yaml.MappingNode {
		return errors.New("entry must be a mapping")
	}
	encoded, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(encoded))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

func decodeTOMLRegistry(data []byte) ([]rawEntry, error) {
	var tables map[string]toml.Primitive
	meta, err := toml.Decode(string(data), &tables)
	if err != nil {
		return nil, err
	}
	var entries []rawEntry
	for _, key := range meta.Keys() {
		if len(key) != 1 {
			continue
		}
		id := key[0]
		if id == types.SchemaKey {
			// Decoding marks $schema as used so Undecoded does not report it.
			var schema string
			if err := meta.PrimitiveDecode(tables[id], &schema); err != nil {
				return nil, fmt.Errorf("%s must be a string: %w", types.SchemaKey, err)
			}
			continue
		}
		entry := rawEntry{id: id, timeoutSet: meta.IsDefined(id, timeoutField)}
		entry.err = meta.PrimitiveDecode(tables[id], &entry.cfg)
		entries = append(entries, entry)
	}
	unknown := map[string][]string{}
	for _, key := range meta.Undecoded() {
		if len(key) < 2 {
			continue
		}
		unknown[key[0]] = append(unknown[key[0]], key[len(key)-1])
	}
	for i := range entries {
		if fields, ok := unknown[entries[i].id]; ok && entries[i].err == nil {
			entries[i].err = fmt.Errorf("unknown field(s) %s", strings.Join(fields, ", "))
		}
	}
	return entries, nil
}

var _ ports.RegistryPort = RegistryFileAdapter{}
