package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	kbopts "github.com/goliatone/go-kbopts"
	"github.com/goliatone/go-kbopts/internal/docwriter"
	"github.com/goliatone/go-kbopts/internal/hydrate"
)

// LoadBatch reads an option batch from a TOML or YAML file, or from a JSON
// document as written by serialize. Top-level tables name scopes; their
// entries become items. Items are ordered by scope and then by key.
func LoadBatch(path string) ([]kbopts.Item, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		return loadDocument(path, docwriter.FormatJSON)
	default:
		return nil, fmt.Errorf("unsupported batch file extension %q", filepath.Ext(path))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load batch from %s: %w", path, err)
	}
	return itemsFromRaw(k.Raw())
}

// loadDocument decodes a serialized registry document. Unlike the koanf
// path it requires every value to be a string.
func loadDocument(path string, format docwriter.Format) ([]kbopts.Item, error) {
	doc, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}
	snapshot, err := hydrate.NewDecoder().Decode(hydrate.Context{Source: path, Format: format}, doc)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any, len(snapshot))
	for scope, pairs := range snapshot {
		entries := make(map[string]any, len(pairs))
		for key, value := range pairs {
			entries[key] = value
		}
		raw[scope] = entries
	}
	return itemsFromRaw(raw)
}

func itemsFromRaw(raw map[string]any) ([]kbopts.Item, error) {
	items := []kbopts.Item{}
	for _, scope := range kbopts.Scopes() {
		section, ok := raw[scope.String()]
		if !ok {
			continue
		}
		entries, ok := section.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scope %s: expected a table, got %T", scope, section)
		}
		keys := make([]string, 0, len(entries))
		for key := range entries {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value, err := scalar(entries[key])
			if err != nil {
				return nil, fmt.Errorf("scope %s key %q: %w", scope, key, err)
			}
			items = append(items, kbopts.Item{Scope: scope, Key: key, Value: value})
		}
	}

	for name := range raw {
		if !kbopts.ParseScope(name).Valid() {
			return nil, fmt.Errorf("unknown scope %q", name)
		}
	}
	return items, nil
}

func scalar(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool, int, int64, float64, uint64:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("expected a scalar value, got %T", value)
	}
}

// ParseAssignment parses "scope.key=value".
func ParseAssignment(value string) (kbopts.Item, error) {
	name, rest, ok := strings.Cut(value, "=")
	if !ok {
		return kbopts.Item{}, fmt.Errorf("assignment %q: missing '='", value)
	}
	scopeName, key, ok := strings.Cut(name, ".")
	if !ok || key == "" {
		return kbopts.Item{}, fmt.Errorf("assignment %q: expected scope.key", value)
	}
	scope := kbopts.ParseScope(scopeName)
	if !scope.Valid() {
		return kbopts.Item{}, fmt.Errorf("assignment %q: unknown scope %q", value, scopeName)
	}
	return kbopts.Item{Scope: scope, Key: key, Value: rest}, nil
}
