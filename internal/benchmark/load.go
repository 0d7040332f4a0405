package benchmark

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultSet []byte

// Default returns the built-in Traceloop/OpenLLMetry documentation benchmark.
func Default() (Set, error) {
	set, err := parseYAMLSet(defaultSet)
	if err != nil {
		return Set{}, fmt.Errorf("default benchmark: %w", err)
	}
	return NormalizeSet(set)
}

// Load reads a benchmark file, or the default set when path is empty.
func Load(path string) (Set, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read benchmark: %w", err)
	}
	set, err := parseSet(data, path)
	if err != nil {
		return Set{}, err
	}
	return NormalizeSet(set)
}

func parseSet(data []byte, path string) (Set, error) {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return parseJSONSet(data)
	}
	return parseYAMLSet(data)
}

func parseJSONSet(data []byte) (Set, error) {
	var set Set
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&set); err != nil {
		return Set{}, fmt.Errorf("parse json: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Set{}, fmt.Errorf("parse json: multiple documents are not supported")
		}
		return Set{}, fmt.Errorf("parse json: %w", err)
	}
	return set, nil
}

func parseYAMLSet(data []byte) (Set, error) {
	var set Set
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&set); err != nil {
		return Set{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Set{}, fmt.Errorf("parse yaml: multiple documents are not supported")
		}
		return Set{}, fmt.Errorf("parse yaml: %w", err)
	}
	return set, nil
}

// Limit returns the first maxItems items, or all of them when maxItems is nil.
// A non-positive cap selects nothing.
func Limit(items []Item, maxItems *int) []Item {
	if maxItems == nil {
		return items
	}
	if *maxItems <= 0 {
		return nil
	}
	if *maxItems >= len(items) {
		return items
	}
	return items[:*maxItems]
}
