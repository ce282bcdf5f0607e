package schema

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var builtinFS embed.FS

// Builtin loads one of the schemas shipped with the binary by name.
func Builtin(name string) (*Schema, error) {
	data, err := builtinFS.ReadFile("schemas/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("schema %q not found (available: %s): %w",
			name, strings.Join(ListBuiltin(), ", "), err)
	}
	return Parse(data)
}

// ListBuiltin returns the names of all embedded schemas, sorted.
func ListBuiltin() []string {
	entries, _ := builtinFS.ReadDir("schemas")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// Load resolves ref as a builtin schema name first, then as a YAML file path.
func Load(ref string) (*Schema, error) {
	for _, name := range ListBuiltin() {
		if name == ref {
			return Builtin(ref)
		}
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read schema %q: %w", ref, err)
	}
	return Parse(data)
}

// Parse decodes a YAML schema, fills defaults and validates it.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) applyDefaults() {
	if s.Aggregation == "" {
		s.Aggregation = AggregateMeanAll
	}
	for i := range s.Dimensions {
		d := &s.Dimensions[i]
		if d.Label == "" {
			d.Label = d.ID
		}
		if d.Mode == "" {
			if len(d.Levels) > 0 {
				d.Mode = ModeQuantized
			} else {
				d.Mode = ModeContinuous
			}
		}
		if d.Mode == ModeContinuous && d.Min == 0 && d.Max == 0 {
			d.Max = 1
		}
	}
}
