package persona

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a persona YAML file.
//
// Example:
//
//	personas:
//	  - id: ted
//	    name: TED Speaker
//	    description: Inspiring, story-driven, calm but energetic.
//	    targets:
//	      wpm: [140, 170]
//	      max_fillers_per_min: 3
//	    voice:
//	      id: en-US-natalie
type File struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads personas from a YAML file and builds a Registry.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persona: open %q: %w", path, err)
	}
	defer f.Close()

	r, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("persona: load %q: %w", path, err)
	}
	return r, nil
}

// LoadFromReader parses persona YAML from r and builds a Registry.
func LoadFromReader(r io.Reader) (*Registry, error) {
	var pf File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("persona: decode yaml: %w", err)
	}
	return NewRegistry(pf.Personas)
}

// Load returns the registry from path, or the built-in defaults when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(Defaults())
	}
	return LoadFile(path)
}
