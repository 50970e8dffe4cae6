package dictionary

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a dictionary file
type document struct {
	Tables          []*TableSchema         `yaml:"tables"`
	ValidationRules []*ValidationRule      `yaml:"validation_rules"`
	References      []*ReferenceDescriptor `yaml:"references"`
	Containers      []*Container           `yaml:"containers"`
	Windows         []*Window              `yaml:"windows"`
}

// LoadFile reads and validates a dictionary YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", path, err)
	}
	registry, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", path, err)
	}
	return registry, nil
}

// Parse builds a validated registry from dictionary YAML
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}

	registry := NewRegistry()
	for _, t := range doc.Tables {
		if err := registry.RegisterTable(t); err != nil {
			return nil, err
		}
	}
	for _, v := range doc.ValidationRules {
		if err := registry.RegisterValidationRule(v); err != nil {
			return nil, err
		}
	}
	for _, d := range doc.References {
		if err := registry.RegisterReference(d); err != nil {
			return nil, err
		}
	}
	for _, c := range doc.Containers {
		if err := registry.RegisterContainer(c); err != nil {
			return nil, err
		}
	}
	for _, w := range doc.Windows {
		if err := registry.RegisterWindow(w); err != nil {
			return nil, err
		}
	}

	if err := registry.ValidateAll(); err != nil {
		return nil, fmt.Errorf("dictionary validation failed: %w", err)
	}
	return registry, nil
}
