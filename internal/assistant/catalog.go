// Package assistant holds the catalog of assistant variants: which model each
// one talks to and the canonical rules text it starts from.
package assistant

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed assistants.yaml prompts/*.txt
var builtin embed.FS

const builtinCatalog = "assistants.yaml"

// Variant is one assistant persona.
type Variant struct {
	Name                string `yaml:"name"`
	Description         string `yaml:"description"`
	Model               string `yaml:"model"`
	PromptFile          string `yaml:"prompt_file"`
	AttachRulesToImages bool   `yaml:"attach_rules_to_images"`

	// DefaultRules is the prompt text loaded from PromptFile.
	DefaultRules string `yaml:"-"`
}

type Catalog struct {
	Default  string    `yaml:"default"`
	Variants []Variant `yaml:"variants"`
}

// LoadBuiltin parses the catalog compiled into the binary.
func LoadBuiltin() (*Catalog, error) {
	data, err := builtin.ReadFile(builtinCatalog)
	if err != nil {
		return nil, fmt.Errorf("read builtin catalog: %w", err)
	}
	return parse(data, func(name string) ([]byte, error) {
		return builtin.ReadFile(name)
	})
}

// LoadFile parses a catalog from disk. Prompt files resolve relative to the catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	return parse(data, func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return os.ReadFile(name)
	})
}

// Load returns the catalog at path, or the builtin one when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return LoadBuiltin()
	}
	return LoadFile(path)
}

func parse(data []byte, readPrompt func(string) ([]byte, error)) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Variants) == 0 {
		return nil, fmt.Errorf("catalog has no variants")
	}

	seen := make(map[string]bool, len(cat.Variants))
	for i := range cat.Variants {
		v := &cat.Variants[i]
		if v.Name == "" {
			return nil, fmt.Errorf("variant %d has no name", i)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("duplicate variant %q", v.Name)
		}
		seen[v.Name] = true

		if v.Model == "" {
			return nil, fmt.Errorf("variant %q has no model", v.Name)
		}
		if v.PromptFile == "" {
			return nil, fmt.Errorf("variant %q has no prompt_file", v.Name)
		}
		prompt, err := readPrompt(v.PromptFile)
		if err != nil {
			return nil, fmt.Errorf("variant %q prompt: %w", v.Name, err)
		}
		v.DefaultRules = strings.TrimRight(string(prompt), "\n")
	}

	if cat.Default == "" {
		cat.Default = cat.Variants[0].Name
	}
	if !seen[cat.Default] {
		return nil, fmt.Errorf("default variant %q not defined", cat.Default)
	}

	return &cat, nil
}

// Select returns the named variant, or the catalog default when name is empty.
func (c *Catalog) Select(name string) (Variant, error) {
	if name == "" {
		name = c.Default
	}
	for _, v := range c.Variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("unknown assistant variant %q", name)
}
