// Package config holds the solver-wide constants and the deft.yaml
// configuration surface.
//
// The file maps strictness flags and harness locations onto the solver;
// everything else the CLI needs arrives as command-line flags. Unknown
// keys are errors so typos fail loudly instead of silently running with
// defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/deft/internal/typesystem"
)

// Config represents the top-level deft.yaml configuration.
type Config struct {
	// Strictness selects the compatibility dialect.
	Strictness Strictness `yaml:"strictness"`

	// Fixtures lists the fixture files or directories a bare `deft check`
	// runs. Paths are relative to the config file.
	Fixtures []string `yaml:"fixtures,omitempty"`

	// Baseline is the accepted-run database path, relative to the config
	// file. Defaults to baseline.db next to it.
	Baseline string `yaml:"baseline,omitempty"`
}

// Strictness mirrors the solver's check configuration in YAML shape.
type Strictness struct {
	// StrictNullChecks keeps null and undefined out of every other type.
	StrictNullChecks bool `yaml:"strict_null_checks"`

	// StrictFunctionTypes checks function parameters contravariantly.
	StrictFunctionTypes bool `yaml:"strict_function_types"`

	// ExactOptionalPropertyTypes stops optional properties from accepting
	// explicit undefined.
	ExactOptionalPropertyTypes bool `yaml:"exact_optional_property_types"`

	// NoUncheckedIndexedAccess adds undefined to index-signature reads.
	NoUncheckedIndexedAccess bool `yaml:"no_unchecked_indexed_access"`
}

// CheckConfig converts the YAML shape into the solver's configuration.
func (s Strictness) CheckConfig() typesystem.CheckConfig {
	return typesystem.CheckConfig{
		StrictNullChecks:           s.StrictNullChecks,
		StrictFunctionTypes:        s.StrictFunctionTypes,
		ExactOptionalPropertyTypes: s.ExactOptionalPropertyTypes,
		NoUncheckedIndexedAccess:   s.NoUncheckedIndexedAccess,
	}
}

// Default returns the configuration an absent deft.yaml implies: the
// strict dialect and the conventional baseline location.
func Default() *Config {
	return &Config{
		Strictness: Strictness{
			StrictNullChecks:    true,
			StrictFunctionTypes: true,
		},
		Baseline: BaselineFileName,
	}
}

// Load reads and parses a deft.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses deft.yaml content from bytes. Absent keys keep their
// defaults, so a partial file only overrides what it mentions. The path
// argument is used only for error messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find searches for deft.yaml starting from dir and walking up to parent
// directories. Returns the path if found, or empty string and nil error
// if not found.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	for i, fx := range c.Fixtures {
		if fx == "" {
			return fmt.Errorf("%s: fixtures[%d]: path is empty", path, i)
		}
	}
	if c.Baseline == "" {
		return fmt.Errorf("%s: baseline must not be empty; omit the key for the default", path)
	}
	return nil
}
