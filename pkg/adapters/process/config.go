package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Placeholders substituted in RendererConfig.Args.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// RendererConfig describes the external CAD-to-mesh converter.
type RendererConfig struct {
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	TempDir     string            `yaml:"temp_dir" json:"temp_dir"`
	Timeout     time.Duration     `yaml:"timeout" json:"timeout"`
}

// UnmarshalJSON reads the timeout either as a duration string such as "60s",
// the form YAML files use, or as integer nanoseconds.
func (c *RendererConfig) UnmarshalJSON(data []byte) error {
	type plain RendererConfig
	aux := struct {
		*plain
		Timeout json.RawMessage `json:"timeout"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Timeout) == 0 || string(aux.Timeout) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(aux.Timeout, &text); err == nil {
		d, err := time.ParseDuration(text)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
		return nil
	}
	var nanos int64
	if err := json.Unmarshal(aux.Timeout, &nanos); err != nil {
		return fmt.Errorf("timeout: want a duration string or nanoseconds, got %s", aux.Timeout)
	}
	c.Timeout = time.Duration(nanos)
	return nil
}

// DefaultRendererConfig invokes OpenSCAD and asks for ASCII STL.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		Command: "openscad",
		Args:    []string{"-o", OutputPlaceholder, "--export-format", "asciistl", InputPlaceholder},
		Timeout: 60 * time.Second,
	}
}

// ConfigFile represents the structure of renderer.yaml
type ConfigFile struct {
	Renderer RendererConfig `yaml:"renderer" json:"renderer"`
}

// LoadRendererConfig reads a configuration file (YAML or JSON). Fields left
// empty keep their defaults; a missing file yields the defaults.
func LoadRendererConfig(path string) (RendererConfig, error) {
	cfg := ConfigFile{Renderer: DefaultRendererConfig()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.Renderer, nil
		}
		return RendererConfig{}, fmt.Errorf("failed to read renderer config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return RendererConfig{}, fmt.Errorf("failed to parse renderer.json: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return RendererConfig{}, fmt.Errorf("failed to parse renderer.yaml: %w", err)
		}
	}

	if err := cfg.Renderer.Validate(); err != nil {
		return RendererConfig{}, err
	}
	return cfg.Renderer, nil
}

// Validate checks that the converter can receive both file paths.
func (c RendererConfig) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("renderer command is required")
	}
	var hasIn, hasOut bool
	for _, a := range c.Args {
		hasIn = hasIn || strings.Contains(a, InputPlaceholder)
		hasOut = hasOut || strings.Contains(a, OutputPlaceholder)
	}
	if !hasIn || !hasOut {
		return fmt.Errorf("renderer args must reference %s and %s", InputPlaceholder, OutputPlaceholder)
	}
	return nil
}
