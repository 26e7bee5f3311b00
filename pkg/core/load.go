package core

import (
	"bytes"
	"fmt"
	"os"

	manifest "github.com/joeydtaylor/steeze-sentinel/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
)

// LoadConfig reads, defaults, normalizes and validates a sentinel.toml.
func LoadConfig(path string) (manifest.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manifest.Config{}, err
	}
	cfg, err := ParseConfig(b)
	if err != nil {
		return manifest.Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes b on top of manifest.Default. Unknown keys are an
// error so a misspelled security option never silently falls back.
func ParseConfig(b []byte) (manifest.Config, error) {
	cfg := manifest.Default()
	dec := toml.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return manifest.Config{}, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, err
	}
	return cfg, nil
}
