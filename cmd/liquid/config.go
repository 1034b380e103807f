package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v4"

	"github.com/neurodesk/liquid/pkg/liquid"
	"github.com/neurodesk/liquid/pkg/validator"
)

const defaultConfigPath = "liquid.yaml"

type liquidConfig struct {
	Settings liquid.Settings `yaml:"settings"`
	// Vars lists variable sources, files or URLs, merged in order.
	Vars     []string `yaml:"vars"`
	CacheDir string   `yaml:"cache_dir,omitempty"`
}

func defaultConfig() liquidConfig {
	return liquidConfig{Settings: liquid.DefaultSettings()}
}

// loadConfig decodes path over the defaults. A missing file is an error only
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (liquidConfig, error) {
	cfg := defaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decoding config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c liquidConfig) validate() error {
	return validator.All(
		c.Settings.Validate(),
		validator.Map(c.Vars, validator.NotEmpty, "vars"),
		validator.Map(c.Vars, validator.HasNoTags, "vars"),
		validator.NoDuplicates(c.Vars, "vars"),
		validator.HasNoTags(c.CacheDir, "cache_dir"),
	)
}
