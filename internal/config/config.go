package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Intents struct {
		Dir string `yaml:"dir"`
	} `yaml:"intents"`
	Changelog struct {
		File           string `yaml:"file"`
		Title          string `yaml:"title"`
		HeaderTemplate string `yaml:"header_template"`
		DateLayout     string `yaml:"date_layout"`
		Labels         struct {
			Major string `yaml:"major"`
			Minor string `yaml:"minor"`
			Patch string `yaml:"patch"`
			Other string `yaml:"other"`
		} `yaml:"labels"`
		CascadeNote string `yaml:"cascade_note"`
	} `yaml:"changelog"`
	Run struct {
		OnMalformed string `yaml:"on_malformed"` // "abort" or "skip"
		Backup      bool   `yaml:"backup"`
		GitStage    bool   `yaml:"git_stage"`
	} `yaml:"run"`
}

// Default returns the configuration used when no bumpcast.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.Intents.Dir = ".bumps"
	cfg.Changelog.File = "CHANGELOG.md"
	cfg.Changelog.Title = "Changelog"
	cfg.Changelog.HeaderTemplate = "{version} - {date}"
	cfg.Changelog.DateLayout = "2006-01-02"
	cfg.Changelog.Labels.Major = "Major changes"
	cfg.Changelog.Labels.Minor = "Minor changes"
	cfg.Changelog.Labels.Patch = "Patch changes"
	cfg.Changelog.Labels.Other = "Other changes"
	cfg.Changelog.CascadeNote = "Dependency version update."
	cfg.Run.OnMalformed = "abort"
	return cfg
}

// Load reads the YAML config, falling back to defaults when the file does
// not exist. A .env file and environment variables override on top.
func Load(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	// 3. Override with environment variables if present
	if dir := os.Getenv("BUMPCAST_INTENTS_DIR"); dir != "" {
		cfg.Intents.Dir = dir
	}
	if policy := os.Getenv("BUMPCAST_ON_MALFORMED"); policy != "" {
		cfg.Run.OnMalformed = policy
	}

	if cfg.Run.OnMalformed != "abort" && cfg.Run.OnMalformed != "skip" {
		return nil, fmt.Errorf("config: on_malformed must be %q or %q, got %q", "abort", "skip", cfg.Run.OnMalformed)
	}
	return cfg, nil
}
