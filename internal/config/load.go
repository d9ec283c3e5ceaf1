package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// DefaultFilename is the configuration file looked up in the site root.
const DefaultFilename = "config.yaml"

// Load reads the site configuration at configPath (relative paths resolve
// against root), expands ${VAR} references, applies defaults and validates.
func Load(root, configPath string, mode BuildMode) (*Config, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "resolve site root").Fatal().Build()
	}
	if configPath == "" {
		configPath = DefaultFilename
	}
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(root, configPath)
	}

	if err := loadEnvFiles(root); err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "load environment file").
			WithContext("root", root).Fatal().Build()
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, foundation.ConfigError("configuration file not found").WithContext("path", configPath).Build()
	}
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "read configuration file").
			WithContext("path", configPath).Fatal().Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, foundation.WrapError(err, foundation.CategoryConfig, "parse configuration file").
			WithContext("path", configPath).Fatal().Build()
	}
	cfg.Mode = mode
	cfg.Paths = DefaultPaths(root)

	if err := mergeThemeExtra(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration bytes and applies defaults. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// DefaultPaths returns the conventional directory layout under root.
func DefaultPaths(root string) Paths {
	return Paths{
		Root:      root,
		Content:   filepath.Join(root, "content"),
		Output:    filepath.Join(root, "public"),
		Static:    filepath.Join(root, "static"),
		Templates: filepath.Join(root, "templates"),
		Sass:      filepath.Join(root, "sass"),
		Themes:    filepath.Join(root, "themes"),
	}
}

type themeFile struct {
	Extra map[string]any `yaml:"extra"`
}

// mergeThemeExtra folds the theme's extra values under the site's; site keys win.
func mergeThemeExtra(cfg *Config) error {
	dir := cfg.ThemeDir()
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		return foundation.ConfigError("theme directory not found").
			WithContext("theme", cfg.Theme).WithContext("path", dir).Build()
	}
	data, err := os.ReadFile(filepath.Join(dir, "theme.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryConfig, "read theme.yaml").Fatal().Build()
	}
	var theme themeFile
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return foundation.WrapError(err, foundation.CategoryConfig, "parse theme.yaml").
			WithContext("theme", cfg.Theme).Fatal().Build()
	}
	for k, v := range theme.Extra {
		if _, ok := cfg.Extra[k]; !ok {
			cfg.Extra[k] = v
		}
	}
	return nil
}
