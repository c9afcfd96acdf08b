package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for caretaker
type Config struct {
	Report ReportConfig `mapstructure:"report"`
	Engine EngineConfig `mapstructure:"engine"`
	Rules  RulesConfig  `mapstructure:"rules"`
}

// ReportConfig controls what a check reports and how
type ReportConfig struct {
	Format     string   `mapstructure:"format"`
	Categories []string `mapstructure:"categories"`
	MinLevel   string   `mapstructure:"min_level"`
	FailOn     string   `mapstructure:"fail_on"` // "none", "info", "warning", "error"
	Locale     string   `mapstructure:"locale"`
	Priorities string   `mapstructure:"priorities"` // "license=1,efficiency=highest"
	Width      int      `mapstructure:"width"`      // 0 means terminal default
}

// EngineConfig holds analyzer execution options
type EngineConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxDepth    int `mapstructure:"max_depth"`
}

// RulesConfig points at rule data outside the binary
type RulesConfig struct {
	TablesFile    string `mapstructure:"tables_file"`
	LicensePolicy string `mapstructure:"license_policy"`
	MediaGlob     string `mapstructure:"media_glob"`
}

var defaultConfig = Config{
	Report: ReportConfig{
		Format:     "text",
		Categories: []string{"accessibility", "license", "efficiency"},
		MinLevel:   "info",
		FailOn:     "error",
		Locale:     "en",
		Width:      0,
	},
	Engine: EngineConfig{
		Concurrency: 1,
		MaxDepth:    64,
	},
}

// Default returns a copy of the built-in configuration
func Default() *Config {
	c := defaultConfig
	c.Report.Categories = append([]string(nil), defaultConfig.Report.Categories...)
	return &c
}

// setDefaults registers every known key, which also lets env overrides find them
func setDefaults(v *viper.Viper) {
	v.SetDefault("report.format", defaultConfig.Report.Format)
	v.SetDefault("report.categories", defaultConfig.Report.Categories)
	v.SetDefault("report.min_level", defaultConfig.Report.MinLevel)
	v.SetDefault("report.fail_on", defaultConfig.Report.FailOn)
	v.SetDefault("report.locale", defaultConfig.Report.Locale)
	v.SetDefault("report.priorities", defaultConfig.Report.Priorities)
	v.SetDefault("report.width", defaultConfig.Report.Width)

	v.SetDefault("engine.concurrency", defaultConfig.Engine.Concurrency)
	v.SetDefault("engine.max_depth", defaultConfig.Engine.MaxDepth)

	v.SetDefault("rules.tables_file", defaultConfig.Rules.TablesFile)
	v.SetDefault("rules.license_policy", defaultConfig.Rules.LicensePolicy)
	v.SetDefault("rules.media_glob", defaultConfig.Rules.MediaGlob)
}

// LoadConfig loads configuration from the standard locations: built-in defaults,
// the user config under the caretaker home, the first project config found in
// the working directory, then CARETAKER_* environment variables.
// A non-empty explicit path is loaded after the project config and must exist.
func LoadConfig(ctx context.Context, explicit string) (*Config, error) {
	h := NewHierarchicalConfig()
	h.AddSource(NewDefaultsSource(PriorityDefault))

	if orgURL := os.Getenv("CARETAKER_ORG_CONFIG_URL"); orgURL != "" {
		h.AddSource(NewHTTPConfigSource(orgURL, PriorityOrg))
	}

	if configDir, err := GetConfigDir(); err == nil {
		h.AddSource(NewFileConfigSource(filepath.Join(configDir, "caretaker.yaml"), PriorityUser))
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		h.AddSource(NewFileConfigSource(filepath.Join(homeDir, "caretaker.yaml"), PriorityUser+1))
	}

	for _, name := range projectConfigNames {
		if _, err := os.Stat(name); err == nil {
			h.AddSource(NewFileConfigSource(name, PriorityProject))
			break
		}
	}

	if explicit != "" {
		src := NewFileConfigSource(explicit, PriorityCLI)
		src.Required = true
		h.AddSource(src)
	}

	h.AddSource(NewEnvConfigSource("CARETAKER", PriorityEnv))

	return h.Load(ctx)
}

var projectConfigNames = []string{
	".caretaker.yaml",
	".caretaker.yml",
	".caretaker.json",
	"caretaker.yaml",
	"caretaker.yml",
	"caretaker.json",
}

// GetCaretakerHome returns the caretaker home directory
func GetCaretakerHome() (string, error) {
	if home := os.Getenv("CARETAKER_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".caretaker"), nil
}

// GetConfigDir returns the config directory below the caretaker home. It is not created.
func GetConfigDir() (string, error) {
	homeDir, err := GetCaretakerHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, "config"), nil
}

// EnvName returns the environment variable that overrides a config key
func EnvName(prefix, key string) string {
	return strings.ToUpper(prefix + "_" + strings.ReplaceAll(key, ".", "_"))
}
