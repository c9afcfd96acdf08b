package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fulmenhq/caretaker/pkg/logger"
	"github.com/fulmenhq/caretaker/pkg/safeio"
)

// Priority levels (higher number = higher priority)
const (
	PriorityDefault = 0
	PriorityOrg     = 10
	PriorityUser    = 20
	PriorityProject = 30
	PriorityCLI     = 40
	PriorityEnv     = 50
)

// ErrSourceUnavailable marks sources that are skipped instead of failing the load
var ErrSourceUnavailable = errors.New("config source unavailable")

// ConfigSource represents a source of configuration
type ConfigSource interface {
	// Load configuration from this source
	Load(ctx context.Context) (*viper.Viper, error)
	// Get the priority of this source (higher number = higher priority)
	Priority() int
	// Get a human-readable name for this source
	Name() string
}

// ConfigMerger defines how configurations are merged
type ConfigMerger interface {
	Merge(base, overlay *viper.Viper) (*viper.Viper, error)
}

// HierarchicalConfig manages configuration from multiple sources with precedence
type HierarchicalConfig struct {
	sources []ConfigSource
	merger  ConfigMerger
	loaded  []string
}

// NewHierarchicalConfig creates a new hierarchical configuration manager
func NewHierarchicalConfig() *HierarchicalConfig {
	return &HierarchicalConfig{merger: &DefaultConfigMerger{}}
}

// AddSource adds a configuration source
func (h *HierarchicalConfig) AddSource(source ConfigSource) {
	h.sources = append(h.sources, source)
}

// Loaded returns the names of the sources that contributed to the last Load
func (h *HierarchicalConfig) Loaded() []string {
	return append([]string(nil), h.loaded...)
}

// Load loads configuration from all sources and merges them according to precedence.
// Sources failing with ErrSourceUnavailable are skipped; any other failure aborts.
func (h *HierarchicalConfig) Load(ctx context.Context) (*Config, error) {
	sorted := make([]ConfigSource, len(h.sources))
	copy(sorted, h.sources)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	h.loaded = h.loaded[:0]
	var merged *viper.Viper
	for _, source := range sorted {
		sourceConfig, err := source.Load(ctx)
		if errors.Is(err, ErrSourceUnavailable) {
			logger.Debug(fmt.Sprintf("Skipping config source %s", source.Name()), logger.Err(err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", source.Name(), err)
		}
		h.loaded = append(h.loaded, source.Name())

		if merged == nil {
			merged = sourceConfig
			continue
		}
		if merged, err = h.merger.Merge(merged, sourceConfig); err != nil {
			return nil, fmt.Errorf("failed to merge config from %s: %w", source.Name(), err)
		}
	}

	if merged == nil {
		return Default(), nil
	}

	var config Config
	if err := merged.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merged config: %w", err)
	}
	return &config, nil
}

// DefaultConfigMerger implements a simple deep merge strategy
type DefaultConfigMerger struct{}

func (m *DefaultConfigMerger) Merge(base, overlay *viper.Viper) (*viper.Viper, error) {
	merged := viper.New()
	for _, key := range base.AllKeys() {
		merged.Set(key, base.Get(key))
	}
	for _, key := range overlay.AllKeys() {
		merged.Set(key, overlay.Get(key))
	}
	return merged, nil
}

// DefaultsSource yields the built-in configuration
type DefaultsSource struct {
	priority int
}

func NewDefaultsSource(priority int) *DefaultsSource {
	return &DefaultsSource{priority: priority}
}

func (s *DefaultsSource) Load(context.Context) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	return v, nil
}

func (s *DefaultsSource) Priority() int { return s.priority }
func (s *DefaultsSource) Name() string  { return "defaults" }

// FileConfigSource loads configuration from a local YAML or JSON file.
// The file is checked against the configuration schema before it is used.
type FileConfigSource struct {
	path     string
	priority int
	// Required turns a missing file into an error
	Required bool
}

func NewFileConfigSource(path string, priority int) *FileConfigSource {
	return &FileConfigSource{path: path, priority: priority}
}

func (s *FileConfigSource) Load(ctx context.Context) (*viper.Viper, error) {
	data, err := safeio.ReadFileClean(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !s.Required {
			return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return nil, err
	}
	return readValidated(data, detectConfigType(s.path))
}

func (s *FileConfigSource) Priority() int {
	return s.priority
}

func (s *FileConfigSource) Name() string {
	return fmt.Sprintf("file:%s", s.path)
}

// HTTPConfigSource loads a shared configuration from an HTTP endpoint.
// Network failures skip the source; an invalid document fails the load.
type HTTPConfigSource struct {
	url      string
	headers  map[string]string
	priority int
	client   *http.Client
}

func NewHTTPConfigSource(url string, priority int) *HTTPConfigSource {
	return &HTTPConfigSource{
		url:      url,
		priority: priority,
		headers:  make(map[string]string),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHeader adds a request header, e.g. an authorization token
func (s *HTTPConfigSource) SetHeader(key, value string) {
	s.headers[key] = value
}

func (s *HTTPConfigSource) Load(ctx context.Context) (*viper.Viper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req) // #nosec G107 -- URL comes from the operator's environment
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body close errors are typically ignored in defer

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %s", ErrSourceUnavailable, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return readValidated(data, detectConfigType(s.url))
}

func (s *HTTPConfigSource) Priority() int {
	return s.priority
}

func (s *HTTPConfigSource) Name() string {
	return fmt.Sprintf("http:%s", s.url)
}

// EnvConfigSource loads configuration from environment variables
// named PREFIX_SECTION_KEY (CARETAKER_REPORT_FAIL_ON).
type EnvConfigSource struct {
	prefix   string
	priority int
}

func NewEnvConfigSource(prefix string, priority int) *EnvConfigSource {
	return &EnvConfigSource{
		prefix:   prefix,
		priority: priority,
	}
}

func (s *EnvConfigSource) Load(context.Context) (*viper.Viper, error) {
	// Only variables that are actually set are copied so unset keys keep lower-priority values
	known := viper.New()
	setDefaults(known)

	v := viper.New()
	for _, key := range known.AllKeys() {
		if val, ok := os.LookupEnv(EnvName(s.prefix, key)); ok {
			v.Set(key, val)
		}
	}
	return v, nil
}

func (s *EnvConfigSource) Priority() int {
	return s.priority
}

func (s *EnvConfigSource) Name() string {
	return fmt.Sprintf("env:%s", s.prefix)
}

func readValidated(data []byte, configType string) (*viper.Viper, error) {
	if err := ValidateConfig(data); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return v, nil
}

// detectConfigType attempts to detect config type from URL/path
func detectConfigType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		if u, err := url.Parse(path); err == nil {
			if format := u.Query().Get("format"); format == "json" || format == "yaml" {
				return format
			}
			if e := strings.ToLower(filepath.Ext(u.Path)); e == ".json" {
				return "json"
			}
		}
		return "yaml"
	}
}
