package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration shared by every command.
// It can be populated from config files, CLI flags, or both.
type Config struct {
	// Comment field for user documentation (ignored by the application)
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// Backend the flame graphs are fetched from
	BackendURL string `json:"backend_url,omitempty" yaml:"backend_url,omitempty"`
	AgentID    string `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	Timeout    string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "30s"

	// Terminal rendering width in columns
	Width int `json:"width,omitempty" yaml:"width,omitempty"`

	// Web UI configuration
	WebUIHost string `json:"webui_host,omitempty" yaml:"webui_host,omitempty"`
	WebUIPort int    `json:"webui_port,omitempty" yaml:"webui_port,omitempty"`

	// Logging configuration
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// DefaultConfig returns a Config with sensible default values:
// a backend on localhost:4000, a 30 second fetch timeout and the web UI on
// localhost:4390.
func DefaultConfig() *Config {
	return &Config{
		BackendURL: "http://127.0.0.1:4000",
		Timeout:    "30s",
		Width:      120,
		WebUIHost:  "127.0.0.1",
		WebUIPort:  4390,
	}
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", c.Timeout)
	}
	return d, nil
}

// Validate checks the fields every command depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend_url must be an http(s) URL, got %q", c.BackendURL)
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	if c.Width < 0 {
		return fmt.Errorf("width must not be negative, got %d", c.Width)
	}
	if c.WebUIPort < 0 || c.WebUIPort > 65535 {
		return fmt.Errorf("webui_port out of range: %d", c.WebUIPort)
	}
	return nil
}

// isYAML reports whether path should be parsed as YAML rather than JSON.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfigFromFile loads configuration from a JSON or YAML file, chosen by
// extension. It returns an error if the file cannot be read or parsed.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &config, nil
}

// projectConfigNames are checked in order in each directory.
var projectConfigNames = []string{
	".trace-flamegraph.json",
	".trace-flamegraph.yaml",
	".trace-flamegraph.yml",
}

// FindProjectConfig searches for a .trace-flamegraph.{json,yaml,yml} file.
// It starts in dir and walks up, stopping when it finds a .git directory
// (project root) or reaches the filesystem root.
func FindProjectConfig(dir string) (string, error) {
	for {
		for _, name := range projectConfigNames {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath, nil
			}
		}

		// Stop at the repo root even if no config was found
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", os.ErrNotExist
}

// GlobalConfigPath returns the path to the global config file:
// ~/.config/trace-flamegraph/config.json, or config.yaml when only that exists.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".config", "trace-flamegraph")
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dir, "config.json")
}

// MergeConfigs merges two configs with the overlay taking precedence.
// Fields set in overlay override corresponding fields in base.
// Returns a new Config with the merged values.
func MergeConfigs(base, overlay *Config) *Config {
	if base == nil {
		base = &Config{}
	}
	if overlay == nil {
		return base
	}

	merged := *base

	if overlay.BackendURL != "" {
		merged.BackendURL = overlay.BackendURL
	}
	if overlay.AgentID != "" {
		merged.AgentID = overlay.AgentID
	}
	if overlay.Timeout != "" {
		merged.Timeout = overlay.Timeout
	}
	if overlay.Width > 0 {
		merged.Width = overlay.Width
	}
	if overlay.WebUIHost != "" {
		merged.WebUIHost = overlay.WebUIHost
	}
	if overlay.WebUIPort > 0 {
		merged.WebUIPort = overlay.WebUIPort
	}
	if overlay.Verbose {
		merged.Verbose = overlay.Verbose
	}

	return &merged
}

// LoadEffectiveConfig loads the effective configuration by merging:
// 1. Built-in defaults
// 2. Global config file (if exists)
// 3. Project config file found from the working directory (if no explicit path)
// 4. Explicit config file (if specified via configPath)
// Later sources override earlier ones.
func LoadEffectiveConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Global config is optional; a broken one is ignored
	if globalPath := GlobalConfigPath(); globalPath != "" {
		if globalCfg, err := LoadConfigFromFile(globalPath); err == nil {
			config = MergeConfigs(config, globalCfg)
		}
	}

	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		if projectPath, err := FindProjectConfig(cwd); err == nil {
			projectCfg, err := LoadConfigFromFile(projectPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load project config: %w", err)
			}
			config = MergeConfigs(config, projectCfg)
		}
	} else {
		explicitCfg, err := LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		config = MergeConfigs(config, explicitCfg)
	}

	return config, nil
}
