// internal/config/config.go
//
// This package handles configuration and the .questify directory structure.
// Every directory questify runs from gets a .questify/ folder holding the
// client config and the session logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// QuestifyDir is the name of the directory we create in the working directory
	QuestifyDir = ".questify"

	DefaultBackendURL     = "http://127.0.0.1:5000"
	DefaultModel          = "bart"
	DefaultTimeout        = 60 * time.Second
	DefaultStubHost       = "127.0.0.1"
	DefaultStubPort       = 5000
	DefaultMaxUploadBytes = 16 << 20
)

// Models the inference service understands.
var knownModels = []string{"bart", "gpt2", "bert"}

const defaultProjectConfigYAML = `# questify configuration
version: 1

# Inference service the client talks to.
backend:
  url: http://127.0.0.1:5000
  # Answer model sent with every question: bart, gpt2 or bert.
  model: bart
  # Per-request timeout.
  timeout: 60s

# Local reference backend started with "questify serve-stub".
stub:
  host: 127.0.0.1
  port: 5000
  max_upload_bytes: 16777216
`

// BackendConfig describes the remote inference service.
type BackendConfig struct {
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout,omitempty"`
}

// StubConfig describes the local reference backend.
type StubConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes,omitempty"`
}

// ProjectConfig models .questify/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	Backend BackendConfig `yaml:"backend"`
	Stub    StubConfig    `yaml:"stub"`
}

// Config holds the runtime configuration for questify.
type Config struct {
	// WorkDir is the directory where the user ran `questify` from
	WorkDir string

	// QuestifyWorkDir is WorkDir/.questify
	QuestifyWorkDir string

	Project ProjectConfig
}

// InitQuestifyDir creates the .questify directory structure in workDir.
//
// Structure created:
// .questify/
// ├── logs/         <- session.log and stub.log
// └── config.yaml   <- written with defaults when missing
func InitQuestifyDir(workDir string) error {
	dir := filepath.Join(workDir, QuestifyDir)
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		return fmt.Errorf("config: ensure %s: %w", dir, err)
	}
	return ensureProjectConfig(filepath.Join(dir, "config.yaml"))
}

// NewConfig loads .questify/config.yaml (when present) and applies
// environment overrides.
func NewConfig(workDir string) (*Config, error) {
	cfg := &Config{
		WorkDir:         workDir,
		QuestifyWorkDir: filepath.Join(workDir, QuestifyDir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.QuestifyWorkDir, "logs")
}

// SessionLogPath returns the logbook file for client sessions
func (c *Config) SessionLogPath() string {
	return filepath.Join(c.LogsDir(), "session.log")
}

// StubLogPath returns the log file for the reference backend
func (c *Config) StubLogPath() string {
	return filepath.Join(c.LogsDir(), "stub.log")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.QuestifyWorkDir, "config.yaml")
}

// BackendURL returns the inference service root.
func (c *Config) BackendURL() string {
	return c.Project.Backend.URL
}

// Model returns the answer model sent with questions.
func (c *Config) Model() string {
	return c.Project.Backend.Model
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Project.Backend.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Override applies command-line values on top of file and environment
// settings. Empty values are ignored.
func (c *Config) Override(backendURL, model string, timeout time.Duration) error {
	if v := strings.TrimSpace(backendURL); v != "" {
		c.Project.Backend.URL = v
	}
	if v := strings.TrimSpace(model); v != "" {
		c.Project.Backend.Model = v
	}
	if timeout > 0 {
		c.Project.Backend.Timeout = timeout.String()
	}
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Backend: BackendConfig{
			URL:     DefaultBackendURL,
			Model:   DefaultModel,
			Timeout: DefaultTimeout.String(),
		},
		Stub: StubConfig{
			Host:           DefaultStubHost,
			Port:           DefaultStubPort,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = defaults.Version
	}
	if strings.TrimSpace(pc.Backend.URL) == "" {
		pc.Backend.URL = defaults.Backend.URL
	}
	if strings.TrimSpace(pc.Backend.Model) == "" {
		pc.Backend.Model = defaults.Backend.Model
	}
	if strings.TrimSpace(pc.Backend.Timeout) == "" {
		pc.Backend.Timeout = defaults.Backend.Timeout
	}
	if strings.TrimSpace(pc.Stub.Host) == "" {
		pc.Stub.Host = defaults.Stub.Host
	}
	if pc.Stub.Port == 0 {
		pc.Stub.Port = defaults.Stub.Port
	}
	if pc.Stub.MaxUploadBytes <= 0 {
		pc.Stub.MaxUploadBytes = defaults.Stub.MaxUploadBytes
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("QUESTIFY_BACKEND_URL")); v != "" {
		pc.Backend.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("QUESTIFY_MODEL")); v != "" {
		pc.Backend.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("QUESTIFY_TIMEOUT")); v != "" {
		pc.Backend.Timeout = v
	}
	if v := strings.TrimSpace(os.Getenv("QUESTIFY_STUB_HOST")); v != "" {
		pc.Stub.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("QUESTIFY_STUB_PORT")); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			pc.Stub.Port = port
		}
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Backend.URL = strings.TrimRight(strings.TrimSpace(pc.Backend.URL), "/")
	pc.Backend.Model = strings.ToLower(strings.TrimSpace(pc.Backend.Model))
	pc.Backend.Timeout = strings.TrimSpace(pc.Backend.Timeout)
	pc.Stub.Host = strings.TrimSpace(pc.Stub.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateURL(pc.Backend.URL); err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if !contains(knownModels, pc.Backend.Model) {
		return fmt.Errorf("backend.model must be one of %s", strings.Join(knownModels, ", "))
	}
	if pc.Backend.Timeout != "" {
		d, err := time.ParseDuration(pc.Backend.Timeout)
		if err != nil {
			return fmt.Errorf("backend.timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("backend.timeout must be positive")
		}
	}
	if pc.Stub.Port < 0 || pc.Stub.Port > 65535 {
		return fmt.Errorf("stub.port must be between 0 and 65535")
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}
