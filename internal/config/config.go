// Package config loads and persists Terminal Coder's orchestration
// settings: poll cadence, timeouts, retry limits, concurrency caps, and the
// fixed .tc/ directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"terminal-coder/internal/logging"
)

// Directory and file names under a project's .tc/ state directory.
const (
	TCDir       = ".tc"
	DBFilename  = "tc.db"
	BriefsDir   = "briefs"
	LogsDir     = "logs"
	PlansDir    = "plans"
	ConfigFile  = "config.yaml"
	LoggingFile = "logging.json"
)

// Config holds every tunable the Engine, Scheduler, and Session Manager
// read. Field values mirror the reference orchestrator's fixed constants,
// made overridable the way the teacher's own config layer treats its LLM
// and memory settings as YAML-overridable defaults.
type Config struct {
	PollIntervalSecs    float64 `yaml:"poll_interval_secs"`
	SessionTimeoutSecs  int     `yaml:"session_timeout_secs"`
	ReviewTimeoutSecs   int     `yaml:"review_timeout_secs"`
	MaxRetriesDefault   int     `yaml:"max_retries_default"`
	GlobalMaxRetries    int     `yaml:"global_max_retries"`
	GracefulKillWaitSecs int    `yaml:"graceful_kill_wait_secs"`
	MaxConcurrentCoding int     `yaml:"max_concurrent_coding"`
	MaxConcurrentReview int     `yaml:"max_concurrent_review"`
	MaxTmuxPanes        int     `yaml:"max_tmux_panes"`

	Reporting ReportingConfig `yaml:"reporting"`
	Deploy    DeployConfig    `yaml:"deploy"`
}

// ReportingConfig configures the loopback HTTP reporting channel workers
// call back into.
type ReportingConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DeployConfig configures the deployment-verification checks.
type DeployConfig struct {
	GiteaBaseURL string `yaml:"gitea_base_url"`
	AWSProfile   string `yaml:"aws_profile"`
}

// DefaultConfig returns Terminal Coder's built-in defaults, matching the
// reference implementation's config/constants.py exactly.
func DefaultConfig() *Config {
	return &Config{
		PollIntervalSecs:     2.0,
		SessionTimeoutSecs:   1800,
		ReviewTimeoutSecs:    600,
		MaxRetriesDefault:    1,
		GlobalMaxRetries:     1,
		GracefulKillWaitSecs: 10,
		MaxConcurrentCoding:  1,
		MaxConcurrentReview:  1,
		MaxTmuxPanes:         2,
		Reporting: ReportingConfig{
			ListenAddr: "127.0.0.1:7077",
		},
	}
}

// Load reads configuration from a YAML file under a project's .tc/
// directory, falling back to defaults if the file does not exist yet
// (e.g. before `tc init` has run a `tc verify`).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: poll_interval=%.1fs max_concurrent_coding=%d",
		cfg.PollIntervalSecs, cfg.MaxConcurrentCoding)
	return cfg, nil
}

// Save persists configuration to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets operators override seven settings without editing
// the YAML file (TC_POLL_INTERVAL_SECS, TC_SESSION_TIMEOUT_SECS,
// TC_REVIEW_TIMEOUT_SECS, TC_MAX_CONCURRENT_CODING, TC_REPORTING_ADDR,
// TC_GITEA_BASE_URL, TC_AWS_PROFILE), the same override-after-unmarshal pattern the teacher's
// own config layer applies for API keys and service URLs.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TC_POLL_INTERVAL_SECS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.PollIntervalSecs = f
		}
	}
	if v := os.Getenv("TC_SESSION_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SessionTimeoutSecs = n
		}
	}
	if v := os.Getenv("TC_REVIEW_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ReviewTimeoutSecs = n
		}
	}
	if v := os.Getenv("TC_MAX_CONCURRENT_CODING"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentCoding = n
		}
	}
	if v := os.Getenv("TC_REPORTING_ADDR"); v != "" {
		c.Reporting.ListenAddr = v
	}
	if v := os.Getenv("TC_GITEA_BASE_URL"); v != "" {
		c.Deploy.GiteaBaseURL = v
	}
	if v := os.Getenv("TC_AWS_PROFILE"); v != "" {
		c.Deploy.AWSProfile = v
	}
}

// PollInterval returns PollIntervalSecs as a time.Duration for use in the
// Engine's tick loop.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs * float64(time.Second))
}

// SessionTimeout returns SessionTimeoutSecs as a time.Duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSecs) * time.Second
}

// ReviewTimeout returns ReviewTimeoutSecs as a time.Duration.
func (c *Config) ReviewTimeout() time.Duration {
	return time.Duration(c.ReviewTimeoutSecs) * time.Second
}

// GracefulKillWait returns GracefulKillWaitSecs as a time.Duration.
func (c *Config) GracefulKillWait() time.Duration {
	return time.Duration(c.GracefulKillWaitSecs) * time.Second
}

// ProjectPaths is the fixed set of on-disk locations this orchestrator
// reads and writes under a project's .tc/ directory.
type ProjectPaths struct {
	ProjectDir string
	TCDir      string
	DBPath     string
	BriefsDir  string
	LogsDir    string
	PlansDir   string
	ConfigPath string
	LoggingPath string
}

// NewProjectPaths derives every fixed path from a project's root directory.
func NewProjectPaths(projectDir string) ProjectPaths {
	tcDir := filepath.Join(projectDir, TCDir)
	return ProjectPaths{
		ProjectDir:  projectDir,
		TCDir:       tcDir,
		DBPath:      filepath.Join(tcDir, DBFilename),
		BriefsDir:   filepath.Join(tcDir, BriefsDir),
		LogsDir:     filepath.Join(tcDir, LogsDir),
		PlansDir:    filepath.Join(tcDir, PlansDir),
		ConfigPath:  filepath.Join(tcDir, ConfigFile),
		LoggingPath: filepath.Join(tcDir, LoggingFile),
	}
}

// EnsureDirs creates every directory a fresh project needs.
func (p ProjectPaths) EnsureDirs() error {
	for _, dir := range []string{p.TCDir, p.BriefsDir, p.LogsDir, p.PlansDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
