package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Document source kinds.
const (
	SourceDir  = "dir"
	SourceHTTP = "http"
	SourceDB   = "db"
)

type Config struct {
	Documents Documents `yaml:"documents"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Export    Export    `yaml:"export"`
	Logging   Logging   `yaml:"logging"`
}

type Documents struct {
	Source         string `yaml:"source"`
	Dir            string `yaml:"dir"`
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Export struct {
	Schedule string `yaml:"schedule"`
	Days     int    `yaml:"days"`
	Filter   string `yaml:"filter"`
	Dir      string `yaml:"dir"`
	Timezone string `yaml:"timezone"`
	Workers  int    `yaml:"workers"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for morningbrief.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "morningbrief")
}

// DataDir returns the XDG data directory for morningbrief.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "morningbrief")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/morningbrief/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'morningbrief init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Documents: Documents{
			Source:         SourceDir,
			TimeoutSeconds: 10,
		},
		Server: Server{Port: 8000},
		Export: Export{
			Days:     7,
			Filter:   "all",
			Timezone: "Local",
			Workers:  4,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Documents.Source {
	case SourceDir, SourceDB:
	case SourceHTTP:
		if c.Documents.URL == "" {
			return fmt.Errorf("documents.url is required when documents.source is %q", SourceHTTP)
		}
	default:
		return fmt.Errorf("unknown documents.source %q (want dir, http or db)", c.Documents.Source)
	}
	if c.Export.Days < 1 {
		return fmt.Errorf("export.days must be at least 1, got %d", c.Export.Days)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be at least 1, got %d", c.Export.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetDocumentsDir returns the directory read by the dir source.
func (c *Config) GetDocumentsDir() string {
	if c.Documents.Dir != "" {
		return c.Documents.Dir
	}
	return filepath.Join(c.GetDataDir(), "data")
}

// GetExportDir returns where scheduled exports are written.
func (c *Config) GetExportDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return filepath.Join(c.GetDataDir(), "exports")
}

// GetDBPath returns the SQLite database path.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), "morningbrief.db")
}

// Timeout returns the HTTP source timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Documents.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
