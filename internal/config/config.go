package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Outburn-IL/fhir-validator/internal/api"
)

// appName names the per-user config and data directories.
const appName = "fhir-validator"

// projectFiles are the project config names, in lookup order.
var projectFiles = []string{".fhirvalidator.json", ".fhirvalidator.yaml", ".fhirvalidator.yml"}

// Config holds all configurable settings.
type Config struct {
	// Server process
	Port      int    `json:"port,omitempty" yaml:"port,omitempty"`
	JavaPath  string `json:"java_path,omitempty" yaml:"java_path,omitempty"`
	JarPath   string `json:"jar_path,omitempty" yaml:"jar_path,omitempty"`
	MinHeap   string `json:"min_heap,omitempty" yaml:"min_heap,omitempty"`
	MaxHeap   string `json:"max_heap,omitempty" yaml:"max_heap,omitempty"`
	KeepAlive string `json:"keep_alive,omitempty" yaml:"keep_alive,omitempty"` // Go duration, e.g. "55m"

	// Validation options sent with every request
	SV       string   `json:"sv,omitempty" yaml:"sv,omitempty"`
	IGs      []string `json:"igs,omitempty" yaml:"igs,omitempty"`
	TxServer string   `json:"tx_server,omitempty" yaml:"tx_server,omitempty"` // "n/a" disables terminology checks
	Locale   string   `json:"locale,omitempty" yaml:"locale,omitempty"`

	// CLI
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty"`
	DefaultFormat  string   `json:"default_format,omitempty" yaml:"default_format,omitempty"` // "markdown" | "json"
	OutputDir      string   `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	LogLevel       string   `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Port:           3500,
		MinHeap:        "4G",
		MaxHeap:        "100G",
		KeepAlive:      "55m",
		SV:             "4.0.1",
		DefaultFormat:  "markdown",
		LogLevel:       "info",
		IgnorePatterns: []string{},
	}
}

// KeepAliveInterval parses KeepAlive.
func (c Config) KeepAliveInterval() (time.Duration, error) {
	if c.KeepAlive == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.KeepAlive)
	if err != nil {
		return 0, fmt.Errorf("invalid keep_alive %q: %w", c.KeepAlive, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid keep_alive %q: must be positive", c.KeepAlive)
	}
	return d, nil
}

// CLIContext returns the validation options sent to the server.
func (c Config) CLIContext() api.CLIContext {
	return api.CLIContext{
		SV:       c.SV,
		IGs:      c.IGs,
		TxServer: c.TxServer,
		Locale:   c.Locale,
	}
}

// ConfigDir returns the per-user config directory:
// $XDG_CONFIG_HOME/fhir-validator or ~/.config/fhir-validator.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// DataDir returns the per-user data directory:
// $XDG_DATA_HOME/fhir-validator or ~/.local/share/fhir-validator.
func DataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, appName), nil
}

func globalPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GlobalExists reports whether the per-user config file is present on disk.
func GlobalExists() bool {
	path, err := globalPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// LoadGlobal reads the per-user config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := globalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads the first project config file found in dir
// (.fhirvalidator.json, .fhirvalidator.yaml, .fhirvalidator.yml).
// Returns nil (no error) if none exists.
func LoadProject(dir string) (*Config, error) {
	for _, name := range projectFiles {
		cfg, err := loadFile(filepath.Join(dir, name), false)
		if err != nil || cfg != nil {
			return cfg, err
		}
	}
	return nil, nil
}

// SaveGlobal writes cfg to the per-user config.json, creating the directory if needed.
func SaveGlobal(cfg *Config) error {
	path, err := globalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// loadFile reads and parses a JSON or YAML config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	overlay(&result, global)
	overlay(&result, project)
	return result
}

// overlay copies every set field of src onto dst.
func overlay(dst, src *Config) {
	if src == nil {
		return
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	setString(&dst.JavaPath, src.JavaPath)
	setString(&dst.JarPath, src.JarPath)
	setString(&dst.MinHeap, src.MinHeap)
	setString(&dst.MaxHeap, src.MaxHeap)
	setString(&dst.KeepAlive, src.KeepAlive)
	setString(&dst.SV, src.SV)
	setString(&dst.TxServer, src.TxServer)
	setString(&dst.Locale, src.Locale)
	setString(&dst.DefaultFormat, src.DefaultFormat)
	setString(&dst.OutputDir, src.OutputDir)
	setString(&dst.LogLevel, src.LogLevel)
	if len(src.IGs) > 0 {
		dst.IGs = src.IGs
	}
	if len(src.IgnorePatterns) > 0 {
		dst.IgnorePatterns = src.IgnorePatterns
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
