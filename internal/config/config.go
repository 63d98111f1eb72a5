// Package config loads the server configuration from a YAML file and
// command line flags, and watches the file for changes.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	SnapshotThreshold int
	AllowedOrigins    []string
	MetricsEnabled    bool
}

// FileConfig represents the structure of the configuration file.
type FileConfig struct {
	Server struct {
		Addr              string `yaml:"addr"`
		ReadHeaderTimeout string `yaml:"read_header_timeout"`
		ShutdownTimeout   string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		SnapshotThreshold *int `yaml:"snapshot_threshold"`
	} `yaml:"storage"`

	WebSocket struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"websocket"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		SnapshotThreshold: 100,
		MetricsEnabled:    true,
	}
}

// LoadConfig loads configuration from a YAML file on top of Default.
// An empty path returns the defaults.
func LoadConfig(filePath string) (*Config, error) {
	config := Default()

	if filePath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var fileConfig FileConfig
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if fileConfig.Server.Addr != "" {
		config.Addr = fileConfig.Server.Addr
	}

	if config.ReadHeaderTimeout, err = duration(fileConfig.Server.ReadHeaderTimeout, config.ReadHeaderTimeout); err != nil {
		return nil, fmt.Errorf("invalid read_header_timeout: %w", err)
	}

	if config.ShutdownTimeout, err = duration(fileConfig.Server.ShutdownTimeout, config.ShutdownTimeout); err != nil {
		return nil, fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	if fileConfig.Storage.SnapshotThreshold != nil {
		config.SnapshotThreshold = *fileConfig.Storage.SnapshotThreshold
	}

	if len(fileConfig.WebSocket.AllowedOrigins) > 0 {
		config.AllowedOrigins = fileConfig.WebSocket.AllowedOrigins
	}

	if fileConfig.Metrics.Enabled != nil {
		config.MetricsEnabled = *fileConfig.Metrics.Enabled
	}

	return config, nil
}

func duration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}

	return time.ParseDuration(s)
}

// SaveDefaultConfig writes the default configuration to filePath.
func SaveDefaultConfig(filePath string) error {
	def := Default()

	var fileConfig FileConfig

	fileConfig.Server.Addr = def.Addr
	fileConfig.Server.ReadHeaderTimeout = def.ReadHeaderTimeout.String()
	fileConfig.Server.ShutdownTimeout = def.ShutdownTimeout.String()
	fileConfig.Storage.SnapshotThreshold = &def.SnapshotThreshold
	fileConfig.WebSocket.AllowedOrigins = []string{}
	fileConfig.Metrics.Enabled = &def.MetricsEnabled

	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("error creating default config: %w", err)
	}

	content := "# docpatch server configuration\n" +
		"# storage.snapshot_threshold is reloaded while the server runs\n\n" +
		string(data)

	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Options are the parsed command line flags.
type Options struct {
	ConfigPath     string
	GenerateConfig bool
	Config         *Config
}

// ParseFlags parses args, loads the config file they name and applies the
// flag overrides. A missing config file falls back to the defaults.
func ParseFlags(args []string) (*Options, error) {
	fs := flag.NewFlagSet("docpatch", flag.ContinueOnError)

	configPath := fs.String("config", "", "Path to configuration file")
	generate := fs.Bool("generate-config", false, "Write a default configuration file to -config and exit")
	addr := fs.String("addr", "", "Address to listen on (overrides config)")
	threshold := fs.Int("snapshot-threshold", -1, "Snapshot every N history steps, 0 disables (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &Options{ConfigPath: *configPath, GenerateConfig: *generate}

	if opts.GenerateConfig {
		opts.Config = Default()

		return opts, nil
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		log.Printf("config file %s not found, using defaults", *configPath)

		config = Default()
	}

	if *addr != "" {
		config.Addr = *addr
	}

	if *threshold >= 0 {
		config.SnapshotThreshold = *threshold
	}

	opts.Config = config

	return opts, nil
}
