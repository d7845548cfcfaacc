package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/maloquacious/momentum/internal/logger"
	"github.com/maloquacious/momentum/internal/store"
	"github.com/pelletier/go-toml/v2"
)

const (
	// EnvConfigPath names the environment variable holding a config file path.
	EnvConfigPath = "MOMENTUM_CONFIG"

	// LocalConfigPath is checked relative to the working directory.
	LocalConfigPath = "config.toml"

	// SystemConfigPath is the fallback when no other config file is found.
	SystemConfigPath = "/etc/momentum/config.toml"
)

var (
	// ErrNotFound is returned when the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrInvalid is returned when the configuration fails validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the root of config.toml.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Application ApplicationConfig `toml:"application"`
	Logging     LoggingConfig     `toml:"logging"`
}

// ServerConfig is the HTTP listen address.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// DatabaseConfig locates the SQLite file. Relative paths resolve against
// the working directory.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ApplicationConfig holds presentation settings.
type ApplicationConfig struct {
	Name string `toml:"name"`
}

// LoggingConfig holds the minimum log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used for keys absent from the file.
func Default() Config {
	return Config{
		Server:      ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database:    DatabaseConfig{Path: store.DefaultDBFile},
		Application: ApplicationConfig{Name: "Momentum"},
		Logging:     LoggingConfig{Level: "info"},
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML from r over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return Config{}, fmt.Errorf("failed to parse TOML configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is empty", ErrInvalid)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalid, err)
	}
	return nil
}

// DatabaseURL returns the connection descriptor for the configured path.
// The path is not resolved; relative paths stay relative.
func (c Config) DatabaseURL() string {
	return store.Scheme + ":" + c.Database.Path
}

// Addr returns the host:port the HTTP server listens on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Find returns the configuration file to load, using the first match of:
//  1. flagPath, if set and present
//  2. $MOMENTUM_CONFIG, if set and present
//  3. ./config.toml
//  4. /etc/momentum/config.toml
//
// Explicitly requested paths that are missing are reported through log.
func Find(flagPath string, log logger.Logger) string {
	if flagPath != "" {
		if fileExists(flagPath) {
			return flagPath
		}
		log.Warn("specified config file not found: %s", flagPath)
	}

	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if fileExists(envPath) {
			return envPath
		}
		log.Warn("config file from %s not found: %s", EnvConfigPath, envPath)
	}

	if fileExists(LocalConfigPath) {
		return LocalConfigPath
	}

	return SystemConfigPath
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
