package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/msauth"
	configFileName = "config.yaml"
)

// Environment variables consulted for flag defaults.
const (
	EnvPRTCookie = "MSAUTH_PRT_COOKIE"
	EnvLogLevel  = "MSAUTH_LOG_LEVEL"
	EnvTenant    = "MSAUTH_TENANT"
)

// GetDefaultConfigPath returns ~/.config/msauth.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath and merges it over the
// built-in configuration. A missing file yields the defaults.
func LoadConfig(configPath string, logger *slog.Logger) (Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	config := GetDefaultConfig()
	configFilePath := filepath.Join(configPath, configFileName)

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("No config.yaml found, using defaults", "path", configFilePath)
			return config, nil
		}
		return Config{}, &ConfigurationError{FilePath: configFilePath, ErrorType: "io", Message: err.Error(), Err: err}
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, &ConfigurationError{FilePath: configFilePath, ErrorType: "parse", Message: err.Error(), Err: err}
	}

	if err := config.merge(file); err != nil {
		return Config{}, &ConfigurationError{FilePath: configFilePath, ErrorType: "validation", Message: err.Error(), Err: err}
	}

	logger.Info("Loaded configuration", "path", configFilePath, "profiles", len(config.Profiles))
	return config, nil
}

// merge applies a configuration file over c.
func (c *Config) merge(file Config) error {
	if file.DefaultProfile != "" {
		c.DefaultProfile = strings.ToLower(file.DefaultProfile)
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.Tenant != "" {
		c.Tenant = file.Tenant
	}

	for name, app := range file.Profiles {
		key := strings.ToLower(name)
		if key == "" {
			return ValidationError{Field: "profiles", Message: "profile name must not be empty"}
		}
		if app.Name == "" {
			app.Name = name
		}
		if err := app.Validate(); err != nil {
			return FormatValidationError("profile", name, err)
		}
		c.Profiles[key] = app
	}

	if _, ok := c.Profiles[c.DefaultProfile]; !ok {
		return ValidationError{Field: "defaultProfile", Value: c.DefaultProfile, Message: "does not name a profile"}
	}
	return nil
}

// Names returns the profile names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named profile (case-insensitive). An empty name selects
// the default profile. The global tenant applies to profiles without one.
func (c Config) Get(name string) (AppConfig, error) {
	if name == "" {
		name = c.DefaultProfile
	}

	app, ok := c.Profiles[strings.ToLower(name)]
	if !ok {
		return AppConfig{}, &ProfileNotFoundError{Name: name, Available: c.Names()}
	}
	if app.Tenant == "" {
		app.Tenant = c.Tenant
	}
	app.Scopes = append([]string(nil), app.Scopes...)
	return app, nil
}

// LoadEnv loads the given .env files into the process environment when they
// exist. Variables already set are not overridden.
func LoadEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback.
func EnvOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
