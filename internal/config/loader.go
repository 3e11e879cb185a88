package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mcphub/pkg/logging"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	envFileName    = ".env"
)

// LoadConfig loads configuration from the given directory. The directory
// may contain config.yaml, an optional .env file (merged into the process
// environment without overriding existing variables) and the API-tool
// definition file referenced by apiToolsFile.
func LoadConfig(configDir string) (HubConfig, error) {
	// Merge .env first so ${env.*} substitution in API tools sees it.
	envPath := filepath.Join(configDir, envFileName)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return HubConfig{}, fmt.Errorf("error loading %s: %w", envPath, err)
		}
		logging.Info("ConfigLoader", "Loaded environment from %s", envPath)
	}

	config := GetDefaultConfig()

	configFilePath := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return HubConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return HubConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return HubConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	// Resolve the API-tool file relative to the config directory.
	if config.APIToolsFile != "" && !filepath.IsAbs(config.APIToolsFile) {
		config.APIToolsFile = filepath.Join(configDir, config.APIToolsFile)
	}

	return config, nil
}

// LoadAPITools reads the HTTP-tool definition file.
func LoadAPITools(path string) (APIToolsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return APIToolsConfig{}, fmt.Errorf("error reading API tool config %s: %w", path, err)
	}
	var cfg APIToolsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return APIToolsConfig{}, fmt.Errorf("error parsing API tool config %s: %w", path, err)
	}
	for i := range cfg.Tools {
		applyAPIToolDefaults(&cfg.Tools[i])
	}
	if err := ValidateAPITools(&cfg); err != nil {
		return APIToolsConfig{}, fmt.Errorf("invalid API tool config %s: %w", path, err)
	}
	logging.Info("ConfigLoader", "Loaded %d API tool definitions from %s", len(cfg.Tools), path)
	return cfg, nil
}

func applyDefaults(config *HubConfig) {
	if config.HTTP.Host == "" {
		config.HTTP.Host = DefaultHost
	}
	if config.HTTP.Port == 0 {
		config.HTTP.Port = DefaultPort
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
}

func applyAPIToolDefaults(tool *APIToolConfig) {
	if tool.Request.Method == "" {
		tool.Request.Method = "GET"
	}
	if tool.Request.TimeoutSeconds == 0 {
		tool.Request.TimeoutSeconds = DefaultAPIToolTimeoutSeconds
	}
	if tool.Cache.Enabled && tool.Cache.TTLSeconds == 0 {
		tool.Cache.TTLSeconds = DefaultAPIToolCacheTTL
	}
}
