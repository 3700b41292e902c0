package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"comfyctl/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/comfyctl"
	configFileName = "config.yaml"
)

// GetDefaultConfigPathOrPanic returns the default config.yaml location.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir, configFileName)
}

// LoadConfig loads configuration from the given config.yaml path, falling
// back to the default location when the path is empty. A missing file is not
// an error: the defaults apply unchanged.
func LoadConfig(configFilePath string) (Config, error) {
	if configFilePath == "" {
		configFilePath = GetDefaultConfigPathOrPanic()
	}
	config := DefaultConfig() // Start with default config

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return Config{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		// config malformed
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}
