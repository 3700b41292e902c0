package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, filename string, content Config) string {
	t.Helper()
	tempFilePath := filepath.Join(dir, filename)
	data, err := yaml.Marshal(&content)
	require.NoError(t, err)
	err = os.WriteFile(tempFilePath, data, 0644)
	require.NoError(t, err)
	return tempFilePath
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	tempDir := t.TempDir()

	loadedConfig, err := LoadConfig(filepath.Join(tempDir, "does-not-exist.yaml"))
	assert.NoError(t, err)

	defaults := DefaultConfig()
	assert.Equal(t, defaults.Env.Name, loadedConfig.Env.Name)
	assert.Equal(t, defaults.Service.Port, loadedConfig.Service.Port)
	assert.Equal(t, defaults.Service.Services, loadedConfig.Service.Services)
	assert.Equal(t, defaults.Conda.InstallerBaseURL, loadedConfig.Conda.InstallerBaseURL)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()

	override := Config{
		Service: ServiceConfig{
			BindHost: "127.0.0.1",
			Port:     9090,
		},
	}
	path := createTempConfigFile(t, tempDir, configFileName, override)

	loadedConfig, err := LoadConfig(path)
	assert.NoError(t, err)

	// Overridden fields take the file's values
	assert.Equal(t, "127.0.0.1", loadedConfig.Service.BindHost)
	assert.Equal(t, 9090, loadedConfig.Service.Port)

	// Untouched fields keep their defaults
	defaults := DefaultConfig()
	assert.Equal(t, defaults.Env.Name, loadedConfig.Env.Name)
	assert.Equal(t, defaults.Deploy.TargetDir, loadedConfig.Deploy.TargetDir)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, configFileName)
	err := os.WriteFile(path, []byte("service: [not: a: mapping"), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "miniconda3"), cfg.Conda.Prefix)
	assert.Equal(t, filepath.Join(home, "miniconda3", "bin", "conda"), cfg.Conda.Binary)
	assert.Equal(t, filepath.Join(home, "comfyui-dashboard"), cfg.Deploy.TargetDir)
	assert.Equal(t, filepath.Join(home, ".config", "systemd", "user"), cfg.Service.UnitDir)
	assert.Len(t, cfg.Env.Dependencies, 3)
}
