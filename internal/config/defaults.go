package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultEnvName is the conda environment comfyctl manages.
	DefaultEnvName = "comfyui-dashboard"

	// DefaultPythonVersion is the interpreter pinned into the environment.
	DefaultPythonVersion = "3.11"

	// DefaultServiceName is the systemd user unit supervising the dashboard.
	DefaultServiceName = "comfyui-dashboard.service"

	// DefaultInstallerBaseURL hosts the Miniconda installer archives.
	DefaultInstallerBaseURL = "https://repo.anaconda.com/miniconda"

	// DefaultServices lists the units the dashboard monitors out of the box.
	DefaultServices = "user:comfyui.service,user:comfyui-dashboard.service"
)

// DefaultConfig returns the default configuration with all home-relative
// paths resolved. Every managed path hangs off the user's home directory,
// so not having one is unrecoverable.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user home directory: %w", err))
	}

	return Config{
		Conda: CondaConfig{
			Binary:           filepath.Join(home, "miniconda3", "bin", "conda"),
			Prefix:           filepath.Join(home, "miniconda3"),
			InstallerBaseURL: DefaultInstallerBaseURL,
		},
		Env: EnvConfig{
			Name:          DefaultEnvName,
			PythonVersion: DefaultPythonVersion,
			Dependencies: []Dependency{
				{Package: "flask", Import: "flask"},
				{Package: "gunicorn", Import: "gunicorn"},
				{Package: "python-dotenv", Import: "dotenv"},
			},
		},
		Deploy: DeployConfig{
			SourceDir: ".",
			TargetDir: filepath.Join(home, "comfyui-dashboard"),
		},
		Service: ServiceConfig{
			Name:     DefaultServiceName,
			UnitDir:  filepath.Join(home, ".config", "systemd", "user"),
			BindHost: "0.0.0.0",
			Port:     8080,
			Services: DefaultServices,
			Workers:  2,
		},
	}
}
