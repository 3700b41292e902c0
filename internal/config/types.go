package config

import "strings"

// Config is the top-level configuration structure for comfyctl.
type Config struct {
	Conda   CondaConfig   `yaml:"conda"`
	Env     EnvConfig     `yaml:"environment"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Service ServiceConfig `yaml:"service"`
}

// CondaConfig locates the conda runtime and the Miniconda installer.
type CondaConfig struct {
	Binary           string `yaml:"binary,omitempty"`           // Preferred conda binary (default: ~/miniconda3/bin/conda)
	Prefix           string `yaml:"prefix,omitempty"`           // Miniconda installation prefix (default: ~/miniconda3)
	InstallerBaseURL string `yaml:"installerBaseURL,omitempty"` // Base URL hosting the Miniconda installer archives
}

// EnvConfig describes the managed conda environment.
type EnvConfig struct {
	Name          string       `yaml:"name,omitempty"`         // Environment name (default: comfyui-dashboard)
	PythonVersion string       `yaml:"python,omitempty"`       // Pinned interpreter version (default: 3.11)
	Dependencies  []Dependency `yaml:"dependencies,omitempty"` // Python packages the dashboard needs
}

// Dependency is a pip package together with the module name used to verify
// that an import of it succeeds after installation.
type Dependency struct {
	Package string `yaml:"package"`
	Import  string `yaml:"import"`
}

// DeployConfig describes where dashboard artifacts come from and go to.
type DeployConfig struct {
	SourceDir string `yaml:"sourceDir,omitempty"` // Directory holding app.py and friends (default: current directory)
	TargetDir string `yaml:"targetDir,omitempty"` // Deployed directory (default: ~/comfyui-dashboard)
}

// ServiceConfig describes the systemd user service and the dashboard's
// runtime settings that comfyctl enforces on every deploy.
type ServiceConfig struct {
	Name     string `yaml:"name,omitempty"`     // Unit name (default: comfyui-dashboard.service)
	UnitDir  string `yaml:"unitDir,omitempty"`  // systemd user unit directory (default: ~/.config/systemd/user)
	BindHost string `yaml:"bindHost,omitempty"` // Gunicorn bind host (default: 0.0.0.0)
	Port     int    `yaml:"port,omitempty"`     // Gunicorn bind port (default: 8080)
	Services string `yaml:"services,omitempty"` // Monitored services, comma-separated scope:name entries
	Workers  int    `yaml:"workers,omitempty"`  // Gunicorn worker count (default: 2)
}

// ServiceRef identifies one systemd unit the dashboard monitors.
type ServiceRef struct {
	Scope string // "user" or "system"
	Name  string
}

// String renders the reference back into its scope:name form.
func (r ServiceRef) String() string {
	return r.Scope + ":" + r.Name
}

// ParseServices splits a comma-separated SERVICES value into service
// references. Entries without an explicit scope default to the user manager;
// empty entries are skipped.
func ParseServices(raw string) []ServiceRef {
	var refs []ServiceRef
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		scope := "user"
		name := entry
		if before, after, found := strings.Cut(entry, ":"); found {
			scope = strings.TrimSpace(before)
			if scope == "" {
				scope = "user"
			}
			name = strings.TrimSpace(after)
		}
		if name == "" {
			continue
		}
		refs = append(refs, ServiceRef{Scope: scope, Name: name})
	}
	return refs
}
