package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Env.Name = ""
	cfg.Service.Port = 0
	cfg.Service.Workers = 0

	err := Validate(cfg)
	assert.Error(t, err)

	var errs ValidationErrors
	assert.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 3)
}

func TestValidate_Cases(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config passes",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Service.Port = 70000 },
			wantErr: "service.port",
		},
		{
			name:    "service name without suffix",
			mutate:  func(c *Config) { c.Service.Name = "dashboard" },
			wantErr: "must end in .service",
		},
		{
			name:    "dependency without import name",
			mutate:  func(c *Config) { c.Env.Dependencies = []Dependency{{Package: "flask"}} },
			wantErr: "dependencies[0].import",
		},
		{
			name:    "unknown service scope",
			mutate:  func(c *Config) { c.Service.Services = "container:comfyui.service" },
			wantErr: "scope must be one of",
		},
		{
			name:    "empty installer base URL",
			mutate:  func(c *Config) { c.Conda.InstallerBaseURL = "" },
			wantErr: "conda.installerBaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr),
				"error %q should contain %q", err.Error(), tt.wantErr)
		})
	}
}
