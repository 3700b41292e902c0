package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks a fully resolved configuration for values the rest of the
// tool cannot work with. It returns a ValidationErrors collection so every
// problem is reported at once.
func Validate(cfg Config) error {
	var errs ValidationErrors

	if strings.TrimSpace(cfg.Env.Name) == "" {
		errs.Add("environment.name", "is required", cfg.Env.Name)
	}
	if strings.TrimSpace(cfg.Env.PythonVersion) == "" {
		errs.Add("environment.python", "is required", cfg.Env.PythonVersion)
	}
	for i, dep := range cfg.Env.Dependencies {
		if strings.TrimSpace(dep.Package) == "" {
			errs.Add(fmt.Sprintf("environment.dependencies[%d].package", i), "is required", dep.Package)
		}
		if strings.TrimSpace(dep.Import) == "" {
			errs.Add(fmt.Sprintf("environment.dependencies[%d].import", i), "is required", dep.Import)
		}
	}

	if strings.TrimSpace(cfg.Conda.Prefix) == "" {
		errs.Add("conda.prefix", "is required", cfg.Conda.Prefix)
	}
	if strings.TrimSpace(cfg.Conda.InstallerBaseURL) == "" {
		errs.Add("conda.installerBaseURL", "is required", cfg.Conda.InstallerBaseURL)
	}

	if strings.TrimSpace(cfg.Deploy.SourceDir) == "" {
		errs.Add("deploy.sourceDir", "is required", cfg.Deploy.SourceDir)
	}
	if strings.TrimSpace(cfg.Deploy.TargetDir) == "" {
		errs.Add("deploy.targetDir", "is required", cfg.Deploy.TargetDir)
	}

	if strings.TrimSpace(cfg.Service.Name) == "" {
		errs.Add("service.name", "is required", cfg.Service.Name)
	} else if !strings.HasSuffix(cfg.Service.Name, ".service") {
		errs.Add("service.name", "must end in .service", cfg.Service.Name)
	}
	if strings.TrimSpace(cfg.Service.UnitDir) == "" {
		errs.Add("service.unitDir", "is required", cfg.Service.UnitDir)
	}
	if cfg.Service.Port < 1 || cfg.Service.Port > 65535 {
		errs.Add("service.port", "must be between 1 and 65535", cfg.Service.Port)
	}
	if cfg.Service.Workers < 1 {
		errs.Add("service.workers", "must be at least 1", cfg.Service.Workers)
	}
	for i, ref := range ParseServices(cfg.Service.Services) {
		if ref.Scope != "user" && ref.Scope != "system" {
			errs.Add(fmt.Sprintf("service.services[%d]", i), "scope must be one of: user, system", ref.Scope)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
