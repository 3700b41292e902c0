// Package deploy places the dashboard artifacts into the target directory
// and materializes its settings file. Deployment is idempotent: files present
// in the source overwrite their deployed counterparts, user-managed settings
// survive, and the enforced settings are reasserted on every run.
package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"comfyctl/internal/config"
	"comfyctl/internal/envfile"
	"comfyctl/pkg/logging"
)

const deploySubsystem = "Deployer"

// entryPoint must exist in the source directory for a deploy to proceed.
const entryPoint = "app.py"

// optionalArtifacts are copied when the source provides them.
var optionalArtifacts = []string{
	filepath.Join("templates", "index.html"),
	filepath.Join("static", "style.css"),
	".env.example",
}

// MissingSourceError reports that the source directory has no dashboard to
// deploy. The target is left untouched when this happens.
type MissingSourceError struct {
	Path string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source entry point %s does not exist", e.Path)
}

// Deployer copies dashboard artifacts and maintains the settings file.
type Deployer struct {
	source  string
	target  string
	service config.ServiceConfig
}

// New creates a deployer from the resolved configuration.
func New(cfg config.Config) *Deployer {
	return &Deployer{
		source:  cfg.Deploy.SourceDir,
		target:  cfg.Deploy.TargetDir,
		service: cfg.Service,
	}
}

// Target returns the deploy directory.
func (d *Deployer) Target() string {
	return d.target
}

// Deploy copies the dashboard into the target directory and materializes its
// settings. The source must contain app.py; everything else is optional.
func (d *Deployer) Deploy(ctx context.Context) error {
	entry := filepath.Join(d.source, entryPoint)
	if _, err := os.Stat(entry); err != nil {
		if os.IsNotExist(err) {
			return &MissingSourceError{Path: entry}
		}
		return fmt.Errorf("failed to inspect source %s: %w", entry, err)
	}

	for _, dir := range []string{d.target, filepath.Join(d.target, "templates"), filepath.Join(d.target, "static")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := d.copyArtifact(entryPoint); err != nil {
		return err
	}
	for _, rel := range optionalArtifacts {
		if !fileExists(filepath.Join(d.source, rel)) {
			continue
		}
		if err := d.copyArtifact(rel); err != nil {
			return err
		}
	}

	return d.materializeSettings()
}

// Remove deletes the deployed directory. An already absent directory counts
// as success. With keepSettings the settings file is carried across the
// removal, so a reinstall clears the artifacts without losing the generated
// secret; only a real uninstall drops the settings.
func (d *Deployer) Remove(ctx context.Context, keepSettings bool) error {
	if _, err := os.Stat(d.target); os.IsNotExist(err) {
		logging.Info(deploySubsystem, "Deploy directory %s already absent", d.target)
		return nil
	}

	settingsPath := filepath.Join(d.target, ".env")
	var settings []byte
	if keepSettings && fileExists(settingsPath) {
		data, err := os.ReadFile(settingsPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", settingsPath, err)
		}
		settings = data
	}

	if err := os.RemoveAll(d.target); err != nil {
		return fmt.Errorf("failed to remove %s: %w", d.target, err)
	}
	if settings == nil {
		logging.Info(deploySubsystem, "Removed deploy directory %s", d.target)
		return nil
	}

	if err := os.MkdirAll(d.target, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", d.target, err)
	}
	if err := os.WriteFile(settingsPath, settings, 0600); err != nil {
		return fmt.Errorf("failed to restore settings %s: %w", settingsPath, err)
	}
	logging.Info(deploySubsystem, "Removed deploy directory %s, kept settings", d.target)
	return nil
}

func (d *Deployer) copyArtifact(rel string) error {
	src := filepath.Join(d.source, rel)
	dst := filepath.Join(d.target, rel)

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read artifact %s: %w", src, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat artifact %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", dst, err)
	}
	logging.Debug(deploySubsystem, "Copied %s", rel)
	return nil
}

// materializeSettings builds the deployed .env. Precedence: a source .env is
// taken verbatim, then an already deployed .env survives, then a deployed
// .env.example seeds it, and as a last resort the recognized settings are
// synthesized from configuration. The enforced keys are set afterwards in
// every case.
func (d *Deployer) materializeSettings() error {
	settingsPath := filepath.Join(d.target, ".env")
	sourceSettings := filepath.Join(d.source, ".env")
	deployedExample := filepath.Join(d.target, ".env.example")

	var doc *envfile.Document
	switch {
	case fileExists(sourceSettings):
		data, err := os.ReadFile(sourceSettings)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", sourceSettings, err)
		}
		doc = envfile.Parse(data)
		logging.Info(deploySubsystem, "Using settings from %s", sourceSettings)

	case fileExists(settingsPath):
		var err error
		doc, err = envfile.Load(settingsPath)
		if err != nil {
			return err
		}
		logging.Info(deploySubsystem, "Keeping existing settings at %s", settingsPath)

	case fileExists(deployedExample):
		data, err := os.ReadFile(deployedExample)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", deployedExample, err)
		}
		doc = envfile.Parse(data)
		logging.Info(deploySubsystem, "Seeding settings from %s", deployedExample)

	default:
		doc = d.synthesizeSettings()
		logging.Info(deploySubsystem, "Synthesizing settings at %s", settingsPath)
	}

	doc.Set("BIND_HOST", d.service.BindHost)
	doc.Set("PORT", strconv.Itoa(d.service.Port))
	doc.Set("SERVICES", d.service.Services)

	if secret, ok := doc.Get("SECRET_KEY"); !ok || secret == "" {
		doc.Set("SECRET_KEY", NewSecret())
		logging.Info(deploySubsystem, "Generated new session secret")
	}

	return doc.WriteFile(settingsPath, 0600)
}

func (d *Deployer) synthesizeSettings() *envfile.Document {
	doc := envfile.New()
	doc.Set("BIND_HOST", d.service.BindHost)
	doc.Set("PORT", strconv.Itoa(d.service.Port))
	doc.Set("SERVICES", d.service.Services)
	doc.Set("SECRET_KEY", "")
	doc.Set("MASK_SECRETS", "true")
	doc.Set("ACTION_TOKEN", "")
	return doc
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
