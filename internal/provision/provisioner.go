// Package provision makes sure a working conda runtime, the managed
// environment, and its Python dependencies exist on the host. It reuses an
// installation it can find, repairs a broken shell integration, and only
// downloads the Miniconda installer when nothing usable is present.
package provision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-version"

	"comfyctl/internal/conda"
	"comfyctl/internal/config"
	"comfyctl/internal/execx"
	"comfyctl/internal/fetch"
	"comfyctl/pkg/logging"
)

const provisionSubsystem = "Provisioner"

// minRecommendedVersion is the oldest conda release the pre-accepted TOS
// environment variable is known to work with. Older versions still run, with
// a warning.
const minRecommendedVersion = "24.1.0"

const installTimeout = 15 * time.Minute

var lookPath = exec.LookPath

var goArch = runtime.GOARCH

// Provisioner ensures the conda runtime and the managed environment.
type Provisioner struct {
	cfg     config.Config
	runner  execx.Runner
	fetcher fetch.Fetcher
	client  *conda.Client
}

// New creates a provisioner from the resolved configuration.
func New(cfg config.Config, runner execx.Runner, fetcher fetch.Fetcher) *Provisioner {
	return &Provisioner{cfg: cfg, runner: runner, fetcher: fetcher}
}

// Client returns the conda client adopted by Ensure. It is nil until Ensure
// has succeeded.
func (p *Provisioner) Client() *conda.Client {
	return p.client
}

// Ensure makes conda resolvable, installing Miniconda when necessary.
// Calling it again once conda resolves performs no download or install.
func (p *Provisioner) Ensure(ctx context.Context) error {
	if path, ok := p.resolve(); ok {
		p.adopt(ctx, path)
		return nil
	}

	if dirExists(p.cfg.Conda.Prefix) {
		candidate := filepath.Join(p.cfg.Conda.Prefix, "bin", "conda")
		if isExecutable(candidate) {
			logging.Info(provisionSubsystem, "Repairing conda resolution via %s", candidate)
			p.adopt(ctx, candidate)
			if err := p.client.InitShell(ctx); err != nil {
				logging.Warn(provisionSubsystem, "conda init failed during repair: %v", err)
			}
			return nil
		}
	}

	return p.freshInstall(ctx)
}

// Resolve adopts an existing conda without ever installing one. It reports
// whether a usable binary was found, trying the configured path, the PATH,
// and the installation prefix.
func (p *Provisioner) Resolve(ctx context.Context) bool {
	if path, ok := p.resolve(); ok {
		p.adopt(ctx, path)
		return true
	}
	candidate := filepath.Join(p.cfg.Conda.Prefix, "bin", "conda")
	if isExecutable(candidate) {
		p.adopt(ctx, candidate)
		return true
	}
	return false
}

// EnsureEnvironment creates the managed environment when it does not exist.
func (p *Provisioner) EnsureEnvironment(ctx context.Context) error {
	name := p.cfg.Env.Name

	exists, err := p.client.EnvExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		logging.Info(provisionSubsystem, "Environment %s already exists", name)
		return nil
	}

	logging.Info(provisionSubsystem, "Creating environment %s (python=%s)", name, p.cfg.Env.PythonVersion)
	return p.client.CreateEnv(ctx, name, p.cfg.Env.PythonVersion)
}

// EnsureDependencies installs the declared packages and verifies each one is
// importable. Packages still missing after the install are retried exactly
// once with a single combined install.
func (p *Provisioner) EnsureDependencies(ctx context.Context) error {
	deps := p.cfg.Env.Dependencies
	if len(deps) == 0 {
		return nil
	}
	name := p.cfg.Env.Name

	logging.Info(provisionSubsystem, "Installing dependencies: %s", strings.Join(packageNames(deps), ", "))
	if err := p.client.PipInstall(ctx, name, packageNames(deps)); err != nil {
		return err
	}

	missing := p.missingDependencies(ctx, deps)
	if len(missing) == 0 {
		return nil
	}

	logging.Warn(provisionSubsystem, "Dependencies not importable after install, retrying: %s", strings.Join(packageNames(missing), ", "))
	if err := p.client.PipInstall(ctx, name, packageNames(missing)); err != nil {
		return err
	}

	if still := p.missingDependencies(ctx, missing); len(still) > 0 {
		return &DependencyInstallError{Missing: packageNames(still)}
	}
	return nil
}

// RemoveEnvironment deletes the managed environment. An environment that is
// already absent counts as success.
func (p *Provisioner) RemoveEnvironment(ctx context.Context) error {
	name := p.cfg.Env.Name

	exists, err := p.client.EnvExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		logging.Info(provisionSubsystem, "Environment %s already absent", name)
		return nil
	}
	logging.Info(provisionSubsystem, "Removing environment %s", name)
	return p.client.RemoveEnv(ctx, name)
}

// resolve returns the conda executable, trying the configured binary first
// and the PATH second.
func (p *Provisioner) resolve() (string, bool) {
	if isExecutable(p.cfg.Conda.Binary) {
		return p.cfg.Conda.Binary, true
	}
	if path, err := lookPath("conda"); err == nil {
		return path, true
	}
	return "", false
}

func (p *Provisioner) freshInstall(ctx context.Context) error {
	arch, err := installerArch(goArch)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/Miniconda3-latest-Linux-%s.sh",
		strings.TrimSuffix(p.cfg.Conda.InstallerBaseURL, "/"), arch)
	installerPath := filepath.Join(os.TempDir(), fmt.Sprintf("miniconda-%s.sh", uuid.NewString()))
	defer os.Remove(installerPath)

	logging.Info(provisionSubsystem, "Downloading Miniconda installer from %s", url)
	if err := p.fetcher.Download(ctx, url, installerPath); err != nil {
		return err
	}

	logging.Info(provisionSubsystem, "Installing Miniconda into %s", p.cfg.Conda.Prefix)
	res, err := p.runner.Run(ctx, execx.Spec{
		Name:    "bash",
		Args:    []string{installerPath, "-b", "-u", "-p", p.cfg.Conda.Prefix},
		Timeout: installTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to run the Miniconda installer: %w", err)
	}
	if res.ExitCode != 0 {
		detail := res.Stderr
		if detail == "" {
			detail = res.Stdout
		}
		return fmt.Errorf("miniconda installer failed (exit %d): %s", res.ExitCode, detail)
	}

	path, ok := p.resolve()
	if !ok {
		candidate := filepath.Join(p.cfg.Conda.Prefix, "bin", "conda")
		if isExecutable(candidate) {
			path, ok = candidate, true
		}
	}
	if !ok {
		return &VerificationError{Prefix: p.cfg.Conda.Prefix}
	}

	p.adopt(ctx, path)
	if err := p.client.InitShell(ctx); err != nil {
		logging.Warn(provisionSubsystem, "conda init failed after install: %v", err)
	}
	return nil
}

// adopt binds the conda client to the resolved executable and logs its
// version, warning when it is older than the recommended minimum.
func (p *Provisioner) adopt(ctx context.Context, path string) {
	p.client = conda.NewClient(path, p.runner)

	current, err := p.client.Version(ctx)
	if err != nil {
		logging.Warn(provisionSubsystem, "Could not determine conda version: %v", err)
		return
	}
	logging.Info(provisionSubsystem, "Using conda %s at %s", current, path)

	parsed, err := version.NewVersion(current)
	if err != nil {
		return
	}
	if parsed.LessThan(version.Must(version.NewVersion(minRecommendedVersion))) {
		logging.Warn(provisionSubsystem, "conda %s is older than the recommended minimum %s, consider updating", current, minRecommendedVersion)
	}
}

func (p *Provisioner) missingDependencies(ctx context.Context, deps []config.Dependency) []config.Dependency {
	var missing []config.Dependency
	for _, dep := range deps {
		if !p.client.CheckImport(ctx, p.cfg.Env.Name, dep.Import) {
			missing = append(missing, dep)
		}
	}
	return missing
}

func packageNames(deps []config.Dependency) []string {
	names := make([]string, 0, len(deps))
	for _, dep := range deps {
		names = append(names, dep.Package)
	}
	return names
}

// installerArch maps the host architecture to the Miniconda installer
// artifact name.
func installerArch(arch string) (string, error) {
	switch arch {
	case "x86_64", "amd64":
		return "x86_64", nil
	case "aarch64", "arm64":
		return "aarch64", nil
	default:
		return "", &UnsupportedArchitectureError{Arch: arch}
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
