// Package registrar renders the dashboard's systemd user unit, installs it,
// and drives the service through systemctl.
package registrar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"

	"comfyctl/internal/config"
	"comfyctl/internal/systemd"
	"comfyctl/internal/template"
	"comfyctl/pkg/logging"
)

const registrarSubsystem = "Registrar"

// The dashboard always runs as a user unit.
const unitScope = "user"

// unitTemplate describes the deployed dashboard service. The PATH override
// puts the managed environment's binaries first so gunicorn and its workers
// resolve inside the environment.
const unitTemplate = `[Unit]
Description=ComfyUI dashboard
After=network-online.target

[Service]
Type=simple
WorkingDirectory={{ .WorkingDirectory }}
Environment={{ printf "BIND_HOST=%s" .BindHost | quote }}
Environment={{ printf "PORT=%d" .Port | quote }}
Environment={{ printf "SERVICES=%s" .Services | quote }}
Environment={{ printf "COMFYUI_DASHBOARD_DIR=%s" .WorkingDirectory | quote }}
Environment="CONDA_PLUGINS_AUTO_ACCEPT_TOS=yes"
Environment={{ printf "PATH=%s:/usr/local/bin:/usr/bin:/bin" .EnvBinDir | quote }}
ExecStart={{ .CondaBinary }} run -n {{ .EnvName }} gunicorn --workers {{ .Workers }} --bind {{ .BindHost }}:{{ .Port }} app:app
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// Registrar installs and controls the dashboard service unit.
type Registrar struct {
	cfg    config.Config
	sysd   *systemd.Client
	engine *template.Engine
}

// New creates a registrar from the resolved configuration.
func New(cfg config.Config, sysd *systemd.Client) *Registrar {
	return &Registrar{cfg: cfg, sysd: sysd, engine: template.New()}
}

// UnitPath returns where the unit file is installed.
func (r *Registrar) UnitPath() string {
	return filepath.Join(r.cfg.Service.UnitDir, r.cfg.Service.Name)
}

// Register renders the unit, validates it, installs it, and reloads the
// manager's configuration cache. The unit file is fully regenerated on every
// call, never merged with a previous one.
func (r *Registrar) Register(ctx context.Context, condaBinary string) error {
	rendered, err := r.renderUnit(condaBinary)
	if err != nil {
		return fmt.Errorf("failed to render unit %s: %w", r.cfg.Service.Name, err)
	}

	options, err := unit.Deserialize(strings.NewReader(rendered))
	if err != nil {
		return fmt.Errorf("rendered unit %s is invalid: %w", r.cfg.Service.Name, err)
	}
	if len(options) == 0 {
		return fmt.Errorf("rendered unit %s is empty", r.cfg.Service.Name)
	}

	path := r.UnitPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create unit directory %s: %w", filepath.Dir(path), err)
	}
	if err := writeAtomic(path, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write unit %s: %w", path, err)
	}
	logging.Info(registrarSubsystem, "Installed unit %s", path)

	if err := r.sysd.DaemonReload(ctx, unitScope); err != nil {
		logging.Warn(registrarSubsystem, "daemon-reload failed: %v", err)
	}
	return nil
}

// Start enables and (re)starts the service. With autoStart false it only
// logs that the step was skipped.
func (r *Registrar) Start(ctx context.Context, autoStart bool) error {
	name := r.cfg.Service.Name

	if !autoStart {
		logging.Info(registrarSubsystem, "Auto start of %s skipped", name)
		return nil
	}

	if err := r.sysd.Enable(ctx, unitScope, name); err != nil {
		return err
	}
	if r.sysd.IsKnown(ctx, unitScope, name) {
		return r.sysd.Restart(ctx, unitScope, name)
	}
	return r.sysd.Start(ctx, unitScope, name)
}

// Unregister stops and disables the service and removes its unit file.
// Stopping and disabling are best-effort since the service may never have
// been registered. Whether the unit is known is decided by asking the
// manager, not by the unit file's existence.
func (r *Registrar) Unregister(ctx context.Context, keepUnitFile bool) error {
	name := r.cfg.Service.Name

	if r.sysd.IsKnown(ctx, unitScope, name) {
		if err := r.sysd.Stop(ctx, unitScope, name); err != nil {
			logging.Warn(registrarSubsystem, "Stopping %s failed: %v", name, err)
		}
		if err := r.sysd.Disable(ctx, unitScope, name); err != nil {
			logging.Warn(registrarSubsystem, "Disabling %s failed: %v", name, err)
		}
	} else {
		logging.Info(registrarSubsystem, "Service %s not known to systemd", name)
	}

	path := r.UnitPath()
	switch {
	case keepUnitFile:
		logging.Info(registrarSubsystem, "Keeping unit file %s", path)
	default:
		err := os.Remove(path)
		switch {
		case os.IsNotExist(err):
			logging.Info(registrarSubsystem, "Unit file %s already absent", path)
		case err != nil:
			return fmt.Errorf("failed to remove unit %s: %w", path, err)
		default:
			logging.Info(registrarSubsystem, "Removed unit file %s", path)
		}
	}

	if err := r.sysd.DaemonReload(ctx, unitScope); err != nil {
		logging.Warn(registrarSubsystem, "daemon-reload failed: %v", err)
	}
	return nil
}

func (r *Registrar) renderUnit(condaBinary string) (string, error) {
	data := map[string]interface{}{
		"WorkingDirectory": r.cfg.Deploy.TargetDir,
		"BindHost":         r.cfg.Service.BindHost,
		"Port":             r.cfg.Service.Port,
		"Services":         r.cfg.Service.Services,
		"EnvBinDir":        filepath.Join(r.cfg.Conda.Prefix, "envs", r.cfg.Env.Name, "bin"),
		"CondaBinary":      condaBinary,
		"EnvName":          r.cfg.Env.Name,
		"Workers":          r.cfg.Service.Workers,
	}
	return r.engine.Render("unit", unitTemplate, data)
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
