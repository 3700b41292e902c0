package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"comfyctl/internal/cli"
	"comfyctl/internal/config"
	"comfyctl/internal/deploy"
	"comfyctl/internal/execx"
	"comfyctl/internal/fetch"
	"comfyctl/internal/provision"
	"comfyctl/internal/registrar"
	"comfyctl/internal/systemd"
	"comfyctl/internal/template"
	"comfyctl/pkg/logging"
)

const orchestratorSubsystem = "Orchestrator"

const lockFileName = ".comfyctl.lock"

// State identifies a phase of the lifecycle run.
type State string

const (
	StateStart         State = "Start"
	StateEnsureRuntime State = "EnsureRuntime"
	StateTeardown      State = "Teardown"
	StateProvision     State = "Provision"
	StateDeploy        State = "Deploy"
	StateRegister      State = "Register"
	StateStartService  State = "StartService"
	StateDone          State = "Done"
)

// Options select the run mode and which resources a teardown keeps.
type Options struct {
	// Reinstall removes the previous installation before provisioning.
	Reinstall bool

	// Uninstall runs only the teardown sequence.
	Uninstall bool

	// Keep flags exempt individual resources from teardown.
	KeepEnv      bool
	KeepApp      bool
	KeepUnitFile bool

	// NoStart skips enabling and starting the service after install.
	NoStart bool
}

// DefaultOptions returns the options of a bare invocation: a full reinstall
// with service start.
func DefaultOptions() Options {
	return Options{Reinstall: true}
}

// Orchestrator drives the provisioner, deployer, and registrar through the
// lifecycle states.
type Orchestrator struct {
	cfg       config.Config
	printer   *cli.Printer
	prov      *provision.Provisioner
	deployer  *deploy.Deployer
	registrar *registrar.Registrar
	engine    *template.Engine

	states []State
}

// New creates an orchestrator. The runner and fetcher are the seams every
// subprocess and download goes through.
func New(cfg config.Config, printer *cli.Printer, runner execx.Runner, fetcher fetch.Fetcher) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		printer:   printer,
		prov:      provision.New(cfg, runner, fetcher),
		deployer:  deploy.New(cfg),
		registrar: registrar.New(cfg, systemd.NewClient(runner)),
		engine:    template.New(),
	}
}

// Run executes one lifecycle invocation.
func (o *Orchestrator) Run(ctx context.Context, opts Options) error {
	runID := uuid.NewString()[:8]
	logging.Info(orchestratorSubsystem, "Run %s (uninstall=%t reinstall=%t)", runID, opts.Uninstall, opts.Reinstall)

	if err := os.MkdirAll(o.cfg.Deploy.TargetDir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory %s: %w", o.cfg.Deploy.TargetDir, err)
	}
	unlock, err := acquireLock(filepath.Join(o.cfg.Deploy.TargetDir, lockFileName))
	if err != nil {
		return err
	}
	defer unlock()

	o.states = nil
	o.enter(StateStart)
	if opts.Uninstall {
		return o.runUninstall(ctx, opts)
	}
	return o.runInstall(ctx, opts)
}

func (o *Orchestrator) runInstall(ctx context.Context, opts Options) error {
	o.enter(StateEnsureRuntime)
	o.printer.Step("Resolving conda runtime")
	if err := o.prov.Ensure(ctx); err != nil {
		return err
	}

	if opts.Reinstall {
		o.enter(StateTeardown)
		o.printer.Step("Removing previous installation")
		if err := o.teardown(ctx, opts); err != nil {
			return err
		}
	}

	o.enter(StateProvision)
	o.printer.Step("Provisioning environment %s", o.cfg.Env.Name)
	if err := o.prov.EnsureEnvironment(ctx); err != nil {
		return err
	}
	if err := o.prov.EnsureDependencies(ctx); err != nil {
		return err
	}

	o.enter(StateDeploy)
	o.printer.Step("Deploying dashboard to %s", o.cfg.Deploy.TargetDir)
	if err := o.deployer.Deploy(ctx); err != nil {
		return err
	}

	o.enter(StateRegister)
	o.printer.Step("Registering service %s", o.cfg.Service.Name)
	if err := o.registrar.Register(ctx, o.prov.Client().Binary()); err != nil {
		return err
	}

	o.enter(StateStartService)
	if opts.NoStart {
		o.printer.Info("Service start skipped")
	} else {
		o.printer.Step("Starting %s", o.cfg.Service.Name)
	}
	if err := o.registrar.Start(ctx, !opts.NoStart); err != nil {
		return err
	}

	o.enter(StateDone)
	o.summarize(opts)
	return nil
}

func (o *Orchestrator) runUninstall(ctx context.Context, opts Options) error {
	// Resolution is best-effort here: uninstalling must never install a
	// runtime just to remove an environment.
	o.enter(StateEnsureRuntime)
	if !o.prov.Resolve(ctx) {
		logging.Warn(orchestratorSubsystem, "conda not resolvable, environment removal will be skipped")
	}

	o.enter(StateTeardown)
	o.printer.Step("Uninstalling ComfyUI dashboard")
	if err := o.teardown(ctx, opts); err != nil {
		return err
	}

	o.enter(StateDone)
	o.printer.Success("Uninstall complete")
	return nil
}

// teardown unwinds the installation: service first, then the deployed
// directory, then the environment. Keep flags exempt single resources.
func (o *Orchestrator) teardown(ctx context.Context, opts Options) error {
	if err := o.registrar.Unregister(ctx, opts.KeepUnitFile); err != nil {
		return err
	}

	// A reinstall clears the artifacts but carries the settings file across,
	// so the generated secret survives. Only an uninstall drops the settings.
	if opts.KeepApp {
		logging.Info(orchestratorSubsystem, "Keeping deploy directory %s", o.cfg.Deploy.TargetDir)
	} else if err := o.deployer.Remove(ctx, !opts.Uninstall); err != nil {
		return err
	}

	switch {
	case opts.KeepEnv:
		logging.Info(orchestratorSubsystem, "Keeping environment %s", o.cfg.Env.Name)
	case o.prov.Client() == nil:
		logging.Warn(orchestratorSubsystem, "Skipping removal of environment %s, conda not resolvable", o.cfg.Env.Name)
	default:
		if err := o.prov.RemoveEnvironment(ctx); err != nil {
			return err
		}
	}
	return nil
}

// summaryTemplate is the post-install report. The last line names the
// systemctl verb that makes sense for the chosen start behavior.
const summaryTemplate = `Directory: {{ .TargetDir }}
Service:   {{ .Service }}
Dashboard: http://{{ .BindHost }}:{{ .Port }}

Next steps:
  comfyctl status
  systemctl --user {{ if .Started }}status{{ else }}start{{ end }} {{ .Service }}`

func (o *Orchestrator) summarize(opts Options) {
	o.printer.Success("ComfyUI dashboard installed")

	out, err := o.engine.Render("summary", summaryTemplate, map[string]interface{}{
		"TargetDir": o.cfg.Deploy.TargetDir,
		"Service":   o.cfg.Service.Name,
		"BindHost":  o.cfg.Service.BindHost,
		"Port":      o.cfg.Service.Port,
		"Started":   !opts.NoStart,
	})
	if err != nil {
		logging.Warn(orchestratorSubsystem, "Failed to render summary: %v", err)
		return
	}
	for _, line := range strings.Split(out, "\n") {
		o.printer.Info("%s", line)
	}
}

func (o *Orchestrator) enter(state State) {
	o.states = append(o.states, state)
	logging.Debug(orchestratorSubsystem, "State: %s", state)
}
