package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"comfyctl/internal/cli"
	"comfyctl/internal/config"
	"comfyctl/internal/envfile"
	"comfyctl/internal/execx"
	"comfyctl/internal/fetch"
	"comfyctl/internal/provision"
	"comfyctl/internal/systemd"
	"comfyctl/pkg/logging"
)

// watchInterval is how often the watch mode refreshes even without file
// changes; service states change without touching any watched file.
const watchInterval = 5 * time.Second

// statusOutput selects the rendering of the status report.
var statusOutput string

// statusWatch keeps re-rendering the report until interrupted.
var statusWatch bool

// statusCmd defines the status command structure. It is the monitoring
// page of the dashboard as a CLI view.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show conda environments, service states, and settings",
	Long: `Shows the health of the installation: every conda environment with a
Python probe, the activation state of each configured service, and the
deployed settings.

Secret-like settings are masked unless the deployed MASK_SECRETS setting
turns masking off. The service list comes from the deployed settings when
present, falling back to the configuration.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// statusReport is the collected state of the installation.
type statusReport struct {
	Environments []cli.EnvRow     `json:"environments" yaml:"environments"`
	Services     []cli.ServiceRow `json:"services" yaml:"services"`
	Settings     []cli.SettingRow `json:"settings" yaml:"settings"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(statusOutput); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runner := execx.NewShellRunner()

	if statusWatch {
		return watchStatus(cmd, cfg, runner)
	}

	report := collectStatus(cmd.Context(), cfg, runner)
	return renderStatus(cmd.OutOrStdout(), report, cli.OutputFormat(statusOutput))
}

// collectStatus gathers the report. Every probe is best-effort: a missing
// settings file, an unresolvable conda, or an unreachable service manager
// shrink the report instead of failing it.
func collectStatus(ctx context.Context, cfg config.Config, runner execx.Runner) *statusReport {
	report := &statusReport{}

	var settings *envfile.Document
	settingsPath := filepath.Join(cfg.Deploy.TargetDir, ".env")
	if doc, err := envfile.Load(settingsPath); err == nil {
		settings = doc
	} else {
		logging.Debug("Status", "No settings at %s: %v", settingsPath, err)
	}

	services := cfg.Service.Services
	maskValue, maskPresent := "", false
	if settings != nil {
		if v, ok := settings.Get("SERVICES"); ok && v != "" {
			services = v
		}
		maskValue, maskPresent = settings.Get("MASK_SECRETS")
	}
	refs := config.ParseServices(services)
	masked := cli.MaskEnabled(maskValue, maskPresent)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		report.Environments = collectEnvRows(gctx, cfg, runner)
		return nil
	})

	sysd := systemd.NewClient(runner)
	serviceRows := make([]cli.ServiceRow, len(refs))
	for i, ref := range refs {
		g.Go(func() error {
			serviceRows[i] = cli.ServiceRow{
				Scope:  ref.Scope,
				Name:   ref.Name,
				Status: sysd.IsActive(gctx, ref.Scope, ref.Name),
			}
			return nil
		})
	}

	// The probes never return errors, they degrade to "unknown" states.
	_ = g.Wait()
	report.Services = serviceRows

	if settings != nil {
		for _, key := range settings.Keys() {
			value, _ := settings.Get(key)
			report.Settings = append(report.Settings, cli.SettingRow{
				Key:   key,
				Value: cli.MaskValue(key, value, masked),
			})
		}
	}
	return report
}

// collectEnvRows lists the conda environments and probes each one's Python.
// Shared with the env list command.
func collectEnvRows(ctx context.Context, cfg config.Config, runner execx.Runner) []cli.EnvRow {
	p := provision.New(cfg, runner, fetch.New())
	if !p.Resolve(ctx) {
		logging.Warn("Status", "conda not resolvable, no environments to show")
		return nil
	}

	envs, err := p.Client().ListEnvs(ctx)
	if err != nil {
		logging.Warn("Status", "Failed to list environments: %v", err)
		return nil
	}

	rows := make([]cli.EnvRow, len(envs))
	for i, env := range envs {
		banner, healthy := p.Client().ProbePython(ctx, env.Name)
		rows[i] = cli.EnvRow{Name: env.Name, Prefix: env.Prefix, Python: banner, Healthy: healthy}
	}
	return rows
}

func renderStatus(out io.Writer, report *statusReport, format cli.OutputFormat) error {
	switch format {
	case cli.OutputFormatJSON, cli.OutputFormatYAML:
		return renderDocument(out, report, format)
	default:
		cli.RenderEnvTable(out, report.Environments)
		cli.RenderServiceTable(out, report.Services)
		cli.RenderSettingsTable(out, report.Settings)
		return nil
	}
}

// renderDocument marshals a report or a row slice for the non-table formats.
func renderDocument(out io.Writer, doc interface{}, format cli.OutputFormat) error {
	switch format {
	case cli.OutputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case cli.OutputFormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return fmt.Errorf("format %s is not a document format", format)
	}
}

// watchStatus re-renders the report whenever the deployed directory changes
// and on a fixed interval, until interrupted.
func watchStatus(cmd *cobra.Command, cfg config.Config, runner execx.Runner) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// The directories may not exist yet; the ticker still refreshes.
	for _, dir := range []string{cfg.Deploy.TargetDir, cfg.Service.UnitDir} {
		if err := watcher.Add(dir); err != nil {
			logging.Debug("Status", "Not watching %s: %v", dir, err)
		}
	}

	out := cmd.OutOrStdout()
	render := func() error {
		fmt.Fprint(out, "\033[2J\033[H")
		report := collectStatus(ctx, cfg, runner)
		if err := renderStatus(out, report, cli.OutputFormat(statusOutput)); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nEvery %s. Press Ctrl-C to stop.\n", watchInterval)
		return nil
	}

	if err := render(); err != nil {
		return err
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := render(); err != nil {
				return err
			}
		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				if err := render(); err != nil {
					return err
				}
			}
		case err := <-watcher.Errors:
			logging.Debug("Status", "Watcher error: %v", err)
		}
	}
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table, json, yaml)")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Keep refreshing the status until interrupted")
}
