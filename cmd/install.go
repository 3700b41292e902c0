package cmd

import (
	"github.com/spf13/cobra"

	"comfyctl/internal/cli"
	"comfyctl/internal/execx"
	"comfyctl/internal/fetch"
	"comfyctl/internal/orchestrator"
)

// installNoReinstall skips the teardown of a previous installation.
var installNoReinstall bool

// installNoStart skips enabling and starting the service after install.
var installNoStart bool

// Keep flags exempt individual resources from teardown. They are shared with
// the uninstall command.
var (
	keepEnv      bool
	keepApp      bool
	keepUnitFile bool
)

// installCmd defines the install command structure. It is also the behavior
// of a bare comfyctl invocation.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the ComfyUI dashboard and start its service",
	Long: `Installs the ComfyUI dashboard end to end: resolves or installs a
Miniconda runtime, removes any previous installation (reinstall semantics,
disable with --no-reinstall), creates the Python environment with the
dashboard's dependencies, deploys the dashboard files, registers the systemd
user unit, and starts the service.

Settings in the deployed .env survive reinstalls; the session secret is
generated once and preserved until the dashboard is uninstalled.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

// runInstall is the entry point for both the install command and the bare
// invocation.
func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := orchestrator.DefaultOptions()
	opts.Reinstall = !installNoReinstall
	opts.NoStart = installNoStart
	opts.KeepEnv = keepEnv
	opts.KeepApp = keepApp
	opts.KeepUnitFile = keepUnitFile

	o := orchestrator.New(cfg, cli.NewPrinter(rootQuiet), execx.NewShellRunner(), fetch.New())
	return o.Run(cmd.Context(), opts)
}

func init() {
	installCmd.Flags().BoolVar(&installNoReinstall, "no-reinstall", false, "Keep the previous installation in place instead of tearing it down first")
	installCmd.Flags().BoolVar(&installNoStart, "no-start", false, "Do not enable or start the service after installing")
	installCmd.Flags().BoolVar(&keepEnv, "keep-env", false, "Teardown keeps the conda environment")
	installCmd.Flags().BoolVar(&keepApp, "keep-app", false, "Teardown keeps the deployed directory")
	installCmd.Flags().BoolVar(&keepUnitFile, "keep-service-file", false, "Teardown keeps the systemd unit file")
}
