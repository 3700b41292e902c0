package cmd

import (
	"github.com/spf13/cobra"

	"comfyctl/internal/cli"
	"comfyctl/internal/execx"
	"comfyctl/internal/fetch"
	"comfyctl/internal/orchestrator"
)

// uninstallCmd defines the uninstall command structure.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the ComfyUI dashboard installation",
	Long: `Stops and disables the dashboard service, removes its unit file, the
deployed directory, and the conda environment. Each resource can be kept
with the corresponding --keep flag. Resources that are already absent are
skipped, so uninstalling twice is safe.

Uninstalling never installs anything: when no conda runtime is resolvable
the environment removal is skipped with a warning.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := orchestrator.Options{
		Uninstall:    true,
		KeepEnv:      keepEnv,
		KeepApp:      keepApp,
		KeepUnitFile: keepUnitFile,
	}

	o := orchestrator.New(cfg, cli.NewPrinter(rootQuiet), execx.NewShellRunner(), fetch.New())
	return o.Run(cmd.Context(), opts)
}

func init() {
	uninstallCmd.Flags().BoolVar(&keepEnv, "keep-env", false, "Keep the conda environment")
	uninstallCmd.Flags().BoolVar(&keepApp, "keep-app", false, "Keep the deployed directory")
	uninstallCmd.Flags().BoolVar(&keepUnitFile, "keep-service-file", false, "Keep the systemd unit file")
}
