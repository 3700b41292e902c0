package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"comfyctl/internal/config"
	"comfyctl/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
)

// rootConfigPath overrides the default config file location.
var rootConfigPath string

// rootDebug enables verbose logging across the application.
var rootDebug bool

// rootQuiet suppresses progress output, leaving only errors.
var rootQuiet bool

// rootCmd represents the base command for the comfyctl application.
// Invoked without a subcommand it performs a full install, mirroring the
// behavior of running the installer directly.
var rootCmd = &cobra.Command{
	Use:   "comfyctl",
	Short: "Install and manage a local ComfyUI dashboard",
	Long: `comfyctl installs, repairs, and removes a local ComfyUI dashboard:
it provisions a Miniconda runtime and a dedicated Python environment,
deploys the dashboard files, and registers a systemd user service.

Running comfyctl without a subcommand performs a full install.`,
	Args: cobra.NoArgs,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
	RunE: runInstall,
}

// initLogging configures the global logger from the persistent flags.
func initLogging() {
	level := logging.LevelInfo
	if rootDebug {
		level = logging.LevelDebug
	}
	if rootQuiet {
		level = logging.LevelError
	}
	logging.InitForCLI(level, os.Stderr)
}

// loadConfig resolves and validates the configuration for a command run.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the
// application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "comfyctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the exit code for an error. All failures, including
// the typed provisioning and deployment errors, share the general error code;
// their detail lives in the message.
func getExitCode(err error) int {
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Config file (default is $HOME/.config/comfyctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&rootQuiet, "quiet", false, "Suppress progress output")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	// The bare invocation accepts the install flags too.
	rootCmd.Flags().AddFlagSet(installCmd.Flags())
}
