package cmd

import (
	"github.com/spf13/cobra"

	"comfyctl/internal/cli"
	"comfyctl/internal/execx"
)

// envOutput selects the rendering of the environment listing.
var envOutput string

// envCmd groups the conda environment subcommands.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect conda environments",
}

// envListCmd lists every conda environment with a health probe, the same
// data the dashboard's environment panel shows.
var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conda environments with a Python health probe",
	Args:  cobra.NoArgs,
	RunE:  runEnvList,
}

func runEnvList(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateOutputFormat(envOutput); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rows := collectEnvRows(cmd.Context(), cfg, execx.NewShellRunner())

	if format := cli.OutputFormat(envOutput); format != cli.OutputFormatTable {
		return renderDocument(cmd.OutOrStdout(), rows, format)
	}
	cli.RenderEnvTable(cmd.OutOrStdout(), rows)
	return nil
}

func init() {
	envListCmd.Flags().StringVarP(&envOutput, "output", "o", "table", "Output format (table, json, yaml)")
	envCmd.AddCommand(envListCmd)
}
