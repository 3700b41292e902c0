package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command for displaying the application version.
// The actual version information is typically managed by the root command or a global variable.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of comfyctl",
		Long:  `All software has versions. This is comfyctl's.`,
		Run: func(cmd *cobra.Command, args []string) {
			// rootCmd.Version is expected to be set, typically in root.go during build time.
			v := rootCmd.Version
			if v == "" {
				v = "dev"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "comfyctl version %s\n", v)

			// A development build has no release number; its VCS revision
			// identifies it instead.
			if v == "dev" {
				if rev, dirty, ok := buildRevision(); ok {
					suffix := ""
					if dirty {
						suffix = " (modified)"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "  built from %s%s\n", rev, suffix)
				}
			}
		},
	}
}

// buildRevision reads the VCS revision stamped into the binary, shortened to
// the usual 12 characters.
func buildRevision() (rev string, dirty bool, ok bool) {
	info, readOK := debug.ReadBuildInfo()
	if !readOK {
		return "", false, false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if rev == "" {
		return "", false, false
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return rev, dirty, true
}
