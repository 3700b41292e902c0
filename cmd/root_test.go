package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"comfyctl/internal/deploy"
	"comfyctl/internal/provision"
)

func TestSetVersion(t *testing.T) {
	// Test setting version
	testVersion := "1.2.3-test"
	originalVersion := rootCmd.Version
	defer func() { rootCmd.Version = originalVersion }()

	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}

	if GetVersion() != testVersion {
		t.Errorf("Expected GetVersion to return %s, got %s", testVersion, GetVersion())
	}
}

func TestRootCommand(t *testing.T) {
	// Test root command properties
	if rootCmd.Use != "comfyctl" {
		t.Errorf("Expected Use to be 'comfyctl', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}

	if rootCmd.RunE == nil {
		t.Error("Expected the bare invocation to run the installer")
	}
}

func TestVersionTemplate(t *testing.T) {
	// Create a new command to test version template
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}

	// Set the same version template as in Execute()
	testCmd.SetVersionTemplate(`{{printf "comfyctl version %s\n" .Version}}`)

	// Capture output
	var buf bytes.Buffer
	testCmd.SetOut(&buf)

	// Execute version command
	testCmd.SetArgs([]string{"--version"})
	err := testCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	output := buf.String()
	expected := "comfyctl version 1.0.0\n"
	if output != expected {
		t.Errorf("Expected version output %q, got %q", expected, output)
	}
}

func TestSubcommands(t *testing.T) {
	// Test that subcommands are added
	commands := rootCmd.Commands()

	expectedCommands := []string{"install", "uninstall", "status", "env", "version", "self-update"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	// Test that the global flags are registered
	for _, name := range []string{"config", "debug", "quiet"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("Expected persistent flag --%s to be registered", name)
		}
	}
}

func TestRootCommandCarriesInstallFlags(t *testing.T) {
	// The bare invocation performs an install, so it accepts the install flags.
	for _, name := range []string{"no-reinstall", "no-start", "keep-env", "keep-app", "keep-service-file"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected root command to accept --%s", name)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	// All error kinds map to the general error code
	tests := []struct {
		name string
		err  error
	}{
		{"generic error", errors.New("boom")},
		{"unsupported architecture", &provision.UnsupportedArchitectureError{Arch: "riscv64"}},
		{"verification failure", &provision.VerificationError{Prefix: "/opt/miniconda3"}},
		{"dependency install failure", &provision.DependencyInstallError{Missing: []string{"flask"}}},
		{"missing source", &deploy.MissingSourceError{Path: "/src/app.py"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := getExitCode(tt.err); code != ExitCodeError {
				t.Errorf("Expected exit code %d, got %d", ExitCodeError, code)
			}
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	// Test that help can be generated without error
	var buf bytes.Buffer

	// Create a new command to avoid affecting the global one
	testRootCmd := &cobra.Command{
		Use:   "comfyctl",
		Short: "Install and manage a local ComfyUI dashboard",
		Long: `comfyctl installs, repairs, and removes a local ComfyUI dashboard:
it provisions a Miniconda runtime and a dedicated Python environment,
deploys the dashboard files, and registers a systemd user service.`,
		SilenceUsage: true,
	}

	testRootCmd.SetOut(&buf)
	testRootCmd.SetArgs([]string{"--help"})

	err := testRootCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "comfyctl") {
		t.Errorf("Help output should contain 'comfyctl'. Got: %q", output)
	}

	if !strings.Contains(output, "Miniconda runtime") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}
