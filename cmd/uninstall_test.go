package cmd

import (
	"testing"
)

func TestUninstallCommand(t *testing.T) {
	// Test uninstall command properties
	if uninstallCmd.Use != "uninstall" {
		t.Errorf("Expected Use to be 'uninstall', got %s", uninstallCmd.Use)
	}

	if uninstallCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if uninstallCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if uninstallCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}
}

func TestUninstallFlags(t *testing.T) {
	// The keep flags exempt resources from removal
	for _, name := range []string{"keep-env", "keep-app", "keep-service-file"} {
		flag := uninstallCmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("Expected flag --%s to be registered", name)
			continue
		}
		if flag.DefValue != "false" {
			t.Errorf("Expected --%s to default to false, got %s", name, flag.DefValue)
		}
	}

	// Install-only flags do not leak onto uninstall
	for _, name := range []string{"no-reinstall", "no-start"} {
		if uninstallCmd.Flags().Lookup(name) != nil {
			t.Errorf("Expected flag --%s not to be registered on uninstall", name)
		}
	}
}
