// Package logging provides a structured logging system for comfyctl with
// level filtering and subsystem tagging.
//
// This package implements a thin wrapper around Go's standard slog package,
// providing consistent logging behavior across the provisioning, deployment,
// and service-registration subsystems.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Usage
//
//	import "comfyctl/pkg/logging"
//
//	// Initialize with Info level logging to stderr
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	// Log messages
//	logging.Info("Provisioner", "conda resolved at %s", path)
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Registrar", "service not known to systemd, skipping stop")
//	logging.Error("Deployer", err, "failed to copy entry point")
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Orchestrator**: lifecycle state machine progress
//   - **Provisioner**: conda runtime, environment, and dependency handling
//   - **Deployer**: artifact copying and settings materialization
//   - **Registrar**: systemd unit rendering and service control
//   - **Fetch**: installer downloads
//   - **ConfigLoader**: configuration loading and validation
//
// The logging system is thread-safe; level filtering happens at the handler
// so filtered-out messages cost no allocation.
package logging
