// Package config provides configuration management for comfyctl.
//
// Configuration is loaded from a single YAML file, by default
// ~/.config/comfyctl/config.yaml, overridable with the --config flag. The
// file is optional: loading starts from DefaultConfig() and unmarshals the
// file over it, so a missing file simply means defaults.
//
// The configuration covers four areas:
//   - conda: where the Miniconda runtime lives and where its installer
//     is downloaded from
//   - environment: the managed conda environment, its pinned interpreter
//     and Python dependencies
//   - deploy: the dashboard source and target directories
//   - service: the systemd user unit plus the runtime settings (bind host,
//     port, monitored services, worker count) enforced on every deploy
//
// Components never read ambient environment variables; the configuration is
// assembled once in cmd and passed down explicitly.
package config
