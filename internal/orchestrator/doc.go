// Package orchestrator sequences the install and uninstall lifecycle of the
// ComfyUI dashboard.
//
// Every invocation walks a fresh state machine:
//
//	Start → EnsureRuntime → (Teardown) → Provision → Deploy → Register → StartService → Done
//
// with the shorter uninstall path
//
//	Start → EnsureRuntime → Teardown → Done
//
// The teardown phase runs by default before provisioning (reinstall
// semantics) and can be skipped or trimmed through Options. A reinstall
// teardown carries the settings file across, so the generated secret is
// stable across installs; an uninstall removes it with the rest. Each
// teardown substep treats an already absent resource as success, so repeated
// installs and uninstalls converge instead of failing.
//
// An advisory flock file inside the target directory guards against two
// invocations mutating the same installation at once. The lock is a
// hardening measure, not a guarantee: teardown removes the target directory
// and the lock file with it.
package orchestrator
