package provision

import (
	"fmt"
	"strings"
)

// UnsupportedArchitectureError reports a CPU architecture no Miniconda
// installer exists for. It is returned before any download is attempted.
type UnsupportedArchitectureError struct {
	Arch string
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("unsupported architecture %q (supported: x86_64, amd64, aarch64, arm64)", e.Arch)
}

// VerificationError reports that conda is still not resolvable after the
// installer reported success.
type VerificationError struct {
	Prefix string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("conda is not resolvable after installing into %s", e.Prefix)
}

// DependencyInstallError names the packages that could not be made
// importable, after the missing set has been retried once.
type DependencyInstallError struct {
	Missing []string
}

func (e *DependencyInstallError) Error() string {
	return fmt.Sprintf("dependencies failed to install: %s", strings.Join(e.Missing, ", "))
}
