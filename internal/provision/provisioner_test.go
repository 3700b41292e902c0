package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comfyctl/internal/conda"
	"comfyctl/internal/config"
	"comfyctl/internal/execx"
	"comfyctl/internal/fetch"
	"comfyctl/pkg/logging"
)

type fakeRunner struct {
	calls   []execx.Spec
	handler func(spec execx.Spec) (execx.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, spec execx.Spec) (execx.Result, error) {
	f.calls = append(f.calls, spec)
	if f.handler == nil {
		return execx.Result{}, nil
	}
	return f.handler(spec)
}

type fakeFetcher struct {
	downloads  []string
	onDownload func(url, destPath string) error
}

func (f *fakeFetcher) Download(ctx context.Context, url, destPath string) error {
	f.downloads = append(f.downloads, url)
	if f.onDownload != nil {
		return f.onDownload(url, destPath)
	}
	return nil
}

func argsOf(spec execx.Spec) string {
	return strings.Join(spec.Args, " ")
}

func testConfig(t *testing.T) config.Config {
	t.Helper()

	prefix := filepath.Join(t.TempDir(), "miniconda3")
	cfg := config.DefaultConfig()
	cfg.Conda.Prefix = prefix
	cfg.Conda.Binary = filepath.Join(prefix, "bin", "conda")
	return cfg
}

func writeExecutable(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
}

// disablePathLookup keeps a conda on the test machine's PATH from leaking
// into resolution.
func disablePathLookup(t *testing.T) {
	t.Helper()

	original := lookPath
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	t.Cleanup(func() { lookPath = original })
}

func setArch(t *testing.T, arch string) {
	t.Helper()

	original := goArch
	goArch = arch
	t.Cleanup(func() { goArch = original })
}

// versionAnswer satisfies the version query adopt performs on every
// successful resolution.
func versionAnswer(spec execx.Spec) (execx.Result, error) {
	if argsOf(spec) == "--version" {
		return execx.Result{Stdout: "conda 24.11.3\n"}, nil
	}
	return execx.Result{}, nil
}

func TestInstallerArch(t *testing.T) {
	tests := []struct {
		arch     string
		expected string
		wantErr  bool
	}{
		{"x86_64", "x86_64", false},
		{"amd64", "x86_64", false},
		{"aarch64", "aarch64", false},
		{"arm64", "aarch64", false},
		{"riscv64", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.arch, func(t *testing.T) {
			got, err := installerArch(tt.arch)
			if tt.wantErr {
				var unsupported *UnsupportedArchitectureError
				require.True(t, errors.As(err, &unsupported))
				assert.Equal(t, tt.arch, unsupported.Arch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEnsure_ConfiguredBinaryIsEnough(t *testing.T) {
	disablePathLookup(t)
	cfg := testConfig(t)
	writeExecutable(t, cfg.Conda.Binary)

	runner := &fakeRunner{handler: versionAnswer}
	fetcher := &fakeFetcher{}
	p := New(cfg, runner, fetcher)

	require.NoError(t, p.Ensure(context.Background()))
	require.NoError(t, p.Ensure(context.Background()), "second ensure must also succeed")

	assert.Empty(t, fetcher.downloads, "a resolvable conda must not trigger downloads")
	for _, call := range runner.calls {
		assert.Equal(t, "--version", argsOf(call), "only version queries are allowed when conda resolves")
	}
	require.NotNil(t, p.Client())
	assert.Equal(t, cfg.Conda.Binary, p.Client().Binary())
}

func TestEnsure_FallsBackToPath(t *testing.T) {
	cfg := testConfig(t)

	pathConda := filepath.Join(t.TempDir(), "conda")
	writeExecutable(t, pathConda)
	original := lookPath
	lookPath = func(name string) (string, error) { return pathConda, nil }
	t.Cleanup(func() { lookPath = original })

	runner := &fakeRunner{handler: versionAnswer}
	fetcher := &fakeFetcher{}
	p := New(cfg, runner, fetcher)

	require.NoError(t, p.Ensure(context.Background()))

	assert.Empty(t, fetcher.downloads)
	assert.Equal(t, pathConda, p.Client().Binary())
}

func TestEnsure_RepairsFromPrefix(t *testing.T) {
	disablePathLookup(t)
	cfg := testConfig(t)
	cfg.Conda.Binary = filepath.Join(t.TempDir(), "missing", "conda")

	inPrefix := filepath.Join(cfg.Conda.Prefix, "bin", "conda")
	writeExecutable(t, inPrefix)

	runner := &fakeRunner{handler: versionAnswer}
	fetcher := &fakeFetcher{}
	p := New(cfg, runner, fetcher)

	require.NoError(t, p.Ensure(context.Background()))

	assert.Empty(t, fetcher.downloads, "repair must not download anything")
	assert.Equal(t, inPrefix, p.Client().Binary())

	var sawInit bool
	for _, call := range runner.calls {
		if argsOf(call) == "init bash" {
			sawInit = true
		}
	}
	assert.True(t, sawInit, "repair runs conda init")
}

func TestEnsure_FreshInstall(t *testing.T) {
	disablePathLookup(t)
	setArch(t, "amd64")
	cfg := testConfig(t)

	runner := &fakeRunner{}
	runner.handler = func(spec execx.Spec) (execx.Result, error) {
		if spec.Name == "bash" {
			assert.Equal(t, []string{"-b", "-u", "-p", cfg.Conda.Prefix}, spec.Args[1:])
			// The installer script drops the binary into the prefix.
			writeExecutable(t, filepath.Join(cfg.Conda.Prefix, "bin", "conda"))
			return execx.Result{}, nil
		}
		return versionAnswer(spec)
	}
	fetcher := &fakeFetcher{}
	p := New(cfg, runner, fetcher)

	require.NoError(t, p.Ensure(context.Background()))

	require.Len(t, fetcher.downloads, 1)
	assert.Contains(t, fetcher.downloads[0], "Miniconda3-latest-Linux-x86_64.sh")
	assert.Equal(t, filepath.Join(cfg.Conda.Prefix, "bin", "conda"), p.Client().Binary())

	var sawInstall, sawInit bool
	for _, call := range runner.calls {
		if call.Name == "bash" {
			sawInstall = true
		}
		if argsOf(call) == "init bash" {
			sawInit = true
		}
	}
	assert.True(t, sawInstall)
	assert.True(t, sawInit)
}

func TestEnsure_UnsupportedArchitectureShortCircuits(t *testing.T) {
	disablePathLookup(t)
	setArch(t, "riscv64")
	cfg := testConfig(t)

	runner := &fakeRunner{}
	fetcher := &fakeFetcher{}
	p := New(cfg, runner, fetcher)

	err := p.Ensure(context.Background())

	var unsupported *UnsupportedArchitectureError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "riscv64", unsupported.Arch)
	assert.Empty(t, fetcher.downloads, "no download may happen for an unsupported architecture")
	assert.Empty(t, runner.calls)
}

func TestEnsure_DownloadFailurePropagates(t *testing.T) {
	disablePathLookup(t)
	setArch(t, "arm64")
	cfg := testConfig(t)

	runner := &fakeRunner{}
	fetcher := &fakeFetcher{onDownload: func(url, destPath string) error {
		return &fetch.DownloadError{URL: url, Err: errors.New("connection refused")}
	}}
	p := New(cfg, runner, fetcher)

	err := p.Ensure(context.Background())

	var download *fetch.DownloadError
	require.True(t, errors.As(err, &download))
	assert.Contains(t, download.URL, "aarch64")
	assert.Empty(t, runner.calls, "a failed download must not run the installer")
}

func TestEnsure_VerificationFailure(t *testing.T) {
	disablePathLookup(t)
	setArch(t, "x86_64")
	cfg := testConfig(t)

	// The installer reports success but never materializes the binary.
	runner := &fakeRunner{handler: versionAnswer}
	fetcher := &fakeFetcher{}
	p := New(cfg, runner, fetcher)

	err := p.Ensure(context.Background())

	var verification *VerificationError
	require.True(t, errors.As(err, &verification))
	assert.Equal(t, cfg.Conda.Prefix, verification.Prefix)
}

func TestEnsure_WarnsOnOldVersion(t *testing.T) {
	disablePathLookup(t)
	cfg := testConfig(t)
	writeExecutable(t, cfg.Conda.Binary)

	var buf bytes.Buffer
	logging.InitForCLI(logging.LevelDebug, &buf)
	t.Cleanup(func() { logging.InitForCLI(logging.LevelInfo, os.Stderr) })

	runner := &fakeRunner{handler: func(spec execx.Spec) (execx.Result, error) {
		return execx.Result{Stdout: "conda 4.12.0\n"}, nil
	}}
	p := New(cfg, runner, &fakeFetcher{})

	require.NoError(t, p.Ensure(context.Background()))

	assert.Contains(t, buf.String(), "older than the recommended minimum")
}

func TestResolve(t *testing.T) {
	t.Run("adopts the prefix conda without installing", func(t *testing.T) {
		disablePathLookup(t)
		cfg := testConfig(t)
		cfg.Conda.Binary = filepath.Join(t.TempDir(), "missing", "conda")

		inPrefix := filepath.Join(cfg.Conda.Prefix, "bin", "conda")
		writeExecutable(t, inPrefix)

		runner := &fakeRunner{handler: versionAnswer}
		fetcher := &fakeFetcher{}
		p := New(cfg, runner, fetcher)

		assert.True(t, p.Resolve(context.Background()))
		assert.Equal(t, inPrefix, p.Client().Binary())
		assert.Empty(t, fetcher.downloads)
	})

	t.Run("reports false when nothing resolves", func(t *testing.T) {
		disablePathLookup(t)
		cfg := testConfig(t)

		fetcher := &fakeFetcher{}
		p := New(cfg, &fakeRunner{}, fetcher)

		assert.False(t, p.Resolve(context.Background()))
		assert.Nil(t, p.Client())
		assert.Empty(t, fetcher.downloads, "resolve must never download")
	})
}

func newProvisionerWithClient(cfg config.Config, runner execx.Runner) *Provisioner {
	p := New(cfg, runner, &fakeFetcher{})
	p.client = conda.NewClient("/usr/bin/conda", runner)
	return p
}

func envListJSON(prefix string, names ...string) string {
	envs := []string{fmt.Sprintf("%q", prefix)}
	for _, name := range names {
		envs = append(envs, fmt.Sprintf("%q", prefix+"/envs/"+name))
	}
	return fmt.Sprintf(`{"envs": [%s]}`, strings.Join(envs, ", "))
}

func TestEnsureEnvironment_CreatesWhenAbsent(t *testing.T) {
	cfg := testConfig(t)

	runner := &fakeRunner{handler: func(spec execx.Spec) (execx.Result, error) {
		if argsOf(spec) == "env list --json" {
			return execx.Result{Stdout: envListJSON("/home/u/miniconda3")}, nil
		}
		return execx.Result{}, nil
	}}
	p := newProvisionerWithClient(cfg, runner)

	require.NoError(t, p.EnsureEnvironment(context.Background()))

	var created bool
	for _, call := range runner.calls {
		if argsOf(call) == "create -n comfyui-dashboard python=3.11 -y" {
			created = true
		}
	}
	assert.True(t, created)
}

func TestEnsureEnvironment_ReusesExisting(t *testing.T) {
	cfg := testConfig(t)

	runner := &fakeRunner{handler: func(spec execx.Spec) (execx.Result, error) {
		if argsOf(spec) == "env list --json" {
			return execx.Result{Stdout: envListJSON("/home/u/miniconda3", "comfyui-dashboard")}, nil
		}
		return execx.Result{}, nil
	}}
	p := newProvisionerWithClient(cfg, runner)

	require.NoError(t, p.EnsureEnvironment(context.Background()))

	for _, call := range runner.calls {
		assert.NotContains(t, argsOf(call), "create", "an existing environment must not be recreated")
	}
}

func TestEnsureDependencies_AllImportable(t *testing.T) {
	cfg := testConfig(t)

	runner := &fakeRunner{} // every command succeeds, every import works
	p := newProvisionerWithClient(cfg, runner)

	require.NoError(t, p.EnsureDependencies(context.Background()))

	installs := pipInstalls(runner.calls)
	require.Len(t, installs, 1)
	assert.Contains(t, installs[0], "flask gunicorn python-dotenv")
}

func TestEnsureDependencies_RetriesMissingSubsetOnce(t *testing.T) {
	cfg := testConfig(t)

	gunicornChecks := 0
	runner := &fakeRunner{}
	runner.handler = func(spec execx.Spec) (execx.Result, error) {
		if strings.Contains(argsOf(spec), "import gunicorn") {
			gunicornChecks++
			if gunicornChecks == 1 {
				return execx.Result{ExitCode: 1, Stderr: "ModuleNotFoundError"}, nil
			}
		}
		return execx.Result{}, nil
	}
	p := newProvisionerWithClient(cfg, runner)

	require.NoError(t, p.EnsureDependencies(context.Background()))

	installs := pipInstalls(runner.calls)
	require.Len(t, installs, 2)
	assert.Contains(t, installs[0], "flask gunicorn python-dotenv")
	assert.True(t, strings.HasSuffix(installs[1], "pip install gunicorn"),
		"the retry installs only the missing subset, got %q", installs[1])
}

func TestEnsureDependencies_FailsAfterRetry(t *testing.T) {
	cfg := testConfig(t)

	runner := &fakeRunner{}
	runner.handler = func(spec execx.Spec) (execx.Result, error) {
		if strings.Contains(argsOf(spec), "import dotenv") {
			return execx.Result{ExitCode: 1, Stderr: "ModuleNotFoundError"}, nil
		}
		return execx.Result{}, nil
	}
	p := newProvisionerWithClient(cfg, runner)

	err := p.EnsureDependencies(context.Background())

	var depErr *DependencyInstallError
	require.True(t, errors.As(err, &depErr))
	assert.Equal(t, []string{"python-dotenv"}, depErr.Missing)
	assert.Len(t, pipInstalls(runner.calls), 2, "the missing subset is retried exactly once")
}

func TestRemoveEnvironment(t *testing.T) {
	cfg := testConfig(t)

	t.Run("removes an existing environment", func(t *testing.T) {
		runner := &fakeRunner{handler: func(spec execx.Spec) (execx.Result, error) {
			if argsOf(spec) == "env list --json" {
				return execx.Result{Stdout: envListJSON("/home/u/miniconda3", "comfyui-dashboard")}, nil
			}
			return execx.Result{}, nil
		}}
		p := newProvisionerWithClient(cfg, runner)

		require.NoError(t, p.RemoveEnvironment(context.Background()))

		var removed bool
		for _, call := range runner.calls {
			if argsOf(call) == "env remove -n comfyui-dashboard -y" {
				removed = true
			}
		}
		assert.True(t, removed)
	})

	t.Run("absent environment is success", func(t *testing.T) {
		runner := &fakeRunner{handler: func(spec execx.Spec) (execx.Result, error) {
			if argsOf(spec) == "env list --json" {
				return execx.Result{Stdout: envListJSON("/home/u/miniconda3")}, nil
			}
			return execx.Result{}, nil
		}}
		p := newProvisionerWithClient(cfg, runner)

		require.NoError(t, p.RemoveEnvironment(context.Background()))

		for _, call := range runner.calls {
			assert.NotContains(t, argsOf(call), "remove")
		}
	})
}

func pipInstalls(calls []execx.Spec) []string {
	var installs []string
	for _, call := range calls {
		joined := argsOf(call)
		if strings.Contains(joined, "pip install") {
			installs = append(installs, joined)
		}
	}
	return installs
}
