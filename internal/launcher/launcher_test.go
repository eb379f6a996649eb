package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/applaunch/internal/config"
	"github.com/mmr-tortoise/applaunch/internal/model"
)

// countPauser records how often the launcher waited for the operator.
type countPauser struct{ n int }

func (p *countPauser) Pause() { p.n++ }

// fixture is a launcher directory with stub python/pip executables.
//
// The python stub answers --version and runs anything else with /bin/sh,
// so app/main.py is a shell script. The pip stub appends one line per
// install to installLog and exits with installCode.
type fixture struct {
	base       string
	stubDir    string
	installLog string
	launchLog  string
	cfg        *config.Config
	stdout     bytes.Buffer
	pauser     countPauser
}

type fixtureOpts struct {
	noPython    bool
	noPip       bool
	noManifest  bool
	installCode int
	appCode     int
}

func newFixture(t *testing.T, opts fixtureOpts) *fixture {
	t.Helper()

	if runtime.GOOS == config.GOOSWindows {
		t.Skip("stub executables are POSIX shell scripts")
	}

	f := &fixture{base: t.TempDir(), stubDir: t.TempDir()}
	f.installLog = filepath.Join(f.stubDir, "install.log")
	f.launchLog = filepath.Join(f.stubDir, "launch.log")

	f.cfg = config.Default("linux")
	f.cfg.Locale = "en"
	f.cfg.Interpreter.Commands = []string{filepath.Join(f.stubDir, "python")}
	f.cfg.PackageManager.Commands = []string{filepath.Join(f.stubDir, "pip")}

	if !opts.noPython {
		f.writeStub(t, "python", `if [ "$1" = "--version" ]; then echo "Python 3.12.1"; exit 0; fi
exec /bin/sh "$@"`)
	}
	if !opts.noPip {
		f.writeStub(t, "pip", fmt.Sprintf(`if [ "$1" = "--version" ]; then echo "pip 24.0"; exit 0; fi
echo "$@" >> %q
exit %d`, f.installLog, opts.installCode))
	}
	if !opts.noManifest {
		require.NoError(t, os.WriteFile(filepath.Join(f.base, "requirements.txt"), []byte("pyautogui\n"), 0644))
	}

	require.NoError(t, os.MkdirAll(filepath.Join(f.base, "app"), 0755))
	app := fmt.Sprintf("echo \"$*\" >> %q\nexit %d\n", f.launchLog, opts.appCode)
	require.NoError(t, os.WriteFile(filepath.Join(f.base, "app", "main.py"), []byte(app), 0644))

	return f
}

func (f *fixture) writeStub(t *testing.T, name, body string) {
	t.Helper()
	path := filepath.Join(f.stubDir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
}

func (f *fixture) launcher() *Launcher {
	return New(Options{
		Config:  f.cfg,
		BaseDir: f.base,
		Pauser:  &f.pauser,
		Stdout:  &f.stdout,
		Stderr:  &f.stdout,
		Stdin:   strings.NewReader(""),
	})
}

// lines returns the lines written to path, or nil if it does not exist.
// Blank lines count: an application run without arguments logs one.
func lines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	if len(data) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// requireStageError asserts err is a reported precondition failure for stage.
func requireStageError(t *testing.T, err error, stage model.Stage) {
	t.Helper()
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected *model.CLIError, got %T", err)
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
	assert.Equal(t, stage, cliErr.Stage)
	assert.True(t, cliErr.Reported)
}

// --- precondition failures ---

func TestRun_NoInterpreter(t *testing.T) {
	f := newFixture(t, fixtureOpts{noPython: true})

	res, err := f.launcher().Run(context.Background(), nil)
	assert.Nil(t, res)
	requireStageError(t, err, model.StageInterpreter)

	out := f.stdout.String()
	assert.Contains(t, out, "Error: Python was not found. Please install Python first.")
	assert.Contains(t, out, "Download: https://www.python.org/downloads/")
	assert.Equal(t, 1, f.pauser.n, "fatal failures wait for the operator once")
	assert.Nil(t, lines(t, f.installLog), "install must not run")
	assert.Nil(t, lines(t, f.launchLog), "application must not run")
}

func TestRun_NoPackageManager(t *testing.T) {
	f := newFixture(t, fixtureOpts{noPip: true})

	_, err := f.launcher().Run(context.Background(), nil)
	requireStageError(t, err, model.StagePackageManager)

	out := f.stdout.String()
	assert.Contains(t, out, "Found Python (Python 3.12.1)")
	assert.Contains(t, out, "Error: pip was not found.")
	assert.Contains(t, out, "Download: https://pip.pypa.io/")
	assert.Equal(t, 1, f.pauser.n)
	assert.Nil(t, lines(t, f.launchLog))
}

func TestRun_NoManifest(t *testing.T) {
	f := newFixture(t, fixtureOpts{noManifest: true})

	_, err := f.launcher().Run(context.Background(), nil)
	requireStageError(t, err, model.StageManifest)

	assert.Contains(t, f.stdout.String(), "requirements.txt was not found")
	assert.Equal(t, 1, f.pauser.n)
	assert.Nil(t, lines(t, f.installLog))
	assert.Nil(t, lines(t, f.launchLog))
}

// TestRun_ManifestIsDirectory verifies a directory named like the manifest
// does not satisfy the manifest check.
func TestRun_ManifestIsDirectory(t *testing.T) {
	f := newFixture(t, fixtureOpts{noManifest: true})
	require.NoError(t, os.Mkdir(filepath.Join(f.base, "requirements.txt"), 0755))

	_, err := f.launcher().Run(context.Background(), nil)
	requireStageError(t, err, model.StageManifest)
	assert.Nil(t, lines(t, f.installLog))
}

func TestRun_InstallFails(t *testing.T) {
	f := newFixture(t, fixtureOpts{installCode: 2})

	_, err := f.launcher().Run(context.Background(), nil)
	requireStageError(t, err, model.StageInstall)

	assert.Contains(t, f.stdout.String(), "dependency installation failed (exit code 2)")
	assert.Len(t, lines(t, f.installLog), 1, "install is attempted once, never retried")
	assert.Nil(t, lines(t, f.launchLog), "application must not run after a failed install")
	assert.Equal(t, 1, f.pauser.n)
}

// TestRun_InstallKilled verifies a package manager killed by a signal is
// reported without a made-up exit code.
func TestRun_InstallKilled(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.writeStub(t, "pip", `if [ "$1" = "--version" ]; then echo "pip 24.0"; exit 0; fi
kill -KILL $$`)

	_, err := f.launcher().Run(context.Background(), nil)
	requireStageError(t, err, model.StageInstall)

	out := f.stdout.String()
	assert.Contains(t, out, "Error: dependency installation did not complete.")
	assert.NotContains(t, out, "exit code -1")
	assert.Nil(t, lines(t, f.launchLog))
	assert.Equal(t, 1, f.pauser.n)
}

// --- launch ---

// TestRun_RelaysExitCode verifies the launcher's result carries the
// application's exit code unchanged.
func TestRun_RelaysExitCode(t *testing.T) {
	tests := []struct {
		appCode    int
		wantPauses int
	}{
		{0, 0},
		{3, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("exit %d", tt.appCode), func(t *testing.T) {
			f := newFixture(t, fixtureOpts{appCode: tt.appCode})

			res, err := f.launcher().Run(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.appCode, res.ExitCode)
			assert.Equal(t, tt.wantPauses, f.pauser.n)
			assert.Len(t, lines(t, f.launchLog), 1)

			require.NotNil(t, res.Environment)
			assert.Equal(t, "Python 3.12.1", res.Environment.Interpreter.Version)
			assert.Equal(t, "pip 24.0", res.Environment.PackageManager.Version)

			if tt.appCode != 0 {
				assert.Contains(t, f.stdout.String(), "The application exited abnormally, exit code: 3")
			} else {
				assert.NotContains(t, f.stdout.String(), "abnormally")
			}
		})
	}
}

// TestRun_InstallArgs verifies pip receives the configured install flags
// followed by the absolute manifest path.
func TestRun_InstallArgs(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.launcher().Run(context.Background(), nil)
	require.NoError(t, err)

	manifest := filepath.Join(f.base, "requirements.txt")
	assert.Equal(t,
		[]string{"install --disable-pip-version-check --quiet -r " + manifest},
		lines(t, f.installLog))
}

func TestRun_ForwardsArgs(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	_, err := f.launcher().Run(context.Background(), []string{"--profile", "fast"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--profile fast"}, lines(t, f.launchLog))
}

// TestRun_Idempotent verifies that a second run with dependencies already
// installed goes through the install step again without error.
func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	l := f.launcher()

	for i := 0; i < 2; i++ {
		res, err := l.Run(context.Background(), nil)
		require.NoError(t, err, "run %d", i+1)
		assert.Equal(t, 0, res.ExitCode)
	}
	assert.Len(t, lines(t, f.installLog), 2)
	assert.Len(t, lines(t, f.launchLog), 2)
}

// TestRun_IndependentOfWorkingDirectory verifies that the manifest and entry
// point resolve against the base directory, not the caller's cwd.
func TestRun_IndependentOfWorkingDirectory(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	chdir(t, t.TempDir())

	res, err := f.launcher().Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Len(t, lines(t, f.launchLog), 1)
}

// TestRun_EntryPointIsAbsolute verifies the interpreter receives the entry
// point resolved against the base directory.
func TestRun_EntryPointIsAbsolute(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	argvLog := filepath.Join(f.stubDir, "argv.log")
	f.writeStub(t, "python", fmt.Sprintf(`if [ "$1" = "--version" ]; then echo "Python 3.12.1"; exit 0; fi
echo "$1" >> %q
exec /bin/sh "$@"`, argvLog))

	_, err := f.launcher().Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(f.base, "app", "main.py")}, lines(t, argvLog))
}

func TestRun_EntryPointMissing(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	require.NoError(t, os.Remove(filepath.Join(f.base, "app", "main.py")))

	// The interpreter itself reports the missing script; /bin/sh exits 127.
	res, err := f.launcher().Run(context.Background(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.Equal(t, 1, f.pauser.n)
}

// --- Check ---

func TestCheck_DoesNotInstallOrLaunch(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	env, err := f.launcher().Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, f.base, env.BaseDir)
	assert.Equal(t, filepath.Join(f.base, "requirements.txt"), env.ManifestPath)
	assert.Equal(t, filepath.Join(f.stubDir, "python"), env.Interpreter.Path)
	assert.Nil(t, lines(t, f.installLog))
	assert.Nil(t, lines(t, f.launchLog))
	assert.Zero(t, f.pauser.n)
}

// TestCheck_DefaultLocale verifies diagnostics default to Simplified Chinese.
func TestCheck_DefaultLocale(t *testing.T) {
	f := newFixture(t, fixtureOpts{noPython: true})
	f.cfg.Locale = ""

	_, err := f.launcher().Check(context.Background())
	requireStageError(t, err, model.StageInterpreter)
	assert.Contains(t, f.stdout.String(), "错误: 未检测到 Python，请先安装 Python")
	assert.Contains(t, f.stdout.String(), "下载地址: https://www.python.org/downloads/")
}

// --- LinePauser ---

func TestLinePauser(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("\nsecond\n")
	p := NewLinePauser(in, &out, "Press Enter to exit...")

	p.Pause()
	assert.Equal(t, "Press Enter to exit...\n", out.String())

	// The reader is buffered; the remaining line is still available.
	p.Pause()
	assert.Equal(t, 2, strings.Count(out.String(), "Press Enter"))
}

// TestLinePauser_EOF verifies a closed stdin does not hang the launcher.
func TestLinePauser_EOF(t *testing.T) {
	var out bytes.Buffer
	NewLinePauser(strings.NewReader(""), &out, "wait").Pause()
	assert.Equal(t, "wait\n", out.String())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
