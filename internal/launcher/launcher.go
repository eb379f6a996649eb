package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/mmr-tortoise/applaunch/internal/config"
	"github.com/mmr-tortoise/applaunch/internal/i18n"
	"github.com/mmr-tortoise/applaunch/internal/model"
	"github.com/mmr-tortoise/applaunch/internal/toolchain"
)

// Log attribute keys.
const (
	keyStage      = "stage"
	keyCommand    = "command"
	keyPath       = "path"
	keyVersion    = "version"
	keyExitCode   = "exit_code"
	keyDurationMS = "duration_ms"
	keyError      = "error"
)

// Options configures a Launcher. Zero-valued fields get defaults in New.
type Options struct {
	Config  *config.Config
	BaseDir string

	// Printer renders operator diagnostics. Defaults to Config.Locale.
	Printer *i18n.Printer

	// Runner executes the external commands. Defaults to toolchain.NewRunner().
	Runner *toolchain.Runner

	// Pauser waits for operator acknowledgment after a failure.
	// Defaults to NoPause.
	Pauser Pauser

	// Logger receives structured debug logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Stdout receives the operator diagnostics and, with Stdin and Stderr,
	// is inherited by the application. Nil streams default to the process's own.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher runs the fixed launch sequence: interpreter, package manager,
// manifest, install, then the application.
//
// It is not safe for concurrent use; every stage blocks until done.
type Launcher struct {
	cfg     *config.Config
	baseDir string
	msg     *i18n.Printer
	runner  *toolchain.Runner
	pauser  Pauser
	log     *slog.Logger
	stdio   toolchain.Stdio
}

// New creates a Launcher from opts.
func New(opts Options) *Launcher {
	l := &Launcher{
		cfg:     opts.Config,
		baseDir: opts.BaseDir,
		msg:     opts.Printer,
		runner:  opts.Runner,
		pauser:  opts.Pauser,
		log:     opts.Logger,
		stdio:   toolchain.Stdio{Stdin: opts.Stdin, Stdout: opts.Stdout, Stderr: opts.Stderr},
	}
	if l.cfg == nil {
		l.cfg = config.Default(runtime.GOOS)
	}
	if l.msg == nil {
		l.msg = i18n.NewPrinter(l.cfg.Locale)
	}
	if l.runner == nil {
		l.runner = toolchain.NewRunner()
	}
	if l.pauser == nil {
		l.pauser = NoPause{}
	}
	if l.log == nil {
		l.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if l.stdio.Stdin == nil {
		l.stdio.Stdin = os.Stdin
	}
	if l.stdio.Stdout == nil {
		l.stdio.Stdout = os.Stdout
	}
	if l.stdio.Stderr == nil {
		l.stdio.Stderr = os.Stderr
	}
	return l
}

// Check runs the three presence checks (interpreter, package manager,
// manifest) and stops at the first failure.
//
// A failure prints a localized diagnostic, waits on the Pauser and returns
// a *model.CLIError with Reported set and Code ExitGeneralError.
func (l *Launcher) Check(ctx context.Context) (*model.Environment, error) {
	env := &model.Environment{BaseDir: l.baseDir}

	interp, err := l.resolve(ctx, model.StageInterpreter, l.cfg.Interpreter, i18n.MsgToolMissing)
	if err != nil {
		return nil, err
	}
	env.Interpreter = interp

	pm, err := l.resolve(ctx, model.StagePackageManager, l.cfg.PackageManager, i18n.MsgPackageMgrMissing)
	if err != nil {
		return nil, err
	}
	env.PackageManager = pm

	manifest := l.cfg.ManifestPath(l.baseDir)
	if err := checkRegularFile(manifest); err != nil {
		return nil, l.fail(model.StageManifest,
			fmt.Sprintf("dependency manifest %s not found", manifest), err,
			l.msg.Sprintf(i18n.MsgManifestMissing, manifest))
	}
	l.say(l.msg.Sprintf(i18n.MsgManifestFound, manifest))
	l.log.Debug("manifest found", slog.String(keyStage, model.StageManifest.String()), slog.String(keyPath, manifest))
	env.ManifestPath = manifest

	return env, nil
}

// Run executes the full sequence and then the application, passing args
// through to it.
//
// Precondition failures return a *model.CLIError (see Check); the install
// step is never reached when a check fails and the application is never
// started when the install fails. Once the application has run, Run
// returns its exit code in the Result with a nil error, whatever the code.
func (l *Launcher) Run(ctx context.Context, args []string) (*model.Result, error) {
	env, err := l.Check(ctx)
	if err != nil {
		return nil, err
	}

	if err := l.install(ctx, env); err != nil {
		return nil, err
	}

	l.say(l.msg.Sprintf(i18n.MsgLaunching))
	entry := l.cfg.EntryPointPath(l.baseDir)
	l.log.Debug("starting application",
		slog.String(keyStage, model.StageLaunch.String()),
		slog.String(keyCommand, env.Interpreter.Path),
		slog.String(keyPath, entry))

	started := time.Now()
	code, err := l.runner.Start(ctx, l.baseDir, env.Interpreter, entry, args, l.stdio)
	elapsed := time.Since(started)
	if err != nil {
		return nil, l.fail(model.StageLaunch, "application could not be started", err,
			l.msg.Sprintf(i18n.MsgLaunchFailed))
	}

	l.log.Debug("application exited",
		slog.Int(keyExitCode, code),
		slog.Int64(keyDurationMS, elapsed.Milliseconds()))

	if code != 0 {
		l.say(l.msg.Sprintf(i18n.MsgAppFailed, code))
		l.pauser.Pause()
	}

	return &model.Result{Environment: env, ExitCode: code, Duration: elapsed}, nil
}

// resolve runs one tool check and reports a missing tool with its download
// pointer.
func (l *Launcher) resolve(ctx context.Context, stage model.Stage, tool config.Tool, missingKey string) (*model.ToolInfo, error) {
	l.say(l.msg.Sprintf(i18n.MsgChecking, tool.DisplayName))

	info, err := l.runner.Resolve(ctx, tool)
	if err != nil {
		lines := []string{l.msg.Sprintf(missingKey, tool.DisplayName, tool.DisplayName)}
		if tool.DownloadURL != "" {
			lines = append(lines, l.msg.Sprintf(i18n.MsgDownloadHint, tool.DownloadURL))
		}
		return nil, l.fail(stage, fmt.Sprintf("%s not found", tool.DisplayName), err, lines...)
	}

	l.say(l.msg.Sprintf(i18n.MsgFound, info.String()))
	l.log.Debug("tool resolved",
		slog.String(keyStage, stage.String()),
		slog.String(keyCommand, info.Command),
		slog.String(keyPath, info.Path),
		slog.String(keyVersion, info.Version))
	return info, nil
}

// install runs the package manager against the manifest. It runs on every
// launch; the package manager is expected to treat already-satisfied
// requirements as success.
func (l *Launcher) install(ctx context.Context, env *model.Environment) error {
	l.say(l.msg.Sprintf(i18n.MsgInstalling))

	args := append(append([]string{}, l.cfg.InstallArgs...), env.ManifestPath)
	started := time.Now()
	err := l.runner.Install(ctx, l.baseDir, env.PackageManager, args...)
	if err != nil {
		// Only a normal exit has a code worth showing; a signal death or a
		// failed start does not.
		line := l.msg.Sprintf(i18n.MsgInstallAborted)
		var cmdErr *toolchain.CommandError
		if errors.As(err, &cmdErr) && cmdErr.ExitCode >= 0 {
			line = l.msg.Sprintf(i18n.MsgInstallFailed, cmdErr.ExitCode)
		}
		return l.fail(model.StageInstall, "dependency install failed", err, line)
	}

	l.log.Debug("dependencies installed",
		slog.String(keyStage, model.StageInstall.String()),
		slog.Int64(keyDurationMS, time.Since(started).Milliseconds()))
	l.say(l.msg.Sprintf(i18n.MsgInstallDone))
	return nil
}

// fail shows the localized lines, waits for the operator, and returns the
// fatal error for stage.
func (l *Launcher) fail(stage model.Stage, message string, err error, lines ...string) error {
	for _, line := range lines {
		l.say(line)
	}
	l.log.Debug("stage failed", slog.String(keyStage, stage.String()), slog.String(keyError, err.Error()))
	l.pauser.Pause()

	cliErr := model.NewStageError(stage, message, err)
	cliErr.Reported = true
	return cliErr
}

func (l *Launcher) say(line string) {
	_, _ = fmt.Fprintln(l.stdio.Stdout, line)
}

// checkRegularFile returns an error unless path exists and is a regular
// file (a directory named like the manifest does not count).
func checkRegularFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}
