package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"autolaunch/internal/hsm"
	"autolaunch/internal/model"
	"autolaunch/internal/policy"
)

const (
	EnvMode         = "AUTOLAUNCH_MODE"
	EnvInvocationID = "AUTOLAUNCH_INVOCATION_ID"
)

type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q (valid modes: %s)", e.Value, ValidModesText())
}

func ValidModesText() string {
	modes := model.AllModes()
	names := make([]string, 0, len(modes))
	for _, mode := range modes {
		names = append(names, string(mode))
	}
	return strings.Join(names, ", ")
}

// NormalizeArgs folds the two-token form `--mode <m>` into the single token
// `--mode <m>` so ParseMode sees one argument either way.
func NormalizeArgs(args []string) []string {
	if len(args) >= 2 && args[0] == "--mode" {
		out := []string{"--mode " + args[1]}
		return append(out, args[2:]...)
	}
	return args
}

// ParseMode strips a leading `--mode=` or `--mode ` and requires an exact
// member of the mode set.
func ParseMode(raw string) (model.Mode, error) {
	value := strings.TrimPrefix(raw, "--mode=")
	value = strings.TrimPrefix(value, "--mode ")
	if !model.IsValidMode(value) {
		return "", &InvalidModeError{Value: value}
	}
	return model.Mode(value), nil
}

type Options struct {
	Runner policy.TaskRunner
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
	// Signals caught for the duration of a dispatch; defaults to os.Interrupt.
	Signals []os.Signal
}

type Dispatcher struct {
	opts   Options
	logger *zap.Logger
}

func New(options Options) *Dispatcher {
	options = normalizeOptions(options)
	return &Dispatcher{opts: options, logger: options.Logger}
}

func normalizeOptions(options Options) Options {
	if options.Runner.Program == "" {
		options.Runner.Program = policy.Default().TaskRunner.Program
	}
	if options.Runner.Shell == "" {
		options.Runner.Shell = policy.Default().TaskRunner.Shell
	}
	// A zero WaitDelay would let a child that ignores SIGINT block forever.
	if options.Runner.GraceSeconds <= 0 {
		options.Runner.GraceSeconds = policy.Default().TaskRunner.GraceSeconds
	}
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if len(options.Signals) == 0 {
		options.Signals = []os.Signal{os.Interrupt}
	}
	return options
}

// CommandFor renders the shell command for mode: `<program> run <prefix><mode>`.
func (d *Dispatcher) CommandFor(mode model.Mode) string {
	return fmt.Sprintf("%s run %s%s", d.opts.Runner.Program, d.opts.Runner.ScriptPrefix, mode)
}

// Resolve validates a raw mode token. Rejected tokens never reach Dispatch.
func (d *Dispatcher) Resolve(raw string) (model.Mode, error) {
	state := model.DispatchUnvalidated
	mode, err := ParseMode(raw)
	if err != nil {
		d.transition(&state, model.DispatchRejected)
		d.logger.Info("mode rejected", zap.String("raw", raw))
		return "", err
	}
	d.transition(&state, model.DispatchValidated)
	return mode, nil
}

// Dispatch runs the mode's command through the shell with inherited stdio and
// blocks until it exits. Interrupts are caught here and reported as an
// interrupted result rather than terminating the launcher.
func (d *Dispatcher) Dispatch(ctx context.Context, mode model.Mode) model.InvocationResult {
	if ctx == nil {
		ctx = context.Background()
	}
	result := model.InvocationResult{
		InvocationID: uuid.NewString(),
		Mode:         mode,
		Command:      d.CommandFor(mode),
		StartedAt:    time.Now().UTC(),
	}
	state := model.DispatchUnvalidated
	if !model.IsValidMode(string(mode)) {
		d.transition(&state, model.DispatchRejected)
		result.Status = model.InvocationFailed
		result.ExitCode = -1
		result.ErrorText = (&InvalidModeError{Value: string(mode)}).Error()
		result.FinishedAt = time.Now().UTC()
		return result
	}
	d.transition(&state, model.DispatchValidated)
	d.transition(&state, model.DispatchDispatched)

	logger := d.logger.With(
		zap.String("invocation_id", result.InvocationID),
		zap.String("mode", string(mode)),
	)
	logger.Info("dispatching mode", zap.String("command", result.Command))

	sigCtx, stop := signal.NotifyContext(ctx, d.opts.Signals...)
	defer stop()

	cmd := exec.CommandContext(sigCtx, d.opts.Runner.Shell, "-c", result.Command)
	cmd.Stdin = d.opts.Stdin
	cmd.Stdout = d.opts.Stdout
	cmd.Stderr = d.opts.Stderr
	cmd.Env = append(os.Environ(),
		EnvMode+"="+string(mode),
		EnvInvocationID+"="+result.InvocationID,
	)
	// Without a terminal on stdin the child gets its own process group so an
	// interrupt reaches every process the shell started. On a terminal it stays
	// in the foreground group, where Ctrl-C already reaches all of them.
	detached := !isTerminal(d.opts.Stdin)
	if detached {
		setProcessGroup(cmd)
	}
	cmd.Cancel = func() error {
		if detached {
			return interruptProcessGroup(cmd.Process)
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = time.Duration(d.opts.Runner.GraceSeconds) * time.Second

	err := cmd.Run()
	if detached && sigCtx.Err() != nil && cmd.Process != nil {
		killProcessGroup(cmd.Process)
	}
	result.FinishedAt = time.Now().UTC()
	result.Status, result.ExitCode, result.ErrorText = classify(sigCtx, err)
	d.transition(&state, hsm.TerminalStateFor(result.Status))

	logger.Info("mode finished",
		zap.String("status", string(result.Status)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration()),
	)
	return result
}

// classify treats only an interrupt seen at the dispatch boundary as
// interrupted. A child that exits 130 on its own is a plain failure.
func classify(ctx context.Context, err error) (model.InvocationStatus, int, string) {
	if err == nil {
		return model.InvocationSucceeded, 0, ""
	}
	if ctx.Err() != nil {
		return model.InvocationInterrupted, exitCodeOf(err), "interrupted"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return model.InvocationFailed, exitErr.ExitCode(), err.Error()
	}
	return model.InvocationFailed, -1, err.Error()
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (d *Dispatcher) transition(state *model.DispatchState, to model.DispatchState) bool {
	if !hsm.CanTransitionDispatch(*state, to) {
		d.logger.Warn("illegal dispatch transition",
			zap.String("from", string(*state)),
			zap.String("to", string(to)),
		)
		return false
	}
	*state = to
	return true
}
