// Package launcher runs the fixed launch sequence: environment preflight,
// artifact status, menu, then either quick-start guidance or a single mode
// dispatch. It turns the result into a process exit code.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"autolaunch/internal/artifacts"
	"autolaunch/internal/console"
	"autolaunch/internal/dispatch"
	"autolaunch/internal/model"
	"autolaunch/internal/policy"
	"autolaunch/internal/preflight"
)

type FailureClass string

const (
	FailureNone         FailureClass = ""
	FailurePrecondition FailureClass = "precondition"
	FailureValidation   FailureClass = "validation"
	FailureDispatch     FailureClass = "dispatch"
	FailureUsage        FailureClass = "usage"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

type Outcome struct {
	ExitCode    int
	Failure     FailureClass
	Environment model.EnvironmentCheck
	Summary     model.ArtifactSummary
	Invocation  *model.InvocationResult
	Err         error
}

type Prober interface {
	Probe(ctx context.Context) (model.EnvironmentCheck, error)
}

type Reporter interface {
	Summarize() model.ArtifactSummary
}

type Dispatcher interface {
	CommandFor(mode model.Mode) string
	Resolve(raw string) (model.Mode, error)
	Dispatch(ctx context.Context, mode model.Mode) model.InvocationResult
}

type Options struct {
	Config   policy.Config
	Out      io.Writer
	Colorize bool
	Logger   *zap.Logger

	Prober     Prober
	Reporter   Reporter
	Dispatcher Dispatcher
}

type Launcher struct {
	prober     Prober
	reporter   Reporter
	dispatcher Dispatcher
	printer    *console.Printer
	logger     *zap.Logger
}

func New(options Options) *Launcher {
	if options.Out == nil {
		options.Out = os.Stdout
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Prober == nil {
		options.Prober = preflight.NewProber(options.Config.Tools, options.Logger)
	}
	if options.Reporter == nil {
		options.Reporter = artifacts.NewReporter(options.Config.Artifacts, options.Logger)
	}
	if options.Dispatcher == nil {
		options.Dispatcher = dispatch.New(dispatch.Options{
			Runner: options.Config.TaskRunner,
			Logger: options.Logger,
		})
	}
	return &Launcher{
		prober:     options.Prober,
		reporter:   options.Reporter,
		dispatcher: options.Dispatcher,
		printer:    console.NewPrinter(options.Out, options.Colorize, options.Dispatcher.CommandFor),
		logger:     options.Logger,
	}
}

func IsHelpArg(arg string) bool {
	switch arg {
	case "help", "--help", "-h":
		return true
	}
	return false
}

func (l *Launcher) Run(ctx context.Context, args []string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	args = dispatch.NormalizeArgs(args)
	if len(args) == 1 && IsHelpArg(args[0]) {
		l.printer.Banner()
		l.printer.Usage()
		return Outcome{ExitCode: ExitOK}
	}

	outcome := Outcome{}
	l.printer.Banner()

	l.printer.EnvironmentHeader()
	check, err := l.prober.Probe(ctx)
	outcome.Environment = check
	for _, tool := range check.Tools {
		l.printer.ToolCheck(tool)
	}
	if err != nil {
		var precondition *preflight.PreconditionError
		if !errors.As(err, &precondition) {
			err = &preflight.PreconditionError{Tool: "environment", Err: err}
		}
		l.logger.Error("environment check failed", zap.Error(err))
		outcome.ExitCode = ExitFailure
		outcome.Failure = FailurePrecondition
		outcome.Err = err
		return outcome
	}
	l.printer.Blank()

	outcome.Summary = l.reporter.Summarize()
	l.printer.Status(outcome.Summary)
	l.printer.Menu()

	switch len(args) {
	case 0:
		l.printer.QuickStart()
		outcome.ExitCode = ExitOK
		return outcome
	case 1:
		return l.dispatch(ctx, args[0], outcome)
	default:
		err := fmt.Errorf("expected a single mode argument, got %d", len(args))
		l.printer.Usagef("%v", err)
		outcome.ExitCode = ExitFailure
		outcome.Failure = FailureUsage
		outcome.Err = err
		return outcome
	}
}

func (l *Launcher) dispatch(ctx context.Context, raw string, outcome Outcome) Outcome {
	mode, err := l.dispatcher.Resolve(raw)
	if err != nil {
		value := raw
		var invalid *dispatch.InvalidModeError
		if errors.As(err, &invalid) {
			value = invalid.Value
		}
		l.printer.InvalidMode(value, dispatch.ValidModesText())
		outcome.ExitCode = ExitFailure
		outcome.Failure = FailureValidation
		outcome.Err = err
		return outcome
	}

	l.printer.Starting(mode)
	result := l.dispatcher.Dispatch(ctx, mode)
	l.printer.Result(result)
	outcome.Invocation = &result
	if result.Succeeded() {
		outcome.ExitCode = ExitOK
		return outcome
	}
	outcome.ExitCode = ExitFailure
	outcome.Failure = FailureDispatch
	outcome.Err = fmt.Errorf("mode %s %s (exit code %d)", result.Mode, result.Status, result.ExitCode)
	return outcome
}
