package main

import (
	"os/signal"
	"syscall"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"autolaunch/internal/console"
	"autolaunch/internal/dispatch"
	"autolaunch/internal/launcher"
	"autolaunch/internal/policy"
)

func executeCLI(args []string) error {
	rootCmd, err := newRootCommand()
	if err != nil {
		return err
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func newRootCommand() (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:   "autolaunch [mode]",
		Short: "check the environment, report agent status, and launch an autonomous agent mode",
		// Mode arguments use --mode=<m> and --mode <m>, which cobra must not treat as flags.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE:               runLauncher,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	defaultHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd == rootCmd {
			printUsage(cmd)
			return
		}
		defaultHelpFunc(cmd, args)
	})

	migrated := []cmds.Command{}
	statusCmd, err := newStatusGlazedCommand()
	if err != nil {
		return nil, err
	}
	migrated = append(migrated, statusCmd)

	serveCmd, err := newServeGlazedCommand()
	if err != nil {
		return nil, err
	}
	migrated = append(migrated, serveCmd)

	policyInitCmd, err := newPolicyInitGlazedCommand()
	if err != nil {
		return nil, err
	}
	migrated = append(migrated, policyInitCmd)

	for _, command := range migrated {
		cobraCommand, err := buildGlazedCobraCommand(command)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(cobraCommand)
	}

	return rootCmd, nil
}

func buildGlazedCobraCommand(command cmds.Command) (*cobra.Command, error) {
	return cli.BuildCobraCommand(
		command,
		cli.WithParserConfig(cli.CobraParserConfig{
			ShortHelpLayers: []string{layers.DefaultSlug},
			MiddlewaresFunc: cli.CobraCommandDefaultMiddlewares,
		}),
		cli.WithCobraMiddlewaresFunc(cli.CobraCommandDefaultMiddlewares),
		cli.WithCobraShortHelpLayers(layers.DefaultSlug),
	)
}

func runLauncher(cmd *cobra.Command, args []string) error {
	cfg, _, err := policy.Load("")
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	l := launcher.New(launcher.Options{
		Config:   cfg,
		Out:      out,
		Colorize: console.ColorEnabled(out),
		Logger:   logger,
	})
	outcome := l.Run(ctx, args)
	if outcome.ExitCode != launcher.ExitOK {
		logger.Debug("launcher finished with failure",
			zap.String("failure", string(outcome.Failure)),
			zap.Int("exit_code", outcome.ExitCode),
			zap.Error(outcome.Err),
		)
		return &exitError{code: outcome.ExitCode, err: outcome.Err}
	}
	return nil
}

func printUsage(cmd *cobra.Command) {
	cfg, _, err := policy.Load("")
	if err != nil {
		cfg = policy.Default()
	}
	out := cmd.OutOrStdout()
	dispatcher := dispatch.New(dispatch.Options{Runner: cfg.TaskRunner})
	printer := console.NewPrinter(out, console.ColorEnabled(out), dispatcher.CommandFor)
	printer.Banner()
	printer.Usage()
}
