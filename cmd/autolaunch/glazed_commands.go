package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"autolaunch/internal/artifacts"
	"autolaunch/internal/console"
	"autolaunch/internal/dispatch"
	"autolaunch/internal/policy"
	"autolaunch/internal/server"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"go.uber.org/zap"
)

type policyInitGlazedCommand struct {
	*cmds.CommandDescription
}

type policyInitSettings struct {
	Path string `glazed.parameter:"path"`
}

func newPolicyInitGlazedCommand() (*policyInitGlazedCommand, error) {
	return &policyInitGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"policy-init",
			cmds.WithShort("Write a default policy file"),
			cmds.WithLong("Create a default autolaunch policy file at the target path. A .yaml or .yml extension writes YAML, anything else JSON."),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"path",
					parameters.ParameterTypeString,
					parameters.WithHelp("Path to policy file"),
					parameters.WithDefault(policy.DefaultPolicyPath),
				),
			),
		),
	}, nil
}

func (c *policyInitGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	_ = ctx
	settings := &policyInitSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if err := policy.SaveDefault(settings.Path); err != nil {
		return err
	}
	fmt.Printf("Wrote default policy to %s\n", settings.Path)
	return nil
}

var _ cmds.BareCommand = &policyInitGlazedCommand{}

type statusGlazedCommand struct {
	*cmds.CommandDescription
}

type statusSettings struct {
	PolicyPath string `glazed.parameter:"policy"`
	LogsDir    string `glazed.parameter:"logs-dir"`
	ReportsDir string `glazed.parameter:"reports-dir"`
	JSON       bool   `glazed.parameter:"json"`
}

func newStatusGlazedCommand() (*statusGlazedCommand, error) {
	return &statusGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"status",
			cmds.WithShort("Show the latest agent log and report"),
			cmds.WithLong("Locate the newest log and report artifacts and print the report summary without checking the environment or dispatching a mode."),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"policy",
					parameters.ParameterTypeString,
					parameters.WithHelp("Path to policy file (defaults to .autolaunch/policy.json)"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"logs-dir",
					parameters.ParameterTypeString,
					parameters.WithHelp("Override the policy logs directory"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"reports-dir",
					parameters.ParameterTypeString,
					parameters.WithHelp("Override the policy reports directory"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"json",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Print the artifact summary as JSON"),
					parameters.WithDefault(false),
				),
			),
		),
	}, nil
}

func (c *statusGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	_ = ctx
	settings := &statusSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	cfg, _, err := policy.Load(settings.PolicyPath)
	if err != nil {
		return err
	}
	if dir := strings.TrimSpace(settings.LogsDir); dir != "" {
		cfg.Artifacts.LogsDir = dir
	}
	if dir := strings.TrimSpace(settings.ReportsDir); dir != "" {
		cfg.Artifacts.ReportsDir = dir
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	summary := artifacts.NewReporter(cfg.Artifacts, logger).Summarize()
	if settings.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}
	dispatcher := dispatch.New(dispatch.Options{Runner: cfg.TaskRunner})
	console.NewPrinter(os.Stdout, console.ColorEnabled(os.Stdout), dispatcher.CommandFor).Status(summary)
	return nil
}

var _ cmds.BareCommand = &statusGlazedCommand{}

type serveGlazedCommand struct {
	*cmds.CommandDescription
}

type serveSettings struct {
	PolicyPath      string `glazed.parameter:"policy"`
	Addr            string `glazed.parameter:"addr"`
	Agent           string `glazed.parameter:"agent"`
	ShutdownTimeout string `glazed.parameter:"shutdown-timeout"`
}

func newServeGlazedCommand() (*serveGlazedCommand, error) {
	return &serveGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"serve",
			cmds.WithShort("Run the health endpoint server"),
			cmds.WithLong("Serve /status, /health and /ready until interrupted."),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"policy",
					parameters.ParameterTypeString,
					parameters.WithHelp("Path to policy file (defaults to .autolaunch/policy.json)"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"addr",
					parameters.ParameterTypeString,
					parameters.WithHelp("HTTP listen address (defaults to policy health.addr)"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"agent",
					parameters.ParameterTypeString,
					parameters.WithHelp("Agent name reported by /status (defaults to policy health.agent)"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"shutdown-timeout",
					parameters.ParameterTypeString,
					parameters.WithHelp("Graceful shutdown timeout (defaults to policy health.shutdown_timeout_seconds)"),
					parameters.WithDefault(""),
				),
			),
		),
	}, nil
}

func parseDurationSetting(flagName string, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid --%s duration %q: %w", flagName, value, err)
	}
	return duration, nil
}

func (c *serveGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &serveSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	cfg, _, err := policy.Load(settings.PolicyPath)
	if err != nil {
		return err
	}

	options := server.Options{
		Addr:            cfg.Health.Addr,
		Agent:           cfg.Health.Agent,
		ShutdownTimeout: time.Duration(cfg.Health.ShutdownTimeoutSeconds) * time.Second,
	}
	if addr := strings.TrimSpace(settings.Addr); addr != "" {
		options.Addr = addr
	}
	if agent := strings.TrimSpace(settings.Agent); agent != "" {
		options.Agent = agent
	}
	if strings.TrimSpace(settings.ShutdownTimeout) != "" {
		shutdownTimeout, err := parseDurationSetting("shutdown-timeout", settings.ShutdownTimeout)
		if err != nil {
			return err
		}
		options.ShutdownTimeout = shutdownTimeout
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	options.Logger = logger

	runtime, err := server.NewRuntime(options)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("serve starting", zap.String("addr", options.Addr), zap.String("agent", options.Agent))
	fmt.Printf("autolaunch serve listening on %s\n", options.Addr)
	return runtime.Run(ctx)
}

var _ cmds.BareCommand = &serveGlazedCommand{}
