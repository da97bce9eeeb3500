package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPolicyPath = ".autolaunch/policy.json"

	EnvPolicyPath = "AUTOLAUNCH_POLICY"
	EnvLogLevel   = "AUTOLAUNCH_LOG_LEVEL"
)

type Config struct {
	Version    int        `json:"version" yaml:"version"`
	TaskRunner TaskRunner `json:"task_runner" yaml:"task_runner"`
	Tools      []Tool     `json:"tools" yaml:"tools"`
	Artifacts  Artifacts  `json:"artifacts" yaml:"artifacts"`
	Health     Health     `json:"health" yaml:"health"`
	Log        Log        `json:"log" yaml:"log"`
}

type TaskRunner struct {
	Program      string `json:"program" yaml:"program"`
	ScriptPrefix string `json:"script_prefix" yaml:"script_prefix"`
	Shell        string `json:"shell" yaml:"shell"`
	// GraceSeconds bounds how long an interrupted child may take to exit.
	GraceSeconds int `json:"grace_seconds" yaml:"grace_seconds"`
}

type Tool struct {
	Name        string   `json:"name" yaml:"name"`
	Label       string   `json:"label" yaml:"label"`
	VersionArgs []string `json:"version_args" yaml:"version_args"`
	InstallHint string   `json:"install_hint" yaml:"install_hint"`
}

type Artifacts struct {
	LogsDir       string `json:"logs_dir" yaml:"logs_dir"`
	LogPattern    string `json:"log_pattern" yaml:"log_pattern"`
	ReportsDir    string `json:"reports_dir" yaml:"reports_dir"`
	ReportPattern string `json:"report_pattern" yaml:"report_pattern"`
}

type Health struct {
	Addr                   string `json:"addr" yaml:"addr"`
	Agent                  string `json:"agent" yaml:"agent"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

type Log struct {
	Level string `json:"level" yaml:"level"`
}

func Default() Config {
	cfg := Config{
		Version: 1,
	}
	cfg.TaskRunner.Program = "npm"
	cfg.TaskRunner.ScriptPrefix = "autonomous:"
	cfg.TaskRunner.Shell = "sh"
	cfg.TaskRunner.GraceSeconds = 10
	cfg.Tools = []Tool{
		{
			Name:        "node",
			Label:       "Node.js",
			VersionArgs: []string{"--version"},
			InstallHint: "Please install Node.js from https://nodejs.org",
		},
		{
			Name:        "npm",
			Label:       "npm",
			VersionArgs: []string{"--version"},
			InstallHint: "Please install npm.",
		},
	}
	cfg.Artifacts.LogsDir = filepath.Join("logs", "autonomous")
	cfg.Artifacts.LogPattern = "*.log"
	cfg.Artifacts.ReportsDir = filepath.Join("reports", "autonomous")
	cfg.Artifacts.ReportPattern = "*.json"
	cfg.Health.Addr = ":8080"
	cfg.Health.Agent = "autolaunch"
	cfg.Health.ShutdownTimeoutSeconds = 5
	cfg.Log.Level = "warn"
	return cfg
}

// ResolvePath picks the explicit path, then $AUTOLAUNCH_POLICY, then the default.
func ResolvePath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if fromEnv := strings.TrimSpace(os.Getenv(EnvPolicyPath)); fromEnv != "" {
		return fromEnv
	}
	return DefaultPolicyPath
}

func Load(path string) (Config, string, error) {
	cfg := Default()
	finalPath := ResolvePath(path)
	if _, err := os.Stat(finalPath); os.IsNotExist(err) {
		applyEnvOverrides(&cfg)
		return cfg, finalPath, nil
	}

	b, err := os.ReadFile(finalPath)
	if err != nil {
		return cfg, finalPath, fmt.Errorf("read policy %s: %w", finalPath, err)
	}
	if err := decode(finalPath, b, &cfg); err != nil {
		return cfg, finalPath, fmt.Errorf("parse policy %s: %w", finalPath, err)
	}
	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, finalPath, fmt.Errorf("validate policy %s: %w", finalPath, err)
	}
	return cfg, finalPath, nil
}

func decode(path string, b []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnvOverrides(cfg *Config) {
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.Log.Level = level
	}
}

func SaveDefault(path string) error {
	cfg := Default()
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(cfg)
	default:
		b, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func Validate(cfg Config) error {
	if cfg.Version <= 0 {
		return fmt.Errorf("version must be positive")
	}
	if strings.TrimSpace(cfg.TaskRunner.Program) == "" {
		return fmt.Errorf("task_runner.program cannot be empty")
	}
	if strings.TrimSpace(cfg.TaskRunner.Shell) == "" {
		return fmt.Errorf("task_runner.shell cannot be empty")
	}
	if cfg.TaskRunner.GraceSeconds <= 0 {
		return fmt.Errorf("task_runner.grace_seconds must be positive")
	}
	if len(cfg.Tools) == 0 {
		return fmt.Errorf("tools must contain at least one entry")
	}
	for _, tool := range cfg.Tools {
		if strings.TrimSpace(tool.Name) == "" {
			return fmt.Errorf("tool.name cannot be empty")
		}
	}
	if strings.TrimSpace(cfg.Artifacts.LogsDir) == "" || strings.TrimSpace(cfg.Artifacts.ReportsDir) == "" {
		return fmt.Errorf("artifacts.logs_dir and artifacts.reports_dir cannot be empty")
	}
	for name, pattern := range map[string]string{
		"artifacts.log_pattern":    cfg.Artifacts.LogPattern,
		"artifacts.report_pattern": cfg.Artifacts.ReportPattern,
	} {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%s %q: %w", name, pattern, err)
		}
	}
	if strings.TrimSpace(cfg.Health.Addr) == "" {
		return fmt.Errorf("health.addr cannot be empty")
	}
	if cfg.Health.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("health.shutdown_timeout_seconds must be > 0")
	}
	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ToolLabel falls back to the executable name.
func ToolLabel(tool Tool) string {
	if strings.TrimSpace(tool.Label) != "" {
		return tool.Label
	}
	return tool.Name
}
