package preflight

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"autolaunch/internal/model"
	"autolaunch/internal/policy"
)

// PreconditionError marks a required executable that could not be started.
type PreconditionError struct {
	Tool        string
	InstallHint string
	Err         error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("required tool %s is not available: %v", e.Tool, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// execCommand is swapped in tests.
var execCommand = exec.CommandContext

type Prober struct {
	tools  []policy.Tool
	logger *zap.Logger
}

func NewProber(tools []policy.Tool, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{tools: tools, logger: logger}
}

// Probe runs each tool's version command in order and stops at the first tool
// that cannot be started. A tool that starts but exits non-zero still passes.
func (p *Prober) Probe(ctx context.Context) (model.EnvironmentCheck, error) {
	check := model.EnvironmentCheck{}
	for _, tool := range p.tools {
		result := probeTool(ctx, tool)
		check.Tools = append(check.Tools, result.ToolCheck)
		if result.err != nil {
			p.logger.Warn("preflight tool missing",
				zap.String("tool", tool.Name),
				zap.Error(result.err),
			)
			return check, &PreconditionError{Tool: tool.Name, InstallHint: tool.InstallHint, Err: result.err}
		}
		p.logger.Debug("preflight tool ok",
			zap.String("tool", tool.Name),
			zap.String("version", result.Version),
		)
	}
	return check, nil
}

type toolResult struct {
	model.ToolCheck
	err error
}

func probeTool(ctx context.Context, tool policy.Tool) toolResult {
	check := model.ToolCheck{
		Name:        tool.Name,
		Label:       policy.ToolLabel(tool),
		InstallHint: tool.InstallHint,
	}
	cmd := execCommand(ctx, tool.Name, tool.VersionArgs...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			check.ErrorText = strings.TrimSpace(err.Error())
			return toolResult{ToolCheck: check, err: err}
		}
	}
	check.OK = true
	check.Version = strings.TrimSpace(string(out))
	return toolResult{ToolCheck: check}
}
