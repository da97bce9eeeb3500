package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"autolaunch/internal/model"
)

const (
	NoLogsText    = "No logs yet (system hasn't run)"
	NoReportsText = "No reports yet (system hasn't run)"
	DocsPath      = "README_AUTONOMOUS.md"
)

type palette struct {
	header *color.Color
	yellow *color.Color
	blue   *color.Color
	green  *color.Color
	red    *color.Color
	cyan   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		header: color.New(color.FgHiCyan, color.Bold),
		yellow: color.New(color.FgHiYellow),
		blue:   color.New(color.FgHiBlue),
		green:  color.New(color.FgHiGreen),
		red:    color.New(color.FgHiRed),
		cyan:   color.New(color.FgHiCyan),
	}
	for _, c := range []*color.Color{p.header, p.yellow, p.blue, p.green, p.red, p.cyan} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// ColorEnabled honours NO_COLOR and CLICOLOR_FORCE, otherwise colors only a terminal.
func ColorEnabled(out io.Writer) bool {
	if os.Getenv("CLICOLOR_FORCE") == "1" {
		return true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type Printer struct {
	out    io.Writer
	colors palette
	// runner renders the user-facing command for a mode, e.g. "npm run autonomous:fix".
	runner func(model.Mode) string
}

func NewPrinter(out io.Writer, colorize bool, runner func(model.Mode) string) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if runner == nil {
		runner = func(mode model.Mode) string { return string(mode) }
	}
	return &Printer{out: out, colors: newPalette(colorize), runner: runner}
}

func (p *Printer) Banner() {
	fmt.Fprintln(p.out)
	p.colors.header.Fprintln(p.out, "╔════════════════════════════════════════════════════════════════╗")
	p.colors.header.Fprintln(p.out, "║  REAL ESTATE INTELLIGENCE - AUTONOMOUS AGENT LAUNCHER          ║")
	p.colors.header.Fprintln(p.out, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(p.out)
}

func (p *Printer) Usage() {
	p.colors.yellow.Fprintln(p.out, "USAGE:")
	fmt.Fprintln(p.out, "  autolaunch [--mode=]<mode>")
	fmt.Fprintln(p.out, "  autolaunch --mode <mode>")
	fmt.Fprintln(p.out, "  autolaunch status | serve | policy-init")
	fmt.Fprintln(p.out)
	for _, item := range model.ModeDescriptors() {
		fmt.Fprintf(p.out, "  %-34s # %s\n", p.runner(item.Mode), item.Description)
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) EnvironmentHeader() {
	p.colors.yellow.Fprintln(p.out, "Checking environment...")
}

func (p *Printer) ToolCheck(check model.ToolCheck) {
	if check.OK {
		fmt.Fprintf(p.out, "  ✅ %s: %s\n", check.Label, emptyValue(check.Version, "unknown"))
		return
	}
	hint := strings.TrimSpace(check.InstallHint)
	if hint == "" {
		fmt.Fprintf(p.out, "  ❌ %s not found.\n", check.Label)
		return
	}
	fmt.Fprintf(p.out, "  ❌ %s not found. %s\n", check.Label, hint)
}

func (p *Printer) Blank() {
	fmt.Fprintln(p.out)
}

func (p *Printer) Status(summary model.ArtifactSummary) {
	p.colors.blue.Fprintln(p.out, "System Status:")
	if summary.LatestLog != nil {
		fmt.Fprintf(p.out, "  ✅ Latest Log: %s\n", summary.LatestLog.Name)
	} else {
		fmt.Fprintf(p.out, "  ⓘ %s\n", NoLogsText)
	}
	if summary.LatestReport != nil {
		fmt.Fprintf(p.out, "  ✅ Latest Report: %s\n", summary.LatestReport.Name)
		if summary.Report.State == model.ReportSummaryPresent {
			fmt.Fprintf(p.out, "      • Modules: %d/%d successful\n", summary.Report.SuccessfulModules, summary.Report.TotalModules)
			fmt.Fprintf(p.out, "      • Issues: %d found\n", summary.Report.IssuesFound)
		}
	} else {
		fmt.Fprintf(p.out, "  ⓘ %s\n", NoReportsText)
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) Menu() {
	p.colors.green.Fprintln(p.out, "Available Commands:")
	fmt.Fprintln(p.out)
	for i, item := range model.ModeDescriptors() {
		fmt.Fprintf(p.out, "  %d. %-16s %s\n", i+1, item.Label, p.runner(item.Mode))
	}
	fmt.Fprintln(p.out)
}

func (p *Printer) QuickStart() {
	p.colors.cyan.Fprintf(p.out, "Quick start: %s\n", p.runner(model.ModeFullCycle))
	p.colors.cyan.Fprintf(p.out, "Or run:      %s (continuous)\n", p.runner(model.ModeMonitor))
	fmt.Fprintln(p.out)
	p.colors.yellow.Fprintf(p.out, "For details, see: %s\n", DocsPath)
	fmt.Fprintln(p.out)
}

func (p *Printer) Starting(mode model.Mode) {
	p.colors.green.Fprintf(p.out, "Starting Autonomous Agent: %s\n", strings.ToUpper(string(mode)))
	fmt.Fprintln(p.out)
}

func (p *Printer) InvalidMode(value string, valid string) {
	p.colors.red.Fprintf(p.out, "Invalid mode: %s\n", value)
	fmt.Fprintf(p.out, "Valid modes: %s\n", valid)
}

func (p *Printer) Usagef(format string, args ...any) {
	p.colors.red.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Result(result model.InvocationResult) {
	switch result.Status {
	case model.InvocationSucceeded:
		p.colors.green.Fprintf(p.out, "Mode %s completed in %s\n", result.Mode, result.Duration().Round(time.Millisecond))
	case model.InvocationInterrupted:
		fmt.Fprintln(p.out)
		p.colors.yellow.Fprintln(p.out, "Interrupted by user")
	default:
		if result.ExitCode >= 0 {
			p.colors.red.Fprintf(p.out, "Error running command: %s exited with code %d\n", result.Command, result.ExitCode)
			return
		}
		p.colors.red.Fprintf(p.out, "Error running command: %s: %s\n", result.Command, emptyValue(result.ErrorText, "unknown error"))
	}
}

func emptyValue(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
