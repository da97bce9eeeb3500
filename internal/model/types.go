package model

import "time"

type Mode string

const (
	ModeFullCycle Mode = "full-cycle"
	ModeMonitor   Mode = "monitor"
	ModeDiagnose  Mode = "diagnose"
	ModeFix       Mode = "fix"
	ModeHeal      Mode = "heal"
	ModeOptimize  Mode = "optimize"
	ModeEnhance   Mode = "enhance"
	ModeAgent     Mode = "agent"
	ModeScheduler Mode = "scheduler"
)

type ModeDescriptor struct {
	Mode        Mode   `json:"mode"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// modeTable is the closed mode set in menu order.
var modeTable = []ModeDescriptor{
	{Mode: ModeFullCycle, Label: "Full Cycle", Description: "Run once"},
	{Mode: ModeMonitor, Label: "Monitor", Description: "Run continuously (every 6 hours)"},
	{Mode: ModeDiagnose, Label: "Diagnose", Description: "Diagnose issues"},
	{Mode: ModeFix, Label: "Fix Issues", Description: "Fix problems"},
	{Mode: ModeHeal, Label: "Heal", Description: "Recover from errors"},
	{Mode: ModeOptimize, Label: "Optimize", Description: "Optimize performance"},
	{Mode: ModeEnhance, Label: "Enhance", Description: "Get recommendations"},
	{Mode: ModeAgent, Label: "Agent", Description: "Run the autonomous agent directly"},
	{Mode: ModeScheduler, Label: "Scheduler", Description: "Start the run scheduler"},
}

func AllModes() []Mode {
	out := make([]Mode, 0, len(modeTable))
	for _, item := range modeTable {
		out = append(out, item.Mode)
	}
	return out
}

func ModeDescriptors() []ModeDescriptor {
	out := make([]ModeDescriptor, len(modeTable))
	copy(out, modeTable)
	return out
}

func ModeInfo(mode Mode) (ModeDescriptor, bool) {
	for _, item := range modeTable {
		if item.Mode == mode {
			return item, true
		}
	}
	return ModeDescriptor{}, false
}

// IsValidMode reports exact membership; no trimming or case folding.
func IsValidMode(value string) bool {
	_, ok := ModeInfo(Mode(value))
	return ok
}

type InvocationStatus string

const (
	InvocationSucceeded   InvocationStatus = "succeeded"
	InvocationFailed      InvocationStatus = "failed"
	InvocationInterrupted InvocationStatus = "interrupted"
)

type InvocationResult struct {
	InvocationID string           `json:"invocation_id"`
	Mode         Mode             `json:"mode"`
	Command      string           `json:"command"`
	Status       InvocationStatus `json:"status"`
	ExitCode     int              `json:"exit_code"`
	ErrorText    string           `json:"error_text,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}

func (r InvocationResult) Succeeded() bool {
	return r.Status == InvocationSucceeded
}

func (r InvocationResult) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type ReportSummaryState string

const (
	ReportSummaryAbsent   ReportSummaryState = "absent"
	ReportSummaryDegraded ReportSummaryState = "degraded"
	ReportSummaryPresent  ReportSummaryState = "present"
)

type ReportSummary struct {
	State             ReportSummaryState `json:"state"`
	SuccessfulModules int                `json:"successful_modules"`
	TotalModules      int                `json:"total_modules"`
	IssuesFound       int                `json:"issues_found"`
	Reason            string             `json:"reason,omitempty"`
}

type ArtifactRef struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
}

type ArtifactSummary struct {
	LatestLog    *ArtifactRef  `json:"latest_log,omitempty"`
	LatestReport *ArtifactRef  `json:"latest_report,omitempty"`
	Report       ReportSummary `json:"report"`
}

type ToolCheck struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	OK          bool   `json:"ok"`
	Version     string `json:"version,omitempty"`
	ErrorText   string `json:"error_text,omitempty"`
	InstallHint string `json:"install_hint,omitempty"`
}

type EnvironmentCheck struct {
	Tools []ToolCheck `json:"tools"`
}

func (c EnvironmentCheck) OK() bool {
	if len(c.Tools) == 0 {
		return false
	}
	for _, tool := range c.Tools {
		if !tool.OK {
			return false
		}
	}
	return true
}

type DispatchState string

const (
	DispatchUnvalidated DispatchState = "unvalidated"
	DispatchValidated   DispatchState = "validated"
	DispatchRejected    DispatchState = "rejected"
	DispatchDispatched  DispatchState = "dispatched"
	DispatchSucceeded   DispatchState = "succeeded"
	DispatchFailed      DispatchState = "failed"
	DispatchInterrupted DispatchState = "interrupted"
)
