package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"

	"autolaunch/internal/model"
	"autolaunch/internal/policy"
)

type Reporter struct {
	cfg    policy.Artifacts
	logger *zap.Logger
}

func NewReporter(cfg policy.Artifacts, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{cfg: cfg, logger: logger}
}

// Summarize never fails: missing directories and unreadable or malformed
// reports show up as absent or degraded fields of the summary.
func (r *Reporter) Summarize() model.ArtifactSummary {
	summary := model.ArtifactSummary{
		Report: model.ReportSummary{State: model.ReportSummaryAbsent},
	}
	if log, ok := Latest(r.cfg.LogsDir, r.cfg.LogPattern); ok {
		summary.LatestLog = &log
	}
	report, ok := Latest(r.cfg.ReportsDir, r.cfg.ReportPattern)
	if !ok {
		return summary
	}
	summary.LatestReport = &report
	summary.Report = ReadReportSummary(report.Path)
	if summary.Report.State == model.ReportSummaryDegraded {
		r.logger.Debug("report summary unavailable",
			zap.String("report", report.Path),
			zap.String("reason", summary.Report.Reason),
		)
	}
	return summary
}

type reportDocument struct {
	Summary *json.RawMessage `json:"summary"`
}

type reportCounts struct {
	SuccessfulModules *float64 `json:"successfulModules"`
	TotalModules      *float64 `json:"totalModules"`
	IssuesFound       *float64 `json:"issuesFound"`
}

// ReadReportSummary extracts the nested summary counts of a report file.
// Missing counts read as zero.
func ReadReportSummary(path string) model.ReportSummary {
	b, err := os.ReadFile(path)
	if err != nil {
		return degraded("read report: %v", err)
	}
	return parseReportSummary(b)
}

func parseReportSummary(b []byte) model.ReportSummary {
	var doc reportDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return degraded("parse report: %v", err)
	}
	if doc.Summary == nil || bytes.Equal(bytes.TrimSpace(*doc.Summary), []byte("null")) {
		return degraded("report has no summary")
	}
	var counts reportCounts
	if err := json.Unmarshal(*doc.Summary, &counts); err != nil {
		return degraded("parse summary: %v", err)
	}
	successful, err := countValue("successfulModules", counts.SuccessfulModules)
	if err != nil {
		return degraded("%v", err)
	}
	total, err := countValue("totalModules", counts.TotalModules)
	if err != nil {
		return degraded("%v", err)
	}
	issues, err := countValue("issuesFound", counts.IssuesFound)
	if err != nil {
		return degraded("%v", err)
	}
	return model.ReportSummary{
		State:             model.ReportSummaryPresent,
		SuccessfulModules: successful,
		TotalModules:      total,
		IssuesFound:       issues,
	}
}

func countValue(name string, value *float64) (int, error) {
	if value == nil {
		return 0, nil
	}
	if math.IsNaN(*value) || math.IsInf(*value, 0) || *value > math.MaxInt32 || *value < math.MinInt32 {
		return 0, fmt.Errorf("summary.%s out of range", name)
	}
	return int(*value), nil
}

func degraded(format string, args ...any) model.ReportSummary {
	return model.ReportSummary{
		State:  model.ReportSummaryDegraded,
		Reason: fmt.Sprintf(format, args...),
	}
}
