package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autolaunch/internal/model"
	"autolaunch/internal/policy"
)

func writeArtifact(t *testing.T, dir string, name string, body string, modTime time.Time) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

func testArtifactsConfig(root string) policy.Artifacts {
	cfg := policy.Default().Artifacts
	cfg.LogsDir = filepath.Join(root, "logs", "autonomous")
	cfg.ReportsDir = filepath.Join(root, "reports", "autonomous")
	return cfg
}

func TestLatestPicksNewestModificationTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeArtifact(t, dir, "autonomous-c.log", "c", base.Add(-2*time.Hour))
	writeArtifact(t, dir, "autonomous-a.log", "a", base)
	writeArtifact(t, dir, "autonomous-b.log", "b", base.Add(-time.Hour))
	writeArtifact(t, dir, "notes.txt", "ignored", base.Add(time.Hour))

	got, ok := Latest(dir, "*.log")
	if !ok {
		t.Fatalf("expected a match")
	}
	if got.Name != "autonomous-a.log" {
		t.Fatalf("expected autonomous-a.log, got %s", got.Name)
	}
	if got.Path != filepath.Join(dir, "autonomous-a.log") {
		t.Fatalf("unexpected path %s", got.Path)
	}
}

func TestLatestBreaksTiesByName(t *testing.T) {
	dir := t.TempDir()
	same := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeArtifact(t, dir, "run-1.log", "", same)
	writeArtifact(t, dir, "run-3.log", "", same)
	writeArtifact(t, dir, "run-2.log", "", same)

	for i := 0; i < 3; i++ {
		got, ok := Latest(dir, "*.log")
		if !ok || got.Name != "run-3.log" {
			t.Fatalf("expected stable tie-break to run-3.log, got %q (ok=%t)", got.Name, ok)
		}
	}
}

func TestLatestIsNonRecursiveAndSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeArtifact(t, filepath.Join(dir, "nested"), "deep.log", "", now.Add(time.Hour))
	if err := os.Mkdir(filepath.Join(dir, "folder.log"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeArtifact(t, dir, "top.log", "", now)

	got, ok := Latest(dir, "*.log")
	if !ok || got.Name != "top.log" {
		t.Fatalf("expected top.log, got %q (ok=%t)", got.Name, ok)
	}
}

func TestLatestFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := writeArtifact(t, filepath.Join(dir, "store"), "run-1.log", "", time.Now())
	logs := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logs, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Symlink(target, filepath.Join(logs, "latest.log")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "store"), filepath.Join(logs, "linked-dir.log")); err != nil {
		t.Fatalf("symlink dir: %v", err)
	}
	if err := os.Symlink(filepath.Join(dir, "gone.log"), filepath.Join(logs, "dangling.log")); err != nil {
		t.Fatalf("symlink dangling: %v", err)
	}

	got, ok := Latest(logs, "*.log")
	if !ok || got.Name != "latest.log" {
		t.Fatalf("expected latest.log through its symlink, got %q (ok=%t)", got.Name, ok)
	}
	if got.Path != filepath.Join(logs, "latest.log") {
		t.Fatalf("expected path inside the logs dir, got %q", got.Path)
	}
}

func TestLatestNoMatch(t *testing.T) {
	dir := t.TempDir()
	if _, ok := Latest(dir, "*.log"); ok {
		t.Fatalf("expected no match in empty dir")
	}
	if _, ok := Latest(filepath.Join(dir, "missing"), "*.log"); ok {
		t.Fatalf("expected no match for missing dir")
	}
	writeArtifact(t, dir, "a.log", "", time.Now())
	if _, ok := Latest(dir, "["); ok {
		t.Fatalf("expected no match for malformed pattern")
	}
}

func TestSummarizeWithoutDirectories(t *testing.T) {
	reporter := NewReporter(testArtifactsConfig(t.TempDir()), nil)
	got := reporter.Summarize()
	want := model.ArtifactSummary{Report: model.ReportSummary{State: model.ReportSummaryAbsent}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeEmptyDirectories(t *testing.T) {
	cfg := testArtifactsConfig(t.TempDir())
	for _, dir := range []string{cfg.LogsDir, cfg.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	got := NewReporter(cfg, nil).Summarize()
	if got.LatestLog != nil || got.LatestReport != nil {
		t.Fatalf("expected no artifacts, got %+v", got)
	}
}

func TestSummarizeReadsNestedSummary(t *testing.T) {
	cfg := testArtifactsConfig(t.TempDir())
	now := time.Now()
	writeArtifact(t, cfg.LogsDir, "autonomous-1.log", "{}", now)
	writeArtifact(t, cfg.ReportsDir, "analysis-old.json", `{"summary":{"totalModules":1}}`, now.Add(-time.Hour))
	writeArtifact(t, cfg.ReportsDir, "analysis-new.json", `{
  "timestamp": "2026-03-01",
  "summary": {"totalModules": 7, "successfulModules": 6, "failedModules": 1, "issuesFound": 3}
}`, now)

	got := NewReporter(cfg, nil).Summarize()
	if got.LatestLog == nil || got.LatestLog.Name != "autonomous-1.log" {
		t.Fatalf("unexpected latest log: %+v", got.LatestLog)
	}
	if got.LatestReport == nil || got.LatestReport.Name != "analysis-new.json" {
		t.Fatalf("unexpected latest report: %+v", got.LatestReport)
	}
	want := model.ReportSummary{
		State:             model.ReportSummaryPresent,
		SuccessfulModules: 6,
		TotalModules:      7,
		IssuesFound:       3,
	}
	if diff := cmp.Diff(want, got.Report); diff != "" {
		t.Fatalf("report summary mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeMalformedReportKeepsFileName(t *testing.T) {
	cfg := testArtifactsConfig(t.TempDir())
	writeArtifact(t, cfg.ReportsDir, "analysis-bad.json", "{ this is not json", time.Now())

	got := NewReporter(cfg, nil).Summarize()
	if got.LatestReport == nil || got.LatestReport.Name != "analysis-bad.json" {
		t.Fatalf("expected malformed report name to be kept, got %+v", got.LatestReport)
	}
	if got.Report.State != model.ReportSummaryDegraded {
		t.Fatalf("expected degraded summary, got %s", got.Report.State)
	}
	if got.Report.TotalModules != 0 || got.Report.SuccessfulModules != 0 || got.Report.IssuesFound != 0 {
		t.Fatalf("expected zero counts for degraded summary, got %+v", got.Report)
	}
}

func TestParseReportSummaryVariants(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		want  model.ReportSummaryState
		total int
	}{
		{name: "missing counts default to zero", body: `{"summary":{}}`, want: model.ReportSummaryPresent},
		{name: "partial counts", body: `{"summary":{"totalModules":4}}`, want: model.ReportSummaryPresent, total: 4},
		{name: "no summary", body: `{"modules":[]}`, want: model.ReportSummaryDegraded},
		{name: "null summary", body: `{"summary":null}`, want: model.ReportSummaryDegraded},
		{name: "summary not an object", body: `{"summary":"done"}`, want: model.ReportSummaryDegraded},
		{name: "non-numeric count", body: `{"summary":{"totalModules":"seven"}}`, want: model.ReportSummaryDegraded},
		{name: "top-level array", body: `[1,2,3]`, want: model.ReportSummaryDegraded},
		{name: "empty file", body: ``, want: model.ReportSummaryDegraded},
		{name: "invalid utf8 bytes", body: "\xff\xfe\x00", want: model.ReportSummaryDegraded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseReportSummary([]byte(tc.body))
			if got.State != tc.want {
				t.Fatalf("expected state %s, got %s (reason=%q)", tc.want, got.State, got.Reason)
			}
			if got.TotalModules != tc.total {
				t.Fatalf("expected total %d, got %d", tc.total, got.TotalModules)
			}
		})
	}
}

func TestReadReportSummaryUnreadableFile(t *testing.T) {
	got := ReadReportSummary(filepath.Join(t.TempDir(), "gone.json"))
	if got.State != model.ReportSummaryDegraded {
		t.Fatalf("expected degraded summary for missing file, got %s", got.State)
	}
}
