package format_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/format"
)

func sampleResult() *diagnostic.ValidationResult {
	result := diagnostic.NewValidationResult()
	result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference, "undefined input \"RPC_URL\"").
		WithSpan(diagnostic.Span{File: "main.tx", Start: 20, End: 30}).
		WithSuggestion("define RPC_URL in the global environment", ""))
	result.AddWarning(diagnostic.New(diagnostic.Warning, diagnostic.CategoryStyle, "input \"LEGACY_KEY\" is deprecated").
		WithFile("main.tx"))
	result.AddSuggestion(diagnostic.New(diagnostic.Hint, diagnostic.CategoryDuplicate, "consider renaming for clarity").
		WithFile("main.tx"))
	return result
}

func readerFor(src string) func(string) []byte {
	return func(string) []byte { return []byte(src) }
}

const fixtureSource = "addon \"evm\" {\n  chain_id = input.CHAIN_ID\n  rpc = input.RPC_URL\n}\n"

func TestParseModeRejectsUnknownValue(t *testing.T) {
	if _, err := format.ParseMode("xml"); err == nil {
		t.Fatalf("expected an error for an unknown format")
	}
	m, err := format.ParseMode("json")
	if err != nil || m != format.JSON {
		t.Fatalf("expected json, got %v, %v", m, err)
	}
}

func TestBuildReportCountsAndShape(t *testing.T) {
	result := sampleResult()
	report := format.BuildReport(result, 1, readerFor(fixtureSource))

	if len(report.Errors) != 1 || len(report.Warnings) != 1 || len(report.Suggestions) != 1 {
		t.Fatalf("expected 1/1/1, got %d/%d/%d", len(report.Errors), len(report.Warnings), len(report.Suggestions))
	}
	if report.Summary.TotalIssues != 3 || report.Summary.RunbooksChecked != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	errIssue := report.Errors[0]
	if errIssue.Location == nil || errIssue.Location.File != "main.tx" || errIssue.Location.Line == 0 {
		t.Fatalf("expected a resolved location, got %+v", errIssue.Location)
	}
	if errIssue.Suggestion == "" {
		t.Fatalf("expected a suggestion to carry through")
	}
}

func TestWriteJSONProducesSummaryField(t *testing.T) {
	report := format.BuildReport(sampleResult(), 2, readerFor(fixtureSource))
	var buf bytes.Buffer
	if err := format.WriteJSON(&buf, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	summary, ok := decoded["summary"].(map[string]any)
	if !ok {
		t.Fatalf("expected a summary object, got %v", decoded["summary"])
	}
	if summary["runbooks_checked"].(float64) != 2 {
		t.Fatalf("expected runbooks_checked=2, got %v", summary["runbooks_checked"])
	}
}

func TestWriteQuickfixFormatsPositionsAndFallsBack(t *testing.T) {
	var buf bytes.Buffer
	format.WriteQuickfix(&buf, sampleResult(), readerFor(fixtureSource))
	out := buf.String()

	if !strings.Contains(out, "main.tx:") {
		t.Fatalf("expected a main.tx quickfix line, got %q", out)
	}
	if !strings.Contains(out, "error: undefined input") {
		t.Fatalf("expected the error message to appear, got %q", out)
	}
	if strings.Contains(out, "(see: ") {
		t.Fatalf("no fixture diagnostic has a docs URL, got %q", out)
	}
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if !strings.Contains(line, ":") {
			t.Fatalf("expected every quickfix line to contain a position, got %q", line)
		}
	}
}

func TestWriteQuickfixFallsBackToOneOneWithoutSpan(t *testing.T) {
	result := diagnostic.NewValidationResult()
	result.AddWarning(diagnostic.New(diagnostic.Warning, diagnostic.CategoryManifest, "no manifest found").
		WithFile("main.tx"))
	var buf bytes.Buffer
	format.WriteQuickfix(&buf, result, readerFor(fixtureSource))
	if !strings.Contains(buf.String(), "main.tx:1:1: warning:") {
		t.Fatalf("expected a 1:1 fallback position, got %q", buf.String())
	}
}

func TestWritePrettyReportsSuccessWhenNoErrors(t *testing.T) {
	result := diagnostic.NewValidationResult()
	result.AddWarning(diagnostic.New(diagnostic.Warning, diagnostic.CategoryStyle, "minor nit").WithFile("main.tx"))
	var buf bytes.Buffer
	format.WritePretty(&buf, result, readerFor(fixtureSource))
	out := buf.String()
	if !strings.Contains(out, "no errors found") {
		t.Fatalf("expected a success message, got %q", out)
	}
}

func TestWritePrettyListsErrorsWhenPresent(t *testing.T) {
	var buf bytes.Buffer
	format.WritePretty(&buf, sampleResult(), readerFor(fixtureSource))
	out := buf.String()
	if !strings.Contains(out, "Validation failed") {
		t.Fatalf("expected a failure header, got %q", out)
	}
	if !strings.Contains(out, "undefined input") {
		t.Fatalf("expected the error message, got %q", out)
	}
}
