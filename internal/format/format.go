// Package format renders a validation result for the CLI's three output
// modes (pretty, JSON, quickfix) — spec.md §6 "CLI surface of the
// diagnostic tool." Grounded on cmd/gert/main.go's runValidate, which
// separates warnings from errors and prints both with severity glyphs; the
// JSON/quickfix shapes are new surfaces the teacher's CLI never had, built
// in the same idiom.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/txtx-tools/doctor/internal/diagnostic"
)

// Mode selects one of the three rendering styles, or Auto to pick pretty
// vs. quickfix based on whether stdout is a terminal.
type Mode string

const (
	Auto     Mode = "auto"
	Pretty   Mode = "pretty"
	JSON     Mode = "json"
	Quickfix Mode = "quickfix"
)

// ParseMode validates a --format flag value.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case Auto, Pretty, JSON, Quickfix:
		return Mode(raw), nil
	default:
		return "", fmt.Errorf("unknown format %q (want auto, pretty, json, or quickfix)", raw)
	}
}

// Resolve turns Auto into Pretty or Quickfix depending on whether fd looks
// like an interactive terminal — isatty.IsTerminal mirrors the check
// bubbletea programs use before enabling styled output (pkg/tui).
func Resolve(mode Mode, fd uintptr) Mode {
	if mode != Auto {
		return mode
	}
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return Pretty
	}
	return Quickfix
}

// Location is a JSON-serializable file position.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// Issue is one diagnostic in the JSON output shape from spec.md §6.
type Issue struct {
	Severity          string    `json:"severity"`
	Category          string    `json:"category,omitempty"`
	Message           string    `json:"message"`
	Location          *Location `json:"location,omitempty"`
	Context           string    `json:"context,omitempty"`
	Suggestion        string    `json:"suggestion,omitempty"`
	DocumentationLink string    `json:"documentation_link,omitempty"`
}

// Summary is the JSON output's aggregate counts block.
type Summary struct {
	TotalIssues     int `json:"total_issues"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	RunbooksChecked int `json:"runbooks_checked"`
}

// Report is the full JSON document.
type Report struct {
	Errors      []Issue `json:"errors"`
	Warnings    []Issue `json:"warnings"`
	Suggestions []Issue `json:"suggestions"`
	Summary     Summary `json:"summary"`
}

func toIssue(d *diagnostic.Diagnostic, idx *diagnostic.LineIndexCache, readSource func(file string) []byte) Issue {
	issue := Issue{
		Severity:          d.Severity.String(),
		Category:          string(d.Category),
		Message:           d.Message,
		Context:           d.Context,
		DocumentationLink: d.DocsURL,
	}
	if d.Suggestion != nil {
		issue.Suggestion = d.Suggestion.Message
	}
	file := d.File
	if file == "" && d.Span != nil {
		file = d.Span.File
	}
	if file != "" {
		loc := &Location{File: file}
		if d.Span != nil {
			pos := idx.Get(file, func() []byte { return readSource(file) }).PositionFor(d.Span.Start)
			loc.Line, loc.Column = pos.Line, pos.Column
		}
		issue.Location = loc
	}
	return issue
}

// BuildReport converts result into the JSON Report shape, resolving
// positions lazily via readSource (e.g. os.ReadFile, or an in-memory
// lookup for documents the LSP already has open).
func BuildReport(result *diagnostic.ValidationResult, runbooksChecked int, readSource func(file string) []byte) Report {
	idx := diagnostic.NewLineIndexCache()
	report := Report{}
	for _, d := range result.Errors() {
		report.Errors = append(report.Errors, toIssue(d, idx, readSource))
	}
	for _, d := range result.Warnings() {
		report.Warnings = append(report.Warnings, toIssue(d, idx, readSource))
	}
	for _, d := range result.Suggestions() {
		report.Suggestions = append(report.Suggestions, toIssue(d, idx, readSource))
	}
	report.Summary = Summary{
		TotalIssues:     result.Count(),
		Errors:          len(report.Errors),
		Warnings:        len(report.Warnings),
		RunbooksChecked: runbooksChecked,
	}
	return report
}

// WriteJSON marshals report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteQuickfix prints one diagnostic per line in the
// "<path>:<line>:<column>: <severity>: <message>[ (see: <url>)]" shape
// spec.md §6 defines, sorted by file then line for stable editor jump
// lists.
func WriteQuickfix(w io.Writer, result *diagnostic.ValidationResult, readSource func(file string) []byte) {
	idx := diagnostic.NewLineIndexCache()
	all := append(append(append([]*diagnostic.Diagnostic{}, result.Errors()...), result.Warnings()...), result.Suggestions()...)

	type line struct {
		file string
		pos  diagnostic.Position
		text string
	}
	lines := make([]line, 0, len(all))
	for _, d := range all {
		file := d.File
		if file == "" && d.Span != nil {
			file = d.Span.File
		}
		pos := diagnostic.Position{Line: 1, Column: 1}
		if d.Span != nil && file != "" {
			pos = idx.Get(file, func() []byte { return readSource(file) }).PositionFor(d.Span.Start)
		}
		msg := fmt.Sprintf("%s:%d:%d: %s: %s", file, pos.Line, pos.Column, d.Severity, d.Message)
		if d.DocsURL != "" {
			msg += fmt.Sprintf(" (see: %s)", d.DocsURL)
		}
		lines = append(lines, line{file: file, pos: pos, text: msg})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].file != lines[j].file {
			return lines[i].file < lines[j].file
		}
		return lines[i].pos.Line < lines[j].pos.Line
	})
	for _, l := range lines {
		fmt.Fprintln(w, l.text)
	}
}

var (
	errorLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warningLabel    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	suggestionLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	successStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// WritePretty renders a human-facing, color-styled report in the severity
// bucketing of cmd/gert's runValidate: warnings and suggestions first,
// then a numbered error list, then a summary line.
func WritePretty(w io.Writer, result *diagnostic.ValidationResult, readSource func(file string) []byte) {
	idx := diagnostic.NewLineIndexCache()
	locate := func(d *diagnostic.Diagnostic) string {
		file := d.File
		if file == "" && d.Span != nil {
			file = d.Span.File
		}
		if file == "" {
			return ""
		}
		if d.Span == nil {
			return file
		}
		pos := idx.Get(file, func() []byte { return readSource(file) }).PositionFor(d.Span.Start)
		return fmt.Sprintf("%s:%d:%d", file, pos.Line, pos.Column)
	}

	for _, d := range result.Suggestions() {
		fmt.Fprintf(w, "  %s %s\n", suggestionLabel.Render("hint"), d.Message)
		if loc := locate(d); loc != "" {
			fmt.Fprintf(w, "    %s\n", dimStyle.Render("at: "+loc))
		}
	}
	for _, d := range result.Warnings() {
		fmt.Fprintf(w, "  %s %s\n", warningLabel.Render("⚠"), d.Message)
		if loc := locate(d); loc != "" {
			fmt.Fprintf(w, "    %s\n", dimStyle.Render("at: "+loc))
		}
	}

	errs := result.Errors()
	if len(errs) > 0 {
		fmt.Fprintf(w, "%s\n\n", errorLabel.Render(fmt.Sprintf("Validation failed: %d error(s)", len(errs))))
		for i, d := range errs {
			fmt.Fprintf(w, "  %d. %s %s\n", i+1, errorLabel.Render("✗"), d.Message)
			if loc := locate(d); loc != "" {
				fmt.Fprintf(w, "     %s\n", dimStyle.Render("at: "+loc))
			}
			if d.Suggestion != nil {
				fmt.Fprintf(w, "     %s\n", dimStyle.Render("suggestion: "+d.Suggestion.Message))
			}
		}
		return
	}

	fmt.Fprintf(w, "%s\n", successStyle.Render("✓ no errors found"))
	if n := len(result.Warnings()); n > 0 {
		fmt.Fprintf(w, "%s\n", dimStyle.Render(fmt.Sprintf("  %d warning(s)", n)))
	}
}
