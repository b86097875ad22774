// Package diagnostic defines the value types shared by every other
// component of the validation core: positions, spans, severities, and the
// Diagnostic itself, plus the ValidationResult aggregator used by a single
// validation call.
package diagnostic

import "fmt"

// Severity is the level of a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// Category is a machine-readable classification of a Diagnostic.
type Category string

const (
	CategoryParse      Category = "parse"
	CategoryReference  Category = "reference"
	CategoryInput      Category = "input_validation"
	CategoryAddon      Category = "addon"
	CategoryStyle      Category = "style"
	CategorySecurity   Category = "security"
	CategoryDuplicate  Category = "duplicate"
	CategoryManifest   Category = "manifest"
)

// Position is a 1-based line/column pair within a single logical file.
type Position struct {
	Line   int
	Column int
}

// Span is a half-open byte range [Start, End) into a specific file. Start
// and End are raw byte offsets, not Unicode scalar counts; only the
// derived Position (see LineIndex.PositionFor) counts columns by scalar
// value.
type Span struct {
	File  string
	Start int
	End   int
}

// Suggestion is a short actionable hint attached to a Diagnostic.
type Suggestion struct {
	Message string
	Example string
}

// Diagnostic is a single error/warning/info/hint produced by the engine.
type Diagnostic struct {
	Severity    Severity
	Message     string
	File        string
	Span        *Span
	Context     string
	Category    Category
	Suggestion  *Suggestion
	DocsURL     string
}

// Position returns the diagnostic's 1-based position, falling back to
// (1,1) for editor navigability when no span — or no cached line index —
// is available. Callers that have a *LineIndex for the file and a non-nil
// span can call idx.PositionFor(d.Span.Start) directly.
func (d *Diagnostic) Position(idx *LineIndex) Position {
	if d.Span == nil || idx == nil {
		return Position{Line: 1, Column: 1}
	}
	return idx.PositionFor(d.Span.Start)
}

func (d *Diagnostic) key() string {
	start, end := -1, -1
	file := d.File
	if d.Span != nil {
		start, end = d.Span.Start, d.Span.End
		if file == "" {
			file = d.Span.File
		}
	}
	return fmt.Sprintf("%s|%d|%d|%s|%s", file, start, end, d.Category, d.Message)
}

// New constructs a Diagnostic at the given severity.
func New(sev Severity, category Category, message string) *Diagnostic {
	return &Diagnostic{Severity: sev, Category: category, Message: message}
}

// WithSpan attaches a span (and derives File from it if unset) and returns
// the same Diagnostic for chaining.
func (d *Diagnostic) WithSpan(span Span) *Diagnostic {
	d.Span = &span
	if d.File == "" {
		d.File = span.File
	}
	return d
}

// WithFile sets the file path directly, for diagnostics with no span.
func (d *Diagnostic) WithFile(file string) *Diagnostic {
	d.File = file
	return d
}

// WithContext attaches a human-readable context string.
func (d *Diagnostic) WithContext(ctx string) *Diagnostic {
	d.Context = ctx
	return d
}

// WithSuggestion attaches a suggestion.
func (d *Diagnostic) WithSuggestion(message, example string) *Diagnostic {
	d.Suggestion = &Suggestion{Message: message, Example: example}
	return d
}

// WithDocs attaches a documentation URL.
func (d *Diagnostic) WithDocs(url string) *Diagnostic {
	d.DocsURL = url
	return d
}
