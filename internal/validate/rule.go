package validate

import (
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
)

// OutcomeKind is the result of one rule check — spec.md §4.6.
type OutcomeKind int

const (
	Pass OutcomeKind = iota
	OutcomeError
	OutcomeWarning
)

// Outcome is what a Rule's Check returns.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	// Category classifies the resulting Diagnostic; defaults to
	// diagnostic.CategoryStyle when left unset, since most style-only
	// rules don't need to name one explicitly.
	Category   diagnostic.Category
	Context    string
	Suggestion *diagnostic.Suggestion
	DocsURL    string
	// Span, if set, anchors the outcome to a specific source location;
	// otherwise the diagnostic is anchored to the element the rule ran
	// against.
	Span *diagnostic.Span
}

// Rule is the pluggable validation-rule interface (spec.md §4.6). Rules
// store no mutable state between calls; a Rule set's ordering is
// registration order, matching the teacher's Provider interface
// (pkg/providers/provider.go) in spirit: a small, strict capability
// surface implemented by many concrete types.
type Rule interface {
	Name() string
	Description() string
	// Check runs the rule once per applicable element and is called
	// repeatedly by the engine — once per defined input, per declared
	// output, etc. — with a Context scoped to that one element.
	Check(ctx *Context) []Outcome
}

// Context is the read-only view passed to a Rule. It exposes the
// collected state plus the effective-inputs map; rules cannot mutate it.
type Context struct {
	File      string
	State     *State
	Registry  *addon.Registry
	Effective map[string]string
	EnvName   string
	Manifest  ManifestView

	// Element-specific fields, populated by the engine depending on which
	// candidate the rule is being run against.
	ElementKind string // "input", "variable", "action", "addon", ...
	ElementName string
	ElementSpan diagnostic.Span
}

// ManifestView is the narrow read-only manifest surface rules need,
// decoupling internal/validate from internal/manifest's concrete type.
type ManifestView interface {
	DeprecatedInputs() map[string]bool
}
