// Package validate implements the validation engine (C5): a two-pass HCL
// AST traversal — collection, then reference/usage — plus the pluggable
// rule loop from spec.md §4.5.
package validate

import "github.com/txtx-tools/doctor/internal/diagnostic"

// ActionDef records one `action "name" "ns::action_type"` block.
type ActionDef struct {
	Namespace string
	Action    string
	Span      diagnostic.Span
}

// SignerDef records one `signer "name" "ns::signer_type"` block.
type SignerDef struct {
	Namespace  string
	SignerType string
	Span       diagnostic.Span
}

// FlowDef records one `flow "name"` block and the set of input names it
// introduces.
type FlowDef struct {
	Span   diagnostic.Span
	Inputs map[string]diagnostic.Span
}

// BlockContext identifies the block pass 2 is currently inside, used for
// flow-input scoping and the "reference inside its own defining block
// counts as after" exception (spec.md §4.5 "Ordering and tie-breaks").
type BlockContext struct {
	Kind     string
	Name     string
	FlowName string // non-empty only while inside a flow block
}

// State is the validation state built by pass 1 and consumed by pass 2 —
// spec.md §3 "Validation State". One State is allocated per validation
// call and discarded on return.
type State struct {
	Actions        map[string]ActionDef
	Signers        map[string]SignerDef
	Variables      map[string]diagnostic.Span
	Outputs        map[string]diagnostic.Span
	Flows          map[string]FlowDef
	DeclaredAddons map[string]bool
	AddonSpans     map[string]diagnostic.Span
	TopLevelInputs map[string]diagnostic.Span

	// UsedInputs records, in pass 2, each input.X / env.X reference whose
	// key is present in the effective inputs. No built-in rule reads it.
	UsedInputs map[string]bool

	// VariableRefs/OutputRefs record, per variable or output name, the set
	// of other variable/output names its attributes reference — the
	// dependency edges the best-effort CircularDependency rule walks.
	VariableRefs map[string][]string
	OutputRefs   map[string][]string

	// ReferencedVariables tracks every variable.X reference seen, for the
	// UnusedVariable rule.
	ReferencedVariables map[string]bool

	// DeclarationOrder lists the first definition of each block kind/name
	// in the source order pass 1 saw them; pass 1 uses it to detect
	// duplicate definitions.
	DeclarationOrder []DeclKey

	// Attributes records every attribute pass 1 saw, tagged with the block
	// that owns it. Rules use this to inspect individual attribute values —
	// e.g. RequiredInput checks which names were provided, SensitiveData
	// checks literal string values — without re-walking the AST themselves.
	Attributes []AttrRecord

	// InputReferences records every input.X / env.X reference pass 2 saw,
	// in source order, each with its own span — the InputDefined and
	// DeprecatedInput rules check these, rather than the two-pass engine
	// itself, per the rule-set's ownership of input-validation semantics.
	InputReferences []InputRef
}

// InputRef is one `input.X` / `env.X` reference site.
type InputRef struct {
	Name string
	Span diagnostic.Span
}

// AttrRecord is one `name = expr` attribute inside a block, as seen by
// pass 1.
type AttrRecord struct {
	BlockKind string
	BlockName string
	AttrName  string
	Span      diagnostic.Span
	// Literal and IsLiteral describe the attribute's value when it is a
	// plain string literal (not a reference, template, or function call) —
	// the only shape rules need to inspect without a full expression
	// evaluator.
	Literal   string
	IsLiteral bool
}

// DeclKey names one declaration for duplicate-detection and ordered
// iteration.
type DeclKey struct {
	Kind string
	Name string
	Span diagnostic.Span
}

// NewState returns an empty State ready for pass 1.
func NewState() *State {
	return &State{
		Actions:             make(map[string]ActionDef),
		Signers:             make(map[string]SignerDef),
		Variables:           make(map[string]diagnostic.Span),
		Outputs:             make(map[string]diagnostic.Span),
		Flows:               make(map[string]FlowDef),
		DeclaredAddons:      make(map[string]bool),
		AddonSpans:          make(map[string]diagnostic.Span),
		TopLevelInputs:      make(map[string]diagnostic.Span),
		UsedInputs:          make(map[string]bool),
		VariableRefs:        make(map[string][]string),
		OutputRefs:          make(map[string][]string),
		ReferencedVariables: make(map[string]bool),
	}
}
