package validate

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/hclvisitor"
)

// Engine runs the two-pass validator plus the rule loop over one (merged)
// runbook source. One Engine instance is stateless and safe to reuse
// across validations — all per-call state lives in the State/Context
// values allocated inside Validate.
type Engine struct {
	Registry *addon.Registry
	Rules    []Rule
}

// NewEngine constructs an Engine with the given addon registry and an
// ordered rule set.
func NewEngine(registry *addon.Registry, rules []Rule) *Engine {
	return &Engine{Registry: registry, Rules: rules}
}

// Request bundles everything one validation call needs.
type Request struct {
	Source      []byte
	File        string
	Effective   map[string]string
	EnvName     string
	ManifestErr error // non-nil if manifest loading failed — triggers "syntax-only mode"
	Manifest    ManifestView
}

// Validate runs the full two-pass validation plus the rule loop, per
// spec.md §4.5.
func (e *Engine) Validate(req Request) *diagnostic.ValidationResult {
	result := diagnostic.NewValidationResult()

	if req.ManifestErr != nil {
		result.Add(diagnostic.New(diagnostic.Info, diagnostic.CategoryManifest,
			"manifest could not be loaded; validating in syntax-only mode ("+req.ManifestErr.Error()+")").
			WithFile(req.File))
	}

	parsed := hclvisitor.Parse(req.Source, req.File)
	for _, d := range parsed.Diags {
		start, end := diagSpan(d)
		result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryParse, d.Summary+": "+d.Detail).
			WithSpan(diagnostic.Span{File: req.File, Start: start, End: end}))
	}
	if parsed.Body == nil {
		return result
	}

	state := NewState()

	pass1 := newCollector(req.File, state, e.Registry, result)
	hclvisitor.Walk(parsed.Body, pass1)

	effective := req.Effective
	if effective == nil {
		effective = map[string]string{}
	}
	pass2 := newReferenceChecker(req.File, state, e.Registry, effective, req.EnvName, result)
	hclvisitor.Walk(parsed.Body, pass2)

	e.runRules(req, state, effective, result)

	return result
}

func (e *Engine) runRules(req Request, state *State, effective map[string]string, result *diagnostic.ValidationResult) {
	if len(e.Rules) == 0 {
		return
	}

	type element struct {
		kind string
		name string
		span diagnostic.Span
	}
	var elements []element

	for name, span := range state.TopLevelInputs {
		elements = append(elements, element{"input", name, span})
	}
	for name, span := range state.Variables {
		elements = append(elements, element{"variable", name, span})
	}
	for name, def := range state.Actions {
		elements = append(elements, element{"action", name, def.Span})
	}
	for name, def := range state.Signers {
		elements = append(elements, element{"signer", name, def.Span})
	}
	for ns := range state.DeclaredAddons {
		elements = append(elements, element{"addon", ns, state.AddonSpans[ns]})
	}
	for name, span := range state.Outputs {
		elements = append(elements, element{"output", name, span})
	}
	// Every input.X / env.X reference site is its own element: InputDefined
	// and DeprecatedInput run once per occurrence, not once per name, so a
	// key used from three places gets three independently-spanned
	// diagnostics if it's missing or deprecated.
	for _, ref := range state.InputReferences {
		elements = append(elements, element{"input_ref", ref.Name, ref.Span})
	}

	// Deterministic order: by kind, then name, then span — rules must be
	// pure functions of their inputs (spec.md §8 invariant 5), so iteration
	// order over Go maps (inherently randomized) must be normalized before
	// rules run. input_ref ordering additionally falls back to source
	// position since the same name can appear at this element kind more
	// than once.
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].kind != elements[j].kind {
			return elements[i].kind < elements[j].kind
		}
		if elements[i].name != elements[j].name {
			return elements[i].name < elements[j].name
		}
		return elements[i].span.Start < elements[j].span.Start
	})

	for _, el := range elements {
		ctx := &Context{
			File:        req.File,
			State:       state,
			Registry:    e.Registry,
			Effective:   effective,
			EnvName:     req.EnvName,
			Manifest:    req.Manifest,
			ElementKind: el.kind,
			ElementName: el.name,
			ElementSpan: el.span,
		}
		for _, rule := range e.Rules {
			for _, outcome := range rule.Check(ctx) {
				emit(result, outcome, el.span, req.File)
			}
		}
	}
}

func emit(result *diagnostic.ValidationResult, o Outcome, fallback diagnostic.Span, file string) {
	if o.Kind == Pass {
		return
	}
	sev := diagnostic.Warning
	if o.Kind == OutcomeError {
		sev = diagnostic.Error
	}
	category := o.Category
	if category == "" {
		category = diagnostic.CategoryStyle
	}
	d := diagnostic.New(sev, category, o.Message).WithFile(file)
	span := o.Span
	if span == nil {
		span = &fallback
	}
	if span.File != "" || span.Start != 0 || span.End != 0 {
		d.WithSpan(*span)
	}
	if o.Context != "" {
		d.WithContext(o.Context)
	}
	if o.Suggestion != nil {
		d.WithSuggestion(o.Suggestion.Message, o.Suggestion.Example)
	}
	if o.DocsURL != "" {
		d.WithDocs(o.DocsURL)
	}
	result.Add(d)
}

// diagSpan returns the start/end byte offsets of an hcl.Diagnostic's
// subject range, or (0, 0) if the diagnostic carries no position.
func diagSpan(d *hcl.Diagnostic) (int, int) {
	if d == nil || d.Subject == nil {
		return 0, 0
	}
	return d.Subject.Start.Byte, d.Subject.End.Byte
}
