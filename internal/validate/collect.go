package validate

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/hclvisitor"
)

// Collect runs pass 1 only and returns the resulting State alongside the
// parsed body, for callers that need the declaration tables without paying
// for pass 2 or the rule loop — the LSP's definition and completion
// operations (spec.md §4.8) are the only current users.
func (e *Engine) Collect(source []byte, file string) (*State, *hclsyntax.Body, hcl.Diagnostics) {
	parsed := hclvisitor.Parse(source, file)
	state := NewState()
	if parsed.Body == nil {
		return state, nil, parsed.Diags
	}
	discard := diagnostic.NewValidationResult()
	pass1 := newCollector(file, state, e.Registry, discard)
	hclvisitor.Walk(parsed.Body, pass1)
	return state, parsed.Body, parsed.Diags
}
