package hclvisitor

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// ParseResult wraps the external parser's output: the recovered body (if
// any) plus the parser's own diagnostics, converted by the caller into
// error Diagnostics per spec.md §4.5 "Parse failure".
type ParseResult struct {
	Body  *hclsyntax.Body
	Diags hcl.Diagnostics
}

// Parse parses HCL source with the external hashicorp/hcl/v2 parser,
// recovering as much of the AST as the parser itself manages to salvage
// from syntactically invalid input.
func Parse(src []byte, filename string) ParseResult {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if file == nil || file.Body == nil {
		return ParseResult{Diags: diags}
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return ParseResult{Diags: diags}
	}
	return ParseResult{Body: body, Diags: diags}
}

// HasRecoveredBlocks reports whether the parse salvaged at least one
// top-level block despite errors. The validation engine does not call it:
// it runs both passes whenever Body is non-nil.
func (r ParseResult) HasRecoveredBlocks() bool {
	return r.Body != nil && len(r.Body.Blocks) > 0
}
