// Package hclvisitor implements the generic HCL AST traversal framework
// (C4): a visitor interface with default structural recursion, driven over
// the external hashicorp/hcl/v2 + hclsyntax AST. The HCL lexer/parser
// itself is an external collaborator (spec.md §1); this package only
// consumes the AST it produces.
package hclvisitor

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Span is a byte-range-carrying position, mirroring internal/diagnostic.Span
// without importing it — callers convert at the boundary so this package
// stays a pure AST-traversal library with no diagnostic-model dependency.
type Span struct {
	File  string
	Start int
	End   int
}

func spanOf(r hcl.Range) Span {
	return Span{File: r.Filename, Start: r.Start.Byte, End: r.End.Byte}
}

// Visitor receives traversal events. Implementations supply only the hooks
// they need — DefaultVisitor gives every method a structural no-op/recurse
// default, matching spec.md §4.4.
type Visitor interface {
	EnterBlock(kind string, labels []string, span Span)
	ExitBlock(kind string, labels []string, span Span)
	EnterAttribute(name string, span Span)
	ExitAttribute(name string, span Span)
	VisitExpression(expr hclsyntax.Expression, span Span)
	VisitReferenceChain(parts []string, span Span)
	VisitFunctionCall(namespace, name string, args []hclsyntax.Expression, span Span)
}

// DefaultVisitor implements Visitor with no-op hooks. Embed it and
// override only the methods a concrete validator pass needs.
type DefaultVisitor struct{}

func (DefaultVisitor) EnterBlock(string, []string, Span)                              {}
func (DefaultVisitor) ExitBlock(string, []string, Span)                               {}
func (DefaultVisitor) EnterAttribute(string, Span)                                    {}
func (DefaultVisitor) ExitAttribute(string, Span)                                     {}
func (DefaultVisitor) VisitExpression(hclsyntax.Expression, Span)                     {}
func (DefaultVisitor) VisitReferenceChain([]string, Span)                            {}
func (DefaultVisitor) VisitFunctionCall(string, string, []hclsyntax.Expression, Span) {}

// Walk drives visitor over every top-level block (and recursively, every
// nested block) of body, in source order.
func Walk(body *hclsyntax.Body, visitor Visitor) {
	for _, block := range orderedBlocks(body) {
		walkBlock(block, visitor)
	}
}

// walkBlock visits one block: its attributes (in source order), then its
// nested blocks.
func walkBlock(block *hclsyntax.Block, visitor Visitor) {
	span := spanOf(block.DefRange())
	visitor.EnterBlock(block.Type, block.Labels, span)

	for _, attr := range orderedAttributes(block.Body) {
		attrSpan := spanOf(attr.SrcRange)
		visitor.EnterAttribute(attr.Name, attrSpan)
		WalkExpression(attr.Expr, visitor)
		visitor.ExitAttribute(attr.Name, attrSpan)
	}

	for _, nested := range orderedBlocks(block.Body) {
		walkBlock(nested, visitor)
	}

	visitor.ExitBlock(block.Type, block.Labels, span)
}

// orderedBlocks returns body's blocks sorted by source position — the
// hclsyntax.Blocks slice is already parse order, preserved here for
// clarity and to insulate callers from future hclsyntax changes.
func orderedBlocks(body *hclsyntax.Body) []*hclsyntax.Block {
	return body.Blocks
}

func orderedAttributes(body *hclsyntax.Body) []*hclsyntax.Attribute {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	// hclsyntax.Attributes is a map; sort by byte offset to recover source
	// order, since the validator's "define-before-use" and ordering
	// guarantees depend on it (spec.md §4.5).
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && attrs[j].SrcRange.Start.Byte < attrs[j-1].SrcRange.Start.Byte; j-- {
			attrs[j], attrs[j-1] = attrs[j-1], attrs[j]
		}
	}
	return attrs
}

// WalkExpression recurses into expr's sub-expressions, firing
// VisitExpression for every node and VisitReferenceChain /
// VisitFunctionCall for the two special cases spec.md §4.4 calls out.
func WalkExpression(expr hclsyntax.Expression, visitor Visitor) {
	if expr == nil {
		return
	}
	span := spanOf(expr.Range())
	visitor.VisitExpression(expr, span)

	switch e := expr.(type) {
	case *hclsyntax.ScopeTraversalExpr:
		visitor.VisitReferenceChain(traversalParts(e.Traversal), span)

	case *hclsyntax.RelativeTraversalExpr:
		WalkExpression(e.Source, visitor)
		// A relative traversal (e.g. a function call result indexed or
		// dotted further) is opaque to reference-chain validation — it
		// doesn't start from one of the known roots — so no
		// VisitReferenceChain fires for it, matching spec.md's root-routed
		// table which only covers traversals starting at a known head.

	case *hclsyntax.FunctionCallExpr:
		ns, name := splitFunctionName(e.Name)
		visitor.VisitFunctionCall(ns, name, e.Args, span)
		for _, arg := range e.Args {
			WalkExpression(arg, visitor)
		}

	case *hclsyntax.TupleConsExpr:
		for _, sub := range e.Exprs {
			WalkExpression(sub, visitor)
		}

	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			WalkExpression(item.KeyExpr, visitor)
			WalkExpression(item.ValueExpr, visitor)
		}

	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			WalkExpression(part, visitor)
		}

	case *hclsyntax.TemplateWrapExpr:
		WalkExpression(e.Wrapped, visitor)

	case *hclsyntax.IndexExpr:
		WalkExpression(e.Collection, visitor)
		WalkExpression(e.Key, visitor)

	case *hclsyntax.BinaryOpExpr:
		WalkExpression(e.LHS, visitor)
		WalkExpression(e.RHS, visitor)

	case *hclsyntax.UnaryOpExpr:
		WalkExpression(e.Val, visitor)

	case *hclsyntax.ConditionalExpr:
		WalkExpression(e.Condition, visitor)
		WalkExpression(e.TrueResult, visitor)
		WalkExpression(e.FalseResult, visitor)

	case *hclsyntax.ForExpr:
		WalkExpression(e.CollExpr, visitor)
		if e.KeyExpr != nil {
			WalkExpression(e.KeyExpr, visitor)
		}
		WalkExpression(e.ValExpr, visitor)
		if e.CondExpr != nil {
			WalkExpression(e.CondExpr, visitor)
		}

	case *hclsyntax.SplatExpr:
		WalkExpression(e.Source, visitor)
		WalkExpression(e.Each, visitor)

	case *hclsyntax.ParenthesesExpr:
		WalkExpression(e.Expression, visitor)

	default:
		// Literal values and any future node kind: nothing further to
		// recurse into.
	}
}

// traversalParts converts an hcl.Traversal into the flat ["input","X"]
// style chain spec.md §3/§4.5 reasons about.
func traversalParts(t hcl.Traversal) []string {
	parts := make([]string, 0, len(t))
	for _, step := range t {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			parts = append(parts, s.Name)
		case hcl.TraverseAttr:
			parts = append(parts, s.Name)
		case hcl.TraverseIndex:
			// Index steps (e.g. action.a.list[0]) don't introduce a new
			// name; they narrow the previous one. Represented as "[]" so
			// callers can see nesting occurred without inventing a name.
			parts = append(parts, "[]")
		}
	}
	return parts
}

func splitFunctionName(raw string) (namespace, name string) {
	for i := 0; i+1 < len(raw); i++ {
		if raw[i] == ':' && raw[i+1] == ':' {
			return raw[:i], raw[i+2:]
		}
	}
	return "", raw
}
