package validate

import (
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/hclvisitor"
	"github.com/zclconf/go-cty/cty"
)

// collector is the pass-1 visitor: it populates State from the top-level
// blocks, in source order, and never resolves references (spec.md §4.5
// "Pass 1 — Collection").
type collector struct {
	hclvisitor.DefaultVisitor

	file     string
	state    *State
	registry *addon.Registry
	result   *diagnostic.ValidationResult

	blockDepth  int
	currentFlow string // set while inside a flow block, for nested input capture
	flowInputs  map[string]diagnostic.Span
	currentAttr string

	// blockStack tracks the kind/name of every block currently open, so
	// attributes can be tagged with their owning block in state.Attributes.
	blockStack []BlockContext

	// awaitingAttrExpr and attrLiteral/attrIsLiteral capture the value of
	// the attribute whose name is in currentAttr: WalkExpression's first
	// VisitExpression call after EnterAttribute is always that attribute's
	// own top-level expression, before it recurses into any children.
	awaitingAttrExpr bool
	attrLiteral      string
	attrIsLiteral    bool
}

func newCollector(file string, state *State, registry *addon.Registry, result *diagnostic.ValidationResult) *collector {
	return &collector{file: file, state: state, registry: registry, result: result}
}

func toSpan(file string, s hclvisitor.Span) diagnostic.Span {
	f := s.File
	if f == "" {
		f = file
	}
	return diagnostic.Span{File: f, Start: s.Start, End: s.End}
}

func (c *collector) EnterBlock(kind string, labels []string, span hclvisitor.Span) {
	c.blockDepth++
	sp := toSpan(c.file, span)

	name := ""
	if len(labels) > 0 {
		name = labels[0]
	}
	c.blockStack = append(c.blockStack, BlockContext{Kind: kind, Name: name})

	switch kind {
	case "addon":
		if len(labels) == 0 {
			return
		}
		ns := labels[0]
		// Existence is checked by the UnknownAddon rule (internal/rules),
		// not here — pass 1 only records the declaration so later blocks
		// can resolve against it.
		c.state.DeclaredAddons[ns] = true
		if _, exists := c.state.AddonSpans[ns]; !exists {
			c.state.AddonSpans[ns] = sp
		}

	case "signer":
		if len(labels) < 2 {
			return
		}
		name, typeRef := labels[0], labels[1]
		ns, signerType := splitRef(typeRef)
		c.addDecl("signer", name, sp)
		if _, exists := c.state.Signers[name]; !exists {
			c.state.Signers[name] = SignerDef{Namespace: ns, SignerType: signerType, Span: sp}
		}
		if c.registry != nil && !c.registry.HasNamespace(ns) {
			c.result.AddWarning(diagnostic.New(diagnostic.Warning, diagnostic.CategoryAddon,
				"signer \""+name+"\" references unknown addon namespace \""+ns+"\"").WithSpan(sp))
		} else if c.registry != nil {
			if _, ok := c.registry.LookupSigner(ns, signerType); !ok {
				c.result.AddWarning(diagnostic.New(diagnostic.Warning, diagnostic.CategoryAddon,
					"signer \""+name+"\" references unknown signer type \""+typeRef+"\"").WithSpan(sp))
			}
		}

	case "action":
		if len(labels) < 2 {
			return
		}
		name, typeRef := labels[0], labels[1]
		ns, action := splitRef(typeRef)
		c.addDecl("action", name, sp)
		if _, exists := c.state.Actions[name]; !exists {
			c.state.Actions[name] = ActionDef{Namespace: ns, Action: action, Span: sp}
		}
		if c.registry != nil && !c.registry.HasNamespace(ns) {
			c.result.AddWarning(diagnostic.New(diagnostic.Warning, diagnostic.CategoryAddon,
				"action \""+name+"\" references unknown addon namespace \""+ns+"\"").WithSpan(sp))
		} else if c.registry != nil {
			if _, ok := c.registry.LookupAction(ns, action); !ok {
				d := diagnostic.New(diagnostic.Warning, diagnostic.CategoryAddon,
					"action \""+name+"\" references unknown action type \""+typeRef+"\"").WithSpan(sp)
				if s := c.registry.SuggestAction(ns, action); s != "" {
					d.WithSuggestion("did you mean \""+ns+"::"+s+"\"?", "")
				}
				c.result.AddWarning(d)
			}
		}

	case "variable":
		if len(labels) == 0 {
			return
		}
		c.addDecl("variable", labels[0], sp)
		if _, exists := c.state.Variables[labels[0]]; !exists {
			c.state.Variables[labels[0]] = sp
		}

	case "output":
		if len(labels) == 0 {
			return
		}
		c.addDecl("output", labels[0], sp)
		if _, exists := c.state.Outputs[labels[0]]; !exists {
			c.state.Outputs[labels[0]] = sp
		}

	case "input":
		if len(labels) == 0 {
			return
		}
		if c.currentFlow != "" {
			if c.flowInputs == nil {
				c.flowInputs = make(map[string]diagnostic.Span)
			}
			if _, exists := c.flowInputs[labels[0]]; !exists {
				c.flowInputs[labels[0]] = sp
			}
		} else {
			c.addDecl("input", labels[0], sp)
			if _, exists := c.state.TopLevelInputs[labels[0]]; !exists {
				c.state.TopLevelInputs[labels[0]] = sp
			}
		}

	case "flow":
		if len(labels) == 0 {
			return
		}
		c.addDecl("flow", labels[0], sp)
		c.currentFlow = labels[0]
		c.flowInputs = make(map[string]diagnostic.Span)

	case "module", "runbook", "import":
		// Recorded for presence only; not deeply validated (spec.md §4.5).
		if len(labels) > 0 {
			c.addDecl(kind, labels[0], sp)
		}
	}
}

func (c *collector) ExitBlock(kind string, labels []string, span hclvisitor.Span) {
	c.blockDepth--
	if kind == "flow" && len(labels) > 0 {
		if _, exists := c.state.Flows[labels[0]]; !exists {
			c.state.Flows[labels[0]] = FlowDef{Span: toSpan(c.file, span), Inputs: c.flowInputs}
		}
		c.currentFlow = ""
		c.flowInputs = nil
	}
	if len(c.blockStack) > 0 {
		c.blockStack = c.blockStack[:len(c.blockStack)-1]
	}
}

func (c *collector) currentBlock() BlockContext {
	if len(c.blockStack) == 0 {
		return BlockContext{}
	}
	return c.blockStack[len(c.blockStack)-1]
}

func (c *collector) EnterAttribute(name string, span hclvisitor.Span) {
	c.currentAttr = name
	c.awaitingAttrExpr = true
	c.attrLiteral = ""
	c.attrIsLiteral = false
}

// VisitExpression captures the literal value of the current attribute, if
// it has one — the first call after EnterAttribute always corresponds to
// the attribute's own top-level expression (see awaitingAttrExpr).
func (c *collector) VisitExpression(expr hclsyntax.Expression, span hclvisitor.Span) {
	if !c.awaitingAttrExpr {
		return
	}
	c.awaitingAttrExpr = false
	lit, ok := expr.(*hclsyntax.LiteralValueExpr)
	if !ok {
		return
	}
	if lit.Val.Type() == cty.String {
		c.attrLiteral = lit.Val.AsString()
		c.attrIsLiteral = true
	}
}

func (c *collector) ExitAttribute(name string, span hclvisitor.Span) {
	block := c.currentBlock()
	c.state.Attributes = append(c.state.Attributes, AttrRecord{
		BlockKind: block.Kind,
		BlockName: block.Name,
		AttrName:  name,
		Span:      toSpan(c.file, span),
		Literal:   c.attrLiteral,
		IsLiteral: c.attrIsLiteral,
	})
	c.currentAttr = ""
	c.awaitingAttrExpr = false
}

// VisitReferenceChain during pass 1 only collects dependency edges for the
// best-effort CircularDependency rule — it does not validate existence,
// which is pass 2's job.
func (c *collector) VisitReferenceChain(parts []string, span hclvisitor.Span) {
	if len(parts) < 2 {
		return
	}
	switch parts[0] {
	case "variable":
		if owner := c.currentDeclOwner(); owner != "" {
			c.state.VariableRefs[owner] = append(c.state.VariableRefs[owner], parts[1])
		}
	case "output":
		if owner := c.currentDeclOwner(); owner != "" {
			c.state.OutputRefs[owner] = append(c.state.OutputRefs[owner], parts[1])
		}
	}
}

// currentDeclOwner is a best-effort helper: it assumes dependency edges are
// only meaningful when collected while inside a variable or output block's
// own attributes. Returns the name of the innermost open variable/output
// block on blockStack, or "" outside one. Kept intentionally simple —
// CircularDependency is explicitly best-effort (spec.md §9).
func (c *collector) currentDeclOwner() string {
	for i := len(c.blockStack) - 1; i >= 0; i-- {
		b := c.blockStack[i]
		if b.Kind == "variable" || b.Kind == "output" {
			return b.Name
		}
	}
	return ""
}

func (c *collector) addDecl(kind, name string, span diagnostic.Span) {
	// Duplicate detection: first wins, subsequent ones produce a
	// `duplicate definition` error pointing at the later span
	// (spec.md §4.5 "Ordering and tie-breaks").
	for _, d := range c.state.DeclarationOrder {
		if d.Kind == kind && d.Name == name {
			c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryDuplicate,
				"duplicate "+kind+" definition \""+name+"\" (first defined elsewhere)").WithSpan(span))
			return
		}
	}
	c.state.DeclarationOrder = append(c.state.DeclarationOrder, DeclKey{Kind: kind, Name: name, Span: span})
}

// splitRef splits an "ns::name" type reference into its two parts.
func splitRef(raw string) (namespace, name string) {
	if i := strings.Index(raw, "::"); i >= 0 {
		return raw[:i], raw[i+2:]
	}
	return "", raw
}
