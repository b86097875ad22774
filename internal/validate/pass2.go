package validate

import (
	"strconv"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/hclvisitor"
)

// referenceChecker is the pass-2 visitor: it re-traverses the AST and
// resolves every reference chain / function call against the state
// pass 1 collected, per spec.md §4.5's head-routing table.
type referenceChecker struct {
	hclvisitor.DefaultVisitor

	file      string
	state     *State
	registry  *addon.Registry
	effective map[string]string
	result    *diagnostic.ValidationResult
	envName   string

	stack []BlockContext
}

func newReferenceChecker(file string, state *State, registry *addon.Registry, effective map[string]string, envName string, result *diagnostic.ValidationResult) *referenceChecker {
	return &referenceChecker{file: file, state: state, registry: registry, effective: effective, envName: envName, result: result}
}

func (c *referenceChecker) EnterBlock(kind string, labels []string, span hclvisitor.Span) {
	ctx := BlockContext{Kind: kind}
	if len(labels) > 0 {
		ctx.Name = labels[0]
	}
	if len(c.stack) > 0 && c.stack[len(c.stack)-1].Kind == "flow" {
		ctx.FlowName = c.stack[len(c.stack)-1].Name
	}
	if kind == "flow" {
		ctx.FlowName = ctx.Name
	}
	c.stack = append(c.stack, ctx)
}

func (c *referenceChecker) ExitBlock(kind string, labels []string, span hclvisitor.Span) {
	if len(c.stack) > 0 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

func (c *referenceChecker) current() BlockContext {
	if len(c.stack) == 0 {
		return BlockContext{}
	}
	return c.stack[len(c.stack)-1]
}

func (c *referenceChecker) VisitReferenceChain(parts []string, span hclvisitor.Span) {
	if len(parts) == 0 {
		return
	}
	sp := toSpan(c.file, span)
	head := parts[0]

	switch head {
	case "input", "env":
		c.checkInputLike(parts, sp)

	case "variable":
		c.checkVariable(parts, sp)

	case "action":
		c.checkAction(parts, sp)

	case "signer":
		if len(parts) < 2 {
			return
		}
		if _, ok := c.state.Signers[parts[1]]; !ok {
			c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
				"signer \""+parts[1]+"\" is not defined").WithSpan(sp))
		}

	case "output":
		if len(parts) < 2 {
			return
		}
		if _, ok := c.state.Outputs[parts[1]]; !ok {
			c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
				"output \""+parts[1]+"\" is not defined").WithSpan(sp))
		}

	case "flow":
		c.checkFlow(parts, sp)

	case "module":
		// Opaque metadata; only a syntactic check (non-empty chain) applies.

	default:
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"unknown reference root \""+joinParts(parts)+"\"").WithSpan(sp))
	}
}

// checkInputLike records a reference site for the InputDefined and
// DeprecatedInput rules to validate — existence and deprecation are
// rule-set concerns (spec.md §4.6), not core two-pass mechanics.
func (c *referenceChecker) checkInputLike(parts []string, sp diagnostic.Span) {
	if len(parts) < 2 {
		return
	}
	key := parts[1]
	c.state.InputReferences = append(c.state.InputReferences, InputRef{Name: key, Span: sp})
	if _, ok := c.effective[key]; ok {
		c.state.UsedInputs[key] = true
	}
}

func (c *referenceChecker) checkVariable(parts []string, sp diagnostic.Span) {
	if len(parts) < 2 {
		return
	}
	name := parts[1]
	c.state.ReferencedVariables[name] = true
	defSpan, ok := c.state.Variables[name]
	if !ok {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"variable \""+name+"\" is not defined").WithSpan(sp))
		return
	}
	if !c.isAfter(sp, defSpan, "variable", name) {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"variable \""+name+"\" referenced before it is defined").WithSpan(sp))
	}
}

func (c *referenceChecker) checkAction(parts []string, sp diagnostic.Span) {
	if len(parts) < 2 {
		return
	}
	name := parts[1]
	def, ok := c.state.Actions[name]
	if !ok {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"action \""+name+"\" is not defined").WithSpan(sp))
		return
	}
	if !c.isAfter(sp, def.Span, "action", name) {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"action \""+name+"\" referenced before it is defined").WithSpan(sp))
		return
	}
	if len(parts) < 3 {
		return
	}
	field := parts[2]
	if c.registry == nil {
		return
	}
	spec, ok := c.registry.LookupAction(def.Namespace, def.Action)
	if !ok {
		// Unknown action type — already warned in pass 1; nothing further
		// to structurally check here.
		return
	}
	out, ok := spec.HasOutput(field)
	if !ok {
		d := diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"\""+field+"\" is not an output of "+def.Namespace+"::"+def.Action).WithSpan(sp)
		if len(spec.Outputs) > 0 {
			d.WithSuggestion("available outputs: "+joinOutputNames(spec.Outputs), "")
		}
		c.result.AddError(d)
		return
	}
	_ = out
	if len(parts) > 3 {
		// Deeper nesting rejected unless the output type supports it; this
		// core does not model structured output sub-fields, so any further
		// nesting is conservatively rejected (spec.md §4.5).
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"\""+parts[3]+"\" is not a declared sub-field of "+def.Namespace+"::"+def.Action+"."+field).WithSpan(sp))
	}
}

func (c *referenceChecker) checkFlow(parts []string, sp diagnostic.Span) {
	if len(parts) < 2 {
		return
	}
	ctx := c.enclosingFlow()
	if ctx == "" {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"flow.* reference used outside of a flow block").WithSpan(sp))
		return
	}
	flow, ok := c.state.Flows[ctx]
	if !ok {
		return
	}
	if _, ok := flow.Inputs[parts[1]]; !ok {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryReference,
			"\""+parts[1]+"\" is not an input of flow \""+ctx+"\"").WithSpan(sp))
	}
}

func (c *referenceChecker) enclosingFlow() string {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].Kind == "flow" {
			return c.stack[i].Name
		}
	}
	return ""
}

// isAfter implements spec.md §4.5's ordering rule: the use's byte offset
// must be strictly greater than the definition's, EXCEPT a reference
// inside the defining block itself always counts as after (so
// `action "a" { foo = action.a.retries_left }` is allowed).
func (c *referenceChecker) isAfter(use, def diagnostic.Span, kind, name string) bool {
	ctx := c.current()
	if ctx.Kind == kind && ctx.Name == name {
		return true
	}
	return use.Start > def.Start
}

func (c *referenceChecker) VisitFunctionCall(namespace, name string, args []hclsyntax.Expression, span hclvisitor.Span) {
	sp := toSpan(c.file, span)
	if c.registry == nil {
		return
	}
	if namespace == "" {
		return
	}
	if !c.registry.HasNamespace(namespace) {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryAddon,
			"unknown addon namespace \""+namespace+"\" in function call").WithSpan(sp))
		return
	}
	fn, ok := c.registry.LookupFunction(namespace, name)
	if !ok {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryAddon,
			"unknown function \""+namespace+"::"+name+"\"").WithSpan(sp))
		return
	}
	if fn.FixedArity && len(args) != len(fn.Params) {
		c.result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryAddon,
			"\""+namespace+"::"+name+"\" expects "+strconv.Itoa(len(fn.Params))+" argument(s), got "+strconv.Itoa(len(args))).WithSpan(sp))
	}
}

func joinParts(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

func joinOutputNames(outputs []addon.OutputSpec) string {
	out := ""
	for i, o := range outputs {
		if i > 0 {
			out += ", "
		}
		out += o.Name
	}
	return out
}

