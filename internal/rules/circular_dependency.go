package rules

import (
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// CircularDependency detects cycles among variable/output definitions by
// walking the dependency edges pass 1 collected, supplemented with
// identifiers found in `until`/`condition` attributes — spec.md §4.6 rule
// 8. It is explicitly best-effort: edge collection uses a simplified
// "nearest enclosing declaration" heuristic (see internal/validate's
// collector), so this rule can miss cycles that route through expressions
// pass 1 doesn't attribute correctly, but it never reports a cycle that
// doesn't exist in the collected edge set.
type CircularDependency struct{}

func (CircularDependency) Name() string { return "CircularDependency" }

func (CircularDependency) Description() string {
	return "best-effort detection of circular references among variable and output definitions"
}

func (CircularDependency) Check(ctx *validate.Context) []validate.Outcome {
	if ctx.ElementKind != "variable" && ctx.ElementKind != "output" {
		return nil
	}
	edges := mergeConditionEdges(ctx.State.VariableRefs, ctx.State.OutputRefs, ctx.State.Attributes)
	path, ok := findCycle(edges, nil, ctx.ElementName)
	if !ok {
		return nil
	}
	// Every node on the cycle independently rediscovers it, just rotated to
	// start at itself; report it once, from whichever participant sorts
	// first, instead of once per node.
	if cycleLeader(path) != ctx.ElementName {
		return nil
	}
	return []validate.Outcome{{
		Kind:     validate.OutcomeError,
		Category: diagnostic.CategoryReference,
		Message:  "circular dependency detected: " + joinCycle(path),
	}}
}

// mergeConditionEdges copies variableRefs/outputRefs into one map and adds
// edges discovered by parsing any `until`/`condition` attribute literal as
// an expr-lang expression and collecting its identifiers — a variable or
// output block can make its own evaluation depend on another declaration
// purely through a guard expression, which the native HCL reference-chain
// walk in pass 1 never sees since it isn't a `variable.x`/`output.x`
// traversal.
func mergeConditionEdges(variableRefs, outputRefs map[string][]string, attrs []validate.AttrRecord) map[string][]string {
	merged := make(map[string][]string, len(variableRefs)+len(outputRefs))
	for k, v := range variableRefs {
		merged[k] = append(merged[k], v...)
	}
	for k, v := range outputRefs {
		merged[k] = append(merged[k], v...)
	}
	for _, a := range attrs {
		if a.AttrName != "until" && a.AttrName != "condition" {
			continue
		}
		if (a.BlockKind != "variable" && a.BlockKind != "output") || !a.IsLiteral {
			continue
		}
		merged[a.BlockName] = append(merged[a.BlockName], extractIdentifiers(a.Literal)...)
	}
	return merged
}

// extractIdentifiers parses expr an expr-lang expression and returns every
// bare identifier it references, best-effort: a parse failure (e.g. the
// attribute wasn't actually an expr-lang expression) yields no identifiers
// rather than an error, since this is a supplementary signal, not a
// correctness requirement.
func extractIdentifiers(expr string) []string {
	tree, err := parser.Parse(expr)
	if err != nil || tree == nil {
		return nil
	}
	var names []string
	ast.Walk(&tree.Node, visitorFunc(func(node *ast.Node) {
		if id, ok := (*node).(*ast.IdentifierNode); ok {
			names = append(names, id.Value)
		}
	}))
	return names
}

// visitorFunc adapts a plain function to ast.Visitor.
type visitorFunc func(*ast.Node)

func (f visitorFunc) Visit(node *ast.Node) { f(node) }

// findCycle runs a DFS from start over the combined variable/output
// dependency graph, returning the first cycle found that passes back
// through start.
func findCycle(variableRefs, outputRefs map[string][]string, start string) ([]string, bool) {
	visited := make(map[string]bool)
	var stack []string

	var visit func(node string) ([]string, bool)
	visit = func(node string) ([]string, bool) {
		for i, s := range stack {
			if s == node {
				// A cycle that closes on a node other than start does not
				// pass through start; keep searching the remaining paths.
				if i != 0 {
					return nil, false
				}
				return append(append([]string{}, stack...), node), true
			}
		}
		if visited[node] {
			return nil, false
		}
		visited[node] = true
		stack = append(stack, node)
		defer func() { stack = stack[:len(stack)-1] }()

		neighbors := append(append([]string{}, variableRefs[node]...), outputRefs[node]...)
		for _, n := range neighbors {
			if cycle, found := visit(n); found {
				return cycle, true
			}
		}
		return nil, false
	}

	cycle, found := visit(start)
	if !found {
		return nil, false
	}
	// Only report when start is itself on the cycle — a node that merely
	// reaches a cycle further downstream isn't circularly dependent.
	if len(cycle) == 0 || cycle[0] != start {
		return nil, false
	}
	return cycle, true
}

// cycleLeader returns the lexicographically smallest element among the
// cycle's distinct participants, used to pick one of them to report the
// finding so a cycle yields a single diagnostic rather than one per node.
func cycleLeader(path []string) string {
	leader := ""
	for _, p := range path {
		if leader == "" || p < leader {
			leader = p
		}
	}
	return leader
}

func joinCycle(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}
