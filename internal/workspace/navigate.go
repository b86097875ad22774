package workspace

import (
	"fmt"
	"strings"

	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/validate"
)

// HoverContent is the result of a hover request: a short human-readable
// description and, for sensitive input values, the masked value rather
// than the raw one.
type HoverContent struct {
	Text string
}

// CompletionItem is one completion candidate offered at a cursor position.
type CompletionItem struct {
	Label  string
	Detail string
}

// reference is a dotted or double-colon path extracted from source text
// around a cursor, e.g. "input.rpc_url" or "evm::deploy_contract".
type reference struct {
	root string
	rest string
}

// tokenAt scans content around offset for the identifier path the cursor
// sits inside — pass 1/2 already parsed the whole document, but the LSP
// operations only need to know which declaration a screen position
// belongs to, so a text scan is enough: this mirrors the hclsyntax
// traversal shape (`root.attr`, `ns::name`) without re-walking the AST
// for every keystroke.
func tokenAt(content []byte, offset int) (string, bool) {
	isWord := func(b byte) bool {
		return b == '.' || b == '_' || b == ':' ||
			(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
	}
	if offset < 0 || offset > len(content) {
		return "", false
	}
	start := offset
	for start > 0 && isWord(content[start-1]) {
		start--
	}
	end := offset
	for end < len(content) && isWord(content[end]) {
		end++
	}
	tok := strings.Trim(string(content[start:end]), ".:")
	if tok == "" {
		return "", false
	}
	return tok, true
}

func splitReference(tok string) reference {
	if idx := strings.Index(tok, "::"); idx >= 0 {
		return reference{root: tok[:idx], rest: tok[idx+2:]}
	}
	if idx := strings.Index(tok, "."); idx >= 0 {
		rest := tok[idx+1:]
		if j := strings.Index(rest, "."); j >= 0 {
			rest = rest[:j]
		}
		return reference{root: tok[:idx], rest: rest}
	}
	return reference{root: tok}
}

// FindDefinition resolves the identifier under pos to the span where it's
// declared, per spec.md §4.8 "find_definition — resolve input/variable/
// action/addon references to their declaring span."
func (w *Workspace) FindDefinition(uri string, pos diagnostic.Position) (*diagnostic.Span, bool) {
	state, doc, ok := w.collectFor(uri)
	if !ok {
		return nil, false
	}
	idx := diagnostic.NewLineIndex(doc.Content)
	tok, ok := tokenAt(doc.Content, idx.OffsetFor(pos))
	if !ok {
		return nil, false
	}
	ref := splitReference(tok)

	switch ref.root {
	case "variable":
		if span, ok := state.Variables[ref.rest]; ok {
			return &span, true
		}
	case "output":
		if span, ok := state.Outputs[ref.rest]; ok {
			return &span, true
		}
	case "input", "env":
		if span, ok := state.TopLevelInputs[ref.rest]; ok {
			return &span, true
		}
	case "action":
		if def, ok := state.Actions[ref.rest]; ok {
			return &def.Span, true
		}
	case "signer":
		if def, ok := state.Signers[ref.rest]; ok {
			return &def.Span, true
		}
	}
	if span, ok := state.AddonSpans[ref.root]; ok {
		return &span, true
	}
	return nil, false
}

// Hover returns descriptive text for the identifier under pos: an
// addon-spec doc for actions/functions, the environment name and masked
// value for input/env references, or nothing for plain variable/output
// references (their declaration is the documentation).
func (w *Workspace) Hover(uri string, pos diagnostic.Position) (*HoverContent, bool) {
	w.mu.RLock()
	doc, ok := w.documents[uri]
	var m *manifestSnapshot
	if ok && doc.ManifestURI != "" {
		m = w.manifestSnapshotLocked(doc.ManifestURI)
	}
	env := w.activeEnvironment
	registry := w.registry
	w.mu.RUnlock()
	if !ok {
		return nil, false
	}

	idx := diagnostic.NewLineIndex(doc.Content)
	tok, ok := tokenAt(doc.Content, idx.OffsetFor(pos))
	if !ok {
		return nil, false
	}
	ref := splitReference(tok)

	switch ref.root {
	case "input", "env":
		if m == nil {
			return nil, false
		}
		value, ok := m.effective[ref.rest]
		if !ok {
			return nil, false
		}
		display := value
		if addon.LooksSensitive(ref.rest) && addon.LooksLikeLiteralSecret(value) {
			display = addon.MaskSensitiveValue(value)
		}
		return &HoverContent{Text: fmt.Sprintf("%s (environment %q) = %s", ref.rest, env, display)}, true
	default:
		if fn, ok := registry.LookupFunction(ref.root, functionName(ref.rest)); ok {
			return &HoverContent{Text: formatFunction(ref.root, fn)}, true
		}
		if act, ok := registry.LookupAction(ref.root, ref.rest); ok {
			return &HoverContent{Text: formatAction(ref.root, ref.rest, act)}, true
		}
	}
	return nil, false
}

func functionName(rest string) string {
	if idx := strings.Index(rest, "("); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

func formatFunction(ns string, fn *addon.FunctionSpec) string {
	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, p.Name+" "+p.Type)
	}
	sig := fmt.Sprintf("%s::%s(%s) %s", ns, fn.Name, strings.Join(params, ", "), fn.ReturnType)
	if fn.Doc == "" {
		return sig
	}
	return sig + "\n\n" + fn.Doc
}

func formatAction(ns, name string, act *addon.ActionSpec) string {
	header := fmt.Sprintf("%s::%s", ns, name)
	if act.Deprecated {
		header += " (deprecated)"
	}
	required := act.RequiredInputs()
	if len(required) == 0 {
		return header
	}
	return header + "\nrequired inputs: " + strings.Join(required, ", ")
}

// Completion offers candidates for the text immediately before pos, based
// on a small set of recognized suffixes — "input.", "env.", "action.",
// and "<namespace>::" — per spec.md §4.8 "completion — offer known input
// keys, action names, and addon actions/functions for a namespace prefix."
func (w *Workspace) Completion(uri string, pos diagnostic.Position) ([]CompletionItem, bool) {
	w.mu.RLock()
	doc, ok := w.documents[uri]
	var m *manifestSnapshot
	if ok && doc.ManifestURI != "" {
		m = w.manifestSnapshotLocked(doc.ManifestURI)
	}
	registry := w.registry
	w.mu.RUnlock()
	if !ok {
		return nil, false
	}

	idx := diagnostic.NewLineIndex(doc.Content)
	offset := idx.OffsetFor(pos)
	if offset < 0 || offset > len(doc.Content) {
		return nil, false
	}
	prefix := string(doc.Content[:offset])

	state, _, ok := w.collectFor(uri)
	if !ok {
		return nil, false
	}

	switch {
	case strings.HasSuffix(prefix, "input.") || strings.HasSuffix(prefix, "env."):
		if m == nil {
			return nil, false
		}
		items := make([]CompletionItem, 0, len(m.effective))
		for k := range m.effective {
			items = append(items, CompletionItem{Label: k, Detail: "input"})
		}
		return items, true
	case strings.HasSuffix(prefix, "action."):
		items := make([]CompletionItem, 0, len(state.Actions))
		for name := range state.Actions {
			items = append(items, CompletionItem{Label: name, Detail: "action"})
		}
		return items, true
	}

	if sep := strings.LastIndex(prefix, "::"); sep >= 0 {
		ns := trailingIdentifier(prefix[:sep])
		if ns != "" && registry.HasNamespace(ns) {
			var items []CompletionItem
			for _, a := range registry.ListActions(ns) {
				items = append(items, CompletionItem{Label: a, Detail: ns + " action"})
			}
			for _, f := range registry.ListFunctions(ns) {
				items = append(items, CompletionItem{Label: f, Detail: ns + " function"})
			}
			return items, true
		}
	}
	return nil, false
}

func trailingIdentifier(s string) string {
	end := len(s)
	start := end
	for start > 0 {
		c := s[start-1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			start--
			continue
		}
		break
	}
	return s[start:end]
}

// manifestSnapshot is the subset of manifest state navigation needs,
// captured while holding the lock so callers can release it before doing
// further work.
type manifestSnapshot struct {
	effective map[string]string
}

func (w *Workspace) manifestSnapshotLocked(manifestURI string) *manifestSnapshot {
	m, ok := w.manifests[manifestURI]
	if !ok {
		return nil
	}
	effective, err := m.EffectiveEnvironment(w.activeEnvironment)
	if err != nil {
		effective = map[string]string{}
	}
	return &manifestSnapshot{effective: effective}
}

// collectFor runs pass-1 collection for uri's current content, without
// taking the write lock collection doesn't need.
func (w *Workspace) collectFor(uri string) (*validate.State, *Document, bool) {
	w.mu.RLock()
	doc, ok := w.documents[uri]
	engine := w.engine
	w.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	state, _, _ := engine.Collect(doc.Content, uriToPath(uri))
	return state, doc, true
}
