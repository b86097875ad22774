package addon

import (
	"fmt"
	"sort"

	"github.com/agext/levenshtein"
)

// Registry is an immutable, process-lifetime snapshot of every addon's
// command specs. Built once at process start via BuildFromPlugins or
// BuildFromNamespaces (the latter used by fixture loading and tests) and
// shared read-only thereafter.
type Registry struct {
	namespaces map[string]*Namespace
	// order preserves the namespaces in registration order, for
	// deterministic "did you mean" suggestion iteration.
	order []string
}

// Provider is the read-only interface an addon plugin exposes to the
// registry builder. The plugin system itself (discovery, loading,
// sandboxing) is an external collaborator out of scope for this core —
// only this narrow surface is consumed.
type Provider interface {
	Namespace() string
	Actions() map[string]*ActionSpec
	Functions() map[string]*FunctionSpec
	Signers() map[string]*SignerSpec
}

// BuildFromPlugins constructs an immutable registry from a sequence of
// addon providers. This is a one-time construction, typically called once
// at process start; in test environments it may be rebuilt per test.
func BuildFromPlugins(providers []Provider) *Registry {
	reg := &Registry{namespaces: make(map[string]*Namespace)}
	for _, p := range providers {
		ns := &Namespace{
			Name:      p.Namespace(),
			Actions:   p.Actions(),
			Functions: p.Functions(),
			Signers:   p.Signers(),
		}
		if _, exists := reg.namespaces[ns.Name]; !exists {
			reg.order = append(reg.order, ns.Name)
		}
		reg.namespaces[ns.Name] = ns
	}
	return reg
}

// BuildFromNamespaces constructs a registry directly from fully-formed
// Namespace values — the path used by fixture loading (LoadFixtureDir) and
// by tests that don't need the Provider indirection.
func BuildFromNamespaces(namespaces []*Namespace) *Registry {
	reg := &Registry{namespaces: make(map[string]*Namespace)}
	for _, ns := range namespaces {
		if _, exists := reg.namespaces[ns.Name]; !exists {
			reg.order = append(reg.order, ns.Name)
		}
		reg.namespaces[ns.Name] = ns
	}
	return reg
}

// HasNamespace reports whether ns is a known addon namespace.
func (r *Registry) HasNamespace(ns string) bool {
	if r == nil {
		return false
	}
	_, ok := r.namespaces[ns]
	return ok
}

// LookupAction returns the action spec for namespace::action, if declared.
func (r *Registry) LookupAction(namespace, action string) (*ActionSpec, bool) {
	if r == nil {
		return nil, false
	}
	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil, false
	}
	a, ok := ns.Actions[action]
	return a, ok
}

// LookupFunction returns the function spec for namespace::name, if declared.
func (r *Registry) LookupFunction(namespace, name string) (*FunctionSpec, bool) {
	if r == nil {
		return nil, false
	}
	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil, false
	}
	f, ok := ns.Functions[name]
	return f, ok
}

// LookupSigner returns the signer spec for namespace::signerType, if declared.
func (r *Registry) LookupSigner(namespace, signerType string) (*SignerSpec, bool) {
	if r == nil {
		return nil, false
	}
	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil, false
	}
	s, ok := ns.Signers[signerType]
	return s, ok
}

// ListActions returns the action names declared in namespace, used by
// rules to build "did you mean" suggestions.
func (r *Registry) ListActions(namespace string) []string {
	if r == nil {
		return nil
	}
	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(ns.Actions))
	for name := range ns.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListFunctions returns the function names declared in namespace, used by
// completion to list callables after "<ns>::".
func (r *Registry) ListFunctions(namespace string) []string {
	if r == nil {
		return nil
	}
	ns, ok := r.namespaces[namespace]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(ns.Functions))
	for name := range ns.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Namespaces returns every known namespace name in registration order.
func (r *Registry) Namespaces() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SuggestNamespace returns the closest known namespace to want by edit
// distance, or "" if the registry is empty.
func (r *Registry) SuggestNamespace(want string) string {
	return closest(want, r.Namespaces())
}

// SuggestAction returns the closest action name in namespace to want, or
// "" if namespace is unknown or has no actions.
func (r *Registry) SuggestAction(namespace, want string) string {
	return closest(want, r.ListActions(namespace))
}

func closest(want string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.Distance(want, c, nil)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = c
		}
	}
	// Only suggest when reasonably close — otherwise the suggestion is
	// noise rather than help.
	if bestDist < 0 || bestDist > max(3, len(want)/2) {
		return ""
	}
	return best
}

// String implements fmt.Stringer for debugging.
func (r *Registry) String() string {
	return fmt.Sprintf("addon.Registry{namespaces: %v}", r.Namespaces())
}
