// Package workspace implements the LSP workspace state (C8): a
// thread-safe document/manifest index behind a single reader-writer lock,
// and the incremental validation it drives on open/change/save — spec.md
// §4.8. Grounded on upbound-up's internal/xpls Workspace/Dispatcher pair:
// a mutex-protected struct built via functional options, consumed by a
// thin dispatcher that owns the jsonrpc2 connection (cmd/doctor-lsp).
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/crossplane/crossplane-runtime/pkg/logging"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/manifest"
	"github.com/txtx-tools/doctor/internal/merge"
	"github.com/txtx-tools/doctor/internal/validate"
)

const fileProtocol = "file://"

// cacheKey is the effective_input_cache key — one entry per (manifest,
// environment) pair, per spec.md §4.8.
type cacheKey struct {
	manifestURI string
	envName     string
}

// Workspace holds every piece of state the language server needs across
// requests. A single sync.RWMutex protects it all: reads on every handler,
// writes only on document/manifest change events, matching spec.md §4.8's
// concurrency contract.
type Workspace struct {
	mu sync.RWMutex

	documents           map[string]*Document
	manifests           map[string]*manifest.Manifest
	runbookToManifest   map[string]string
	activeEnvironment   string
	effectiveInputCache map[cacheKey]map[string]string

	registry *addon.Registry
	engine   *validate.Engine
	log      logging.Logger
}

// Option configures a Workspace at construction, matching the teacher's
// functional-options idiom (pkg/providers.Option, upbound-up's
// dispatcher.Option).
type Option func(*Workspace)

// WithLogger overrides the default no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(w *Workspace) { w.log = l }
}

// New constructs an empty Workspace bound to registry and rules.
// active_environment defaults to "global" per spec.md §4.8.
func New(registry *addon.Registry, rules []validate.Rule, opts ...Option) *Workspace {
	w := &Workspace{
		documents:           make(map[string]*Document),
		manifests:           make(map[string]*manifest.Manifest),
		runbookToManifest:   make(map[string]string),
		activeEnvironment:   manifest.GlobalEnvironment,
		effectiveInputCache: make(map[cacheKey]map[string]string),
		registry:            registry,
		engine:              validate.NewEngine(registry, rules),
		log:                 logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func uriToPath(uri string) string {
	return strings.TrimPrefix(uri, fileProtocol)
}

// OpenDocument stores a newly opened buffer, discovers its owning manifest
// if it's a runbook, and validates it.
func (w *Workspace) OpenDocument(uri string, content []byte, version int) *diagnostic.ValidationResult {
	w.mu.Lock()
	doc := &Document{URI: uri, Content: content, Version: version, LanguageID: languageFor(uri)}
	if isRunbook(doc.LanguageID, uri) {
		if mURI, ok := w.discoverManifestLocked(uriToPath(uri)); ok {
			doc.ManifestURI = mURI
			w.runbookToManifest[uri] = mURI
		}
	}
	w.documents[uri] = doc
	w.mu.Unlock()

	result, err := w.Validate(uri)
	if err != nil {
		w.log.Debug("validate on open failed", "uri", uri, "error", err)
		return diagnostic.NewValidationResult()
	}
	return result
}

// ChangeDocument replaces a document's full content (full-sync: no
// incremental diffing) and revalidates.
func (w *Workspace) ChangeDocument(uri string, content []byte, version int) *diagnostic.ValidationResult {
	w.mu.Lock()
	doc, ok := w.documents[uri]
	if !ok {
		w.mu.Unlock()
		return diagnostic.NewValidationResult()
	}
	doc.Content = content
	doc.Version = version
	w.mu.Unlock()

	result, err := w.Validate(uri)
	if err != nil {
		w.log.Debug("validate on change failed", "uri", uri, "error", err)
		return diagnostic.NewValidationResult()
	}
	return result
}

// SaveDocument retriggers validation, per spec.md §4.8 "save_document(uri)
// — retrigger validation." Saving a document the workspace already knows
// as a manifest reloads it from disk and revalidates every open runbook
// that depends on it, since the manifest itself is never HCL-validated.
func (w *Workspace) SaveDocument(uri string) *diagnostic.ValidationResult {
	w.mu.Lock()
	_, isManifest := w.manifests[uri]
	var dependents []string
	if isManifest {
		if m, err := manifest.Load(uriToPath(uri)); err == nil {
			w.manifests[uri] = m
		} else {
			w.log.Debug("manifest reload failed", "uri", uri, "error", err)
		}
		w.invalidateCacheForManifestLocked(uri)
		for runbookURI, mURI := range w.runbookToManifest {
			if mURI == uri {
				dependents = append(dependents, runbookURI)
			}
		}
	}
	w.mu.Unlock()

	if isManifest {
		sort.Strings(dependents)
		result := diagnostic.NewValidationResult()
		for _, runbookURI := range dependents {
			if r, err := w.Validate(runbookURI); err == nil {
				result.Merge(r)
			}
		}
		return result
	}

	result, err := w.Validate(uri)
	if err != nil {
		return diagnostic.NewValidationResult()
	}
	return result
}

// CloseDocument drops a document but retains its owning manifest, per
// spec.md §4.8 "close_document — drop document; retain manifest."
func (w *Workspace) CloseDocument(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.documents, uri)
	delete(w.runbookToManifest, uri)
}

// Validate runs the two-pass engine over the document at uri. If the
// owning manifest declares the runbook as a directory with sibling files,
// the siblings are merged first (C7) and diagnostics remapped back.
func (w *Workspace) Validate(uri string) (*diagnostic.ValidationResult, error) {
	w.mu.RLock()
	doc, ok := w.documents[uri]
	if !ok {
		w.mu.RUnlock()
		return nil, fmt.Errorf("no open document for %s", uri)
	}
	if !isRunbook(doc.LanguageID, uri) {
		w.mu.RUnlock()
		return diagnostic.NewValidationResult(), nil
	}
	content := doc.Content
	manifestURI := doc.ManifestURI
	var m *manifest.Manifest
	if manifestURI != "" {
		m = w.manifests[manifestURI]
	}
	env := w.activeEnvironment
	w.mu.RUnlock()

	var manifestErr error
	var unknownEnv *manifest.UnknownEnvironmentError
	effective := map[string]string{}
	if m != nil {
		var err error
		effective, err = w.effectiveInputs(manifestURI, m, env)
		if err != nil {
			if ue, ok := err.(*manifest.UnknownEnvironmentError); ok {
				unknownEnv = ue
			} else {
				manifestErr = err
			}
		}
	} else if manifestURI == "" {
		manifestErr = fmt.Errorf("no txtx.yml/txtx.yaml found for %s", uriToPath(uri))
	}

	merged, err := w.siblingFiles(uriToPath(uri), doc, m)
	if err != nil {
		return nil, err
	}

	// m is a *manifest.Manifest and may be nil; assigning it to the
	// validate.ManifestView interface field directly would produce a
	// non-nil interface wrapping a nil pointer, defeating every rule's
	// "ctx.Manifest == nil" guard. Only set the field when there's a real
	// manifest to report on.
	var manifestView validate.ManifestView
	if m != nil {
		manifestView = m
	}

	var result *diagnostic.ValidationResult
	file := uriToPath(uri)
	if merged != nil {
		req := validate.Request{
			Source: merged.Source, File: "<merged>",
			Effective: effective, EnvName: env, ManifestErr: manifestErr, Manifest: manifestView,
		}
		result = w.engine.Validate(req)
		result = merged.RemapDiagnostics(result)
	} else {
		result = w.engine.Validate(validate.Request{
			Source: content, File: file,
			Effective: effective, EnvName: env, ManifestErr: manifestErr, Manifest: manifestView,
		})
	}

	// Unknown environment requested: validation still ran with an empty
	// effective-inputs set above, but it gets its own error diagnostic
	// rather than the info-level "syntax-only mode" note ManifestErr
	// produces — spec.md §4.9 "Unknown environment requested."
	if unknownEnv != nil {
		result.AddError(diagnostic.New(diagnostic.Error, diagnostic.CategoryManifest,
			unknownEnv.Error()).WithFile(file))
	}
	return result, nil
}

// siblingFiles returns nil when path isn't part of a multi-file runbook
// declaration; otherwise it reads every sibling (substituting the
// in-memory content for any that are themselves open) and merges them.
func (w *Workspace) siblingFiles(path string, doc *Document, m *manifest.Manifest) (*merge.Merged, error) {
	if m == nil {
		return nil, nil
	}
	for i := range m.Runbooks {
		decl := &m.Runbooks[i]
		expanded, err := m.ExpandRunbookFiles(decl)
		if err != nil || len(expanded) < 2 {
			continue
		}
		if !containsPath(expanded, path) {
			continue
		}
		files := make(map[string][]byte, len(expanded))
		for _, f := range expanded {
			if f == path {
				files[f] = doc.Content
				continue
			}
			if openDoc := w.openDocumentForPath(f); openDoc != nil {
				files[f] = openDoc.Content
				continue
			}
			b, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("read sibling runbook file %s: %w", f, err)
			}
			files[f] = b
		}
		mg := merge.Merge(files)
		return &mg, nil
	}
	return nil, nil
}

// ContentForPath returns the in-memory content of the open document backing
// path (as produced by uriToPath), for callers that need to translate a
// diagnostic.Span's byte offsets back into line/column positions — spans
// always reference the document they were collected from, per
// validate.Engine.Collect's file parameter.
func (w *Workspace) ContentForPath(path string) ([]byte, bool) {
	doc := w.openDocumentForPath(path)
	if doc == nil {
		return nil, false
	}
	return doc.Content, true
}

func (w *Workspace) openDocumentForPath(path string) *Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if d, ok := w.documents[fileProtocol+path]; ok {
		return d
	}
	return nil
}

func containsPath(paths []string, path string) bool {
	for _, p := range paths {
		if p == path {
			return true
		}
	}
	return false
}

// SetActiveEnvironment updates the active environment, invalidates every
// cache entry for it, and revalidates every open runbook — spec.md §4.8
// "set_active_environment... invalidate caches keyed by environment;
// revalidate all open runbooks." Returns the fresh diagnostics per URI so
// the caller (cmd/doctor-lsp) can publish them.
func (w *Workspace) SetActiveEnvironment(name string) map[string]*diagnostic.ValidationResult {
	w.mu.Lock()
	w.activeEnvironment = name
	for key := range w.effectiveInputCache {
		if key.envName == name {
			delete(w.effectiveInputCache, key)
		}
	}
	uris := make([]string, 0, len(w.documents))
	for uri, doc := range w.documents {
		if isRunbook(doc.LanguageID, uri) {
			uris = append(uris, uri)
		}
	}
	w.mu.Unlock()

	sort.Strings(uris)
	results := make(map[string]*diagnostic.ValidationResult, len(uris))
	for _, uri := range uris {
		if r, err := w.Validate(uri); err == nil {
			results[uri] = r
		}
	}
	return results
}

// ListEnvironments returns the environment names declared by uri's owning
// manifest, for the `workspace/environments` custom request.
func (w *Workspace) ListEnvironments(uri string) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.documents[uri]
	if !ok || doc.ManifestURI == "" {
		return nil, fmt.Errorf("no manifest found for %s", uri)
	}
	m, ok := w.manifests[doc.ManifestURI]
	if !ok {
		return nil, fmt.Errorf("manifest %s not loaded", doc.ManifestURI)
	}
	return m.ListEnvironments(), nil
}

// effectiveInputs resolves and caches the effective inputs map for
// (manifestURI, env), per spec.md §4.8's effective_input_cache. An
// unknown named environment doesn't fail the validation; it reports one
// manifest-category error and proceeds with an empty map, per spec.md §4.9
// "Unknown environment requested."
func (w *Workspace) effectiveInputs(manifestURI string, m *manifest.Manifest, env string) (map[string]string, error) {
	key := cacheKey{manifestURI: manifestURI, envName: env}

	w.mu.RLock()
	if cached, ok := w.effectiveInputCache[key]; ok {
		w.mu.RUnlock()
		return cached, nil
	}
	w.mu.RUnlock()

	effective, err := m.EffectiveEnvironment(env)
	if err != nil {
		return map[string]string{}, err
	}

	w.mu.Lock()
	w.effectiveInputCache[key] = effective
	w.mu.Unlock()
	return effective, nil
}

func (w *Workspace) invalidateCacheForManifestLocked(manifestURI string) {
	for key := range w.effectiveInputCache {
		if key.manifestURI == manifestURI {
			delete(w.effectiveInputCache, key)
		}
	}
}

// discoverManifestLocked walks path's ancestor directories looking for
// txtx.yml/txtx.yaml, loading and caching the first one found. Caller must
// hold w.mu for writing.
func (w *Workspace) discoverManifestLocked(path string) (string, bool) {
	candidate, ok := manifest.FindFile(filepath.Dir(path))
	if !ok {
		return "", false
	}
	mURI := fileProtocol + candidate
	if _, cached := w.manifests[mURI]; cached {
		return mURI, true
	}
	m, err := manifest.Load(candidate)
	if err != nil {
		w.log.Debug("manifest load failed", "path", candidate, "error", err)
		return "", false
	}
	w.manifests[mURI] = m
	return mURI, true
}

func languageFor(uri string) string {
	if hasSuffix(uri, ".tx") {
		return "txtx"
	}
	if hasSuffix(uri, ".yml") || hasSuffix(uri, ".yaml") {
		return "yaml"
	}
	return ""
}
