package workspace

// Document is one open editor buffer, full-sync: every change replaces the
// entire content rather than applying incremental edits — spec.md §4.8
// "change_document... full-sync model: server does not require incremental
// diffs."
type Document struct {
	URI     string
	Content []byte
	Version int

	// LanguageID is the client-reported language, e.g. "txtx" for runbooks
	// or "yaml" for manifests. Manifests are tracked as documents too so
	// saving one can trigger a reload, but only runbooks are validated.
	LanguageID string

	// ManifestURI is the owning manifest discovered by walking ancestor
	// directories on open, per spec.md §4.8 "runbook_to_manifest". Empty
	// when no manifest was found — the document still validates in
	// syntax-only mode.
	ManifestURI string
}

func isRunbook(languageID, uri string) bool {
	if languageID == "txtx" || languageID == "hcl" {
		return true
	}
	return hasSuffix(uri, ".tx")
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
