package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "txtx.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadAndEffectiveEnvironmentInheritance(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "r.tx"), []byte(`addon "evm" {}`), 0o644)
	path := writeManifest(t, dir, `
name: demo
runbooks:
  - name: r
    location: r.tx
environments:
  global:
    A: "1"
    B: "x"
  dev:
    A: "2"
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dev, err := m.EffectiveEnvironment("dev")
	if err != nil {
		t.Fatalf("EffectiveEnvironment(dev): %v", err)
	}
	if dev["A"] != "2" {
		t.Errorf("expected dev to override A, got %q", dev["A"])
	}
	if dev["B"] != "x" {
		t.Errorf("expected dev to inherit B from global, got %q", dev["B"])
	}
}

func TestEffectiveEnvironmentDefaultsToGlobal(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "r.tx"), []byte(``), 0o644)
	path := writeManifest(t, dir, `
name: demo
runbooks:
  - name: r
    location: r.tx
environments:
  global:
    CHAIN_ID: "1"
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	env, err := m.EffectiveEnvironment("")
	if err != nil {
		t.Fatalf("EffectiveEnvironment(\"\"): %v", err)
	}
	if env["CHAIN_ID"] != "1" {
		t.Errorf("expected global CHAIN_ID, got %q", env["CHAIN_ID"])
	}
}

func TestEffectiveEnvironmentUnknownErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name: demo
environments:
  global: {}
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := m.EffectiveEnvironment("staging"); err == nil {
		t.Fatal("expected UnknownEnvironmentError for undeclared environment")
	}
}

func TestApplyOverridesWinOverEnvironment(t *testing.T) {
	effective := map[string]string{"X": "old"}
	merged := ApplyOverrides(effective, map[string]string{"X": "new"})
	if merged["X"] != "new" {
		t.Errorf("expected override to win, got %q", merged["X"])
	}
}

func TestExpandRunbookFilesDirectoryLexicographic(t *testing.T) {
	dir := t.TempDir()
	rbDir := filepath.Join(dir, "runbooks")
	os.MkdirAll(rbDir, 0o755)
	os.WriteFile(filepath.Join(rbDir, "b.tx"), []byte(``), 0o644)
	os.WriteFile(filepath.Join(rbDir, "a.tx"), []byte(``), 0o644)
	os.WriteFile(filepath.Join(rbDir, "notes.md"), []byte(``), 0o644)

	path := writeManifest(t, dir, `
name: demo
runbooks:
  - name: r
    location: runbooks
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	decl, ok := m.FindRunbook("r")
	if !ok {
		t.Fatal("expected to find runbook r")
	}
	files, err := m.ExpandRunbookFiles(decl)
	if err != nil {
		t.Fatalf("ExpandRunbookFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 .tx files, got %v", files)
	}
	if filepath.Base(files[0]) != "a.tx" || filepath.Base(files[1]) != "b.tx" {
		t.Errorf("expected lexicographic order, got %v", files)
	}
}

func TestLoadWithWarningsReportsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name: demo
unexpected_key: true
`)
	_, warnings, err := LoadWithWarnings(path)
	if err != nil {
		t.Fatalf("LoadWithWarnings: %v", err)
	}
	if len(warnings) != 1 || warnings[0] != "unexpected_key" {
		t.Errorf("expected one warning for unexpected_key, got %v", warnings)
	}
}

func TestDeprecatedInputsFromLeadingComment(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
name: demo
environments:
  global:
    # deprecated: use RPC_URL instead
    OLD_RPC: "https://old.example.test"
    RPC_URL: "https://example.test"
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	deprecated := m.DeprecatedInputs()
	if !deprecated["OLD_RPC"] {
		t.Errorf("expected OLD_RPC to be marked deprecated, got %v", deprecated)
	}
	if deprecated["RPC_URL"] {
		t.Errorf("did not expect RPC_URL to be marked deprecated")
	}
}

func TestParseOverride(t *testing.T) {
	k, v, err := ParseOverride("RPC_URL=https://example.test")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	if k != "RPC_URL" || v != "https://example.test" {
		t.Errorf("got (%q, %q)", k, v)
	}
	if _, _, err := ParseOverride("no-equals-sign"); err == nil {
		t.Fatal("expected error for malformed override")
	}
}
