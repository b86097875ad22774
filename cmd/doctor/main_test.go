package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/txtx-tools/doctor/internal/manifest"
)

func loadManifest(t *testing.T, dir, yaml string) *manifest.Manifest {
	t.Helper()
	path := filepath.Join(dir, "txtx.yml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return m
}

func TestResolveRunbookFilesDefaultsToSoleDeclaration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.tx"), []byte("addon \"evm\" {}\n"), 0o644); err != nil {
		t.Fatalf("write runbook: %v", err)
	}
	m := loadManifest(t, dir, "name: sample\nrunbooks:\n  - name: deploy\n    location: main.tx\n")

	files, err := resolveRunbookFiles(m, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "main.tx" {
		t.Fatalf("expected [main.tx], got %v", files)
	}
}

func TestResolveRunbookFilesRequiresNameWithMultipleDeclarations(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.tx"), []byte("addon \"evm\" {}\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "b.tx"), []byte("addon \"evm\" {}\n"), 0o644)
	m := loadManifest(t, dir, "name: sample\nrunbooks:\n  - name: deploy\n    location: a.tx\n  - name: teardown\n    location: b.tx\n")

	if _, err := resolveRunbookFiles(m, ""); err == nil {
		t.Fatalf("expected an error when multiple runbooks are declared and none is named")
	}
	files, err := resolveRunbookFiles(m, "teardown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "b.tx" {
		t.Fatalf("expected [b.tx], got %v", files)
	}
}

func TestResolveRunbookFilesUnknownNameErrors(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.tx"), []byte("addon \"evm\" {}\n"), 0o644)
	m := loadManifest(t, dir, "name: sample\nrunbooks:\n  - name: deploy\n    location: a.tx\n")

	if _, err := resolveRunbookFiles(m, "nope"); err == nil {
		t.Fatalf("expected an error for an undeclared runbook name")
	}
}

func TestResolveEffectiveInputsLayersOverridesOverEnvironment(t *testing.T) {
	dir := t.TempDir()
	m := loadManifest(t, dir, "name: sample\nenvironments:\n  global:\n    RPC_URL: \"http://global\"\n  dev:\n    RPC_URL: \"http://dev\"\n")

	effective, unknownEnv, err := resolveEffectiveInputs(m, "dev", []string{"RPC_URL=http://override"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unknownEnv != nil {
		t.Fatalf("expected no unknown-environment error, got %v", unknownEnv)
	}
	if effective["RPC_URL"] != "http://override" {
		t.Fatalf("expected CLI override to win, got %q", effective["RPC_URL"])
	}
}

func TestResolveEffectiveInputsReportsUnknownEnvironment(t *testing.T) {
	dir := t.TempDir()
	m := loadManifest(t, dir, "name: sample\nenvironments:\n  global:\n    RPC_URL: \"http://global\"\n")

	effective, unknownEnv, err := resolveEffectiveInputs(m, "staging", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if unknownEnv == nil || unknownEnv.Name != "staging" {
		t.Fatalf("expected an unknown-environment error for staging, got %v", unknownEnv)
	}
	if len(effective) != 0 {
		t.Fatalf("expected an empty effective set, got %v", effective)
	}
}

func TestLoadRegistryFallsBackToEmptyWhenNoAddonsDirectory(t *testing.T) {
	dir := t.TempDir()
	m := loadManifest(t, dir, "name: sample\n")

	registry, err := loadRegistry("", m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.HasNamespace("evm") {
		t.Fatalf("expected an empty registry")
	}
}
