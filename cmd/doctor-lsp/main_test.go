package main

import (
	"testing"

	"github.com/sourcegraph/go-lsp"
	"github.com/txtx-tools/doctor/internal/addon"
	"github.com/txtx-tools/doctor/internal/diagnostic"
	"github.com/txtx-tools/doctor/internal/rules"
	"github.com/txtx-tools/doctor/internal/workspace"
)

func TestLoadRegistryDefaultsToEmptyWithoutPath(t *testing.T) {
	registry, err := loadRegistry("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.HasNamespace("evm") {
		t.Fatalf("expected an empty registry")
	}
}

func TestFromLSPPositionConvertsToOneBased(t *testing.T) {
	pos := fromLSPPosition(lsp.Position{Line: 2, Character: 4})
	if pos.Line != 3 || pos.Column != 5 {
		t.Fatalf("expected (3,5), got (%d,%d)", pos.Line, pos.Column)
	}
}

func TestToLSPSeverityMapsEveryLevel(t *testing.T) {
	cases := map[diagnostic.Severity]lsp.DiagnosticSeverity{
		diagnostic.Error:   lsp.Error,
		diagnostic.Warning: lsp.Warning,
		diagnostic.Info:    lsp.Information,
		diagnostic.Hint:    lsp.Hint,
	}
	for sev, want := range cases {
		if got := toLSPSeverity(sev); got != want {
			t.Fatalf("severity %v: expected %v, got %v", sev, want, got)
		}
	}
}

func TestToLSPDiagnosticResolvesRangeFromSpan(t *testing.T) {
	ws := workspace.New(addon.BuildFromNamespaces(nil), rules.Default())
	ws.OpenDocument("file://main.tx", []byte("addon \"evm\" {\n  x = 1\n}\n"), 1)
	h := &handler{ws: ws}

	d := diagnostic.New(diagnostic.Error, diagnostic.CategoryReference, "undefined input").
		WithSpan(diagnostic.Span{File: "main.tx", Start: 15, End: 20})
	idx := diagnostic.NewLineIndexCache()

	got := h.toLSPDiagnostic(d, idx)
	if got.Message != "undefined input" {
		t.Fatalf("expected the message to carry through, got %q", got.Message)
	}
	if got.Severity != lsp.Error {
		t.Fatalf("expected error severity, got %v", got.Severity)
	}
	if got.Range.Start.Line != 1 {
		t.Fatalf("expected the span to resolve to line 1 (0-based), got %d", got.Range.Start.Line)
	}
}
